package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/fastygo/gidoku/domain"
)

//go:embed schema.sql
var schema string

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

const userColumns = `id, username, email, name, bio, avatar_url, provider, provider_id, created_at, updated_at`

// userRow mirrors the users table; timestamps are unix seconds.
type userRow struct {
	ID         string         `db:"id"`
	Username   string         `db:"username"`
	Email      string         `db:"email"`
	Name       string         `db:"name"`
	Bio        sql.NullString `db:"bio"`
	AvatarURL  sql.NullString `db:"avatar_url"`
	Provider   string         `db:"provider"`
	ProviderID string         `db:"provider_id"`
	CreatedAt  int64          `db:"created_at"`
	UpdatedAt  int64          `db:"updated_at"`
}

func (r userRow) toDomain() *domain.User {
	user := &domain.User{
		ID:         r.ID,
		Username:   r.Username,
		Email:      r.Email,
		Name:       r.Name,
		Provider:   domain.Provider(r.Provider),
		ProviderID: r.ProviderID,
		CreatedAt:  time.Unix(r.CreatedAt, 0).UTC(),
		UpdatedAt:  time.Unix(r.UpdatedAt, 0).UTC(),
	}
	if r.Bio.Valid {
		user.Bio = &r.Bio.String
	}
	if r.AvatarURL.Valid {
		user.AvatarURL = &r.AvatarURL.String
	}
	return user
}

func fromDomain(u *domain.User) userRow {
	return userRow{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Name:       u.Name,
		Bio:        nullString(u.Bio),
		AvatarURL:  nullString(u.AvatarURL),
		Provider:   string(u.Provider),
		ProviderID: u.ProviderID,
		CreatedAt:  u.CreatedAt.Unix(),
		UpdatedAt:  u.UpdatedAt.Unix(),
	}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// UserRepository stores users in an embedded SQLite file. It is used when
// DB_DRIVER=sqlite, mainly for local development.
type UserRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*UserRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &UserRepository{db: db, now: time.Now}, nil
}

func (r *UserRepository) Close() error {
	return r.db.Close()
}

// Ping reports whether the database handle is usable.
func (r *UserRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UserRepository) FindByProvider(ctx context.Context, provider domain.Provider, providerID string) (*domain.User, error) {
	return r.getOne(ctx,
		`SELECT `+userColumns+` FROM users WHERE provider = ? AND provider_id = ?`,
		string(provider), providerID)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (r *UserRepository) IsUsernameTaken(ctx context.Context, username, excludeUserID string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(1) FROM users WHERE username = ? AND (? = '' OR id <> ?)`,
		username, excludeUserID, excludeUserID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if user == nil {
		return domain.ErrInvalidPayload
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := r.now().UTC().Truncate(time.Second)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		VALUES (:id, :username, :email, :name, :bio, :avatar_url, :provider, :provider_id, :created_at, :updated_at)`,
		fromDomain(user),
	)
	return mapWriteError(err)
}

func (r *UserRepository) Update(ctx context.Context, id string, update domain.UserUpdate) (*domain.User, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	var (
		fields []string
		args   []interface{}
	)
	if update.Username != nil {
		fields = append(fields, "username = ?")
		args = append(args, *update.Username)
	}
	if update.Name != nil {
		fields = append(fields, "name = ?")
		args = append(args, *update.Name)
	}
	if update.Bio != nil {
		fields = append(fields, "bio = ?")
		args = append(args, *update.Bio)
	}
	if update.AvatarURL != nil {
		fields = append(fields, "avatar_url = ?")
		args = append(args, *update.AvatarURL)
	}
	fields = append(fields, "updated_at = ?")
	args = append(args, r.now().UTC().Unix(), id)

	query := `UPDATE users SET ` + strings.Join(fields, ", ") + ` WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, mapWriteError(err)
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, args ...interface{}) (*domain.User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return domain.WrapError(domain.ErrCodeConflict, domain.ErrUsernameTaken.Message, err)
	}
	return err
}
