package transport

import (
	"encoding/json"
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fastygo/gidoku/domain"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,30}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report fields by their JSON names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

// ProfileUpdateRequest is the body of PUT /api/users/me.
type ProfileUpdateRequest struct {
	Username  *string `json:"username" validate:"omitnil,username"`
	Name      *string `json:"name" validate:"omitnil,min=1,max=100"`
	Bio       *string `json:"bio" validate:"omitnil,max=500"`
	AvatarURL *string `json:"avatarUrl"`
}

// DecodeProfileUpdate parses and validates body into a domain update.
func DecodeProfileUpdate(body []byte) (domain.UserUpdate, error) {
	var req ProfileUpdateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return domain.UserUpdate{}, domain.NewValidationError("Validation failed", map[string]string{"body": "invalid JSON"})
	}

	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		req.Name = &trimmed
	}
	if err := Validate(req); err != nil {
		return domain.UserUpdate{}, err
	}

	update := domain.UserUpdate{
		Username:  req.Username,
		Name:      req.Name,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
	}
	if update.IsEmpty() {
		return domain.UserUpdate{}, domain.NewValidationError("Validation failed", map[string]string{"body": "no fields to update"})
	}
	return update, nil
}

// Validate checks the validate tags of req and reports failures per JSON field.
func Validate(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domain.WrapError(domain.ErrCodeInternal, "validator misconfigured", err)
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = describe(fe)
	}
	return domain.NewValidationError("Validation failed", fields)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "username":
		return "must be 3-30 characters of letters, digits, '-' or '_'"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "required":
		return "required"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// ValidUsername reports whether username fits the public username format.
func ValidUsername(username string) bool {
	return validate.Var(username, "username") == nil
}
