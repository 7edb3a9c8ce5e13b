package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RateLimitRule is one fixed window: at most Limit requests per Window.
type RateLimitRule struct {
	Window time.Duration `yaml:"window"`
	Limit  int64         `yaml:"limit"`
}

// RateLimitConfig holds the three route families.
type RateLimitConfig struct {
	Auth   RateLimitRule `yaml:"auth"`
	Search RateLimitRule `yaml:"search"`
	API    RateLimitRule `yaml:"api"`
}

func DefaultRateLimits() RateLimitConfig {
	return RateLimitConfig{
		Auth:   RateLimitRule{Window: 15 * time.Minute, Limit: 100},
		Search: RateLimitRule{Window: time.Minute, Limit: 30},
		API:    RateLimitRule{Window: time.Minute, Limit: 60},
	}
}

// LoadFile overrides rules from a YAML file such as
//
//	auth:
//	  window: 15m
//	  limit: 100
//
// Rules absent from the file keep their current values.
func (c *RateLimitConfig) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read rate limit config: %w", err)
	}
	var override RateLimitConfig
	if err := yaml.Unmarshal(data, &override); err != nil {
		return fmt.Errorf("parse rate limit config: %w", err)
	}
	c.Auth = merge(c.Auth, override.Auth)
	c.Search = merge(c.Search, override.Search)
	c.API = merge(c.API, override.API)
	return c.validate()
}

func merge(base, override RateLimitRule) RateLimitRule {
	if override.Window > 0 {
		base.Window = override.Window
	}
	if override.Limit > 0 {
		base.Limit = override.Limit
	}
	return base
}

func (c *RateLimitConfig) validate() error {
	for name, rule := range map[string]RateLimitRule{"auth": c.Auth, "search": c.Search, "api": c.API} {
		if rule.Window < time.Second {
			return fmt.Errorf("rate limit %s: window must be at least 1s", name)
		}
		if rule.Limit <= 0 {
			return fmt.Errorf("rate limit %s: limit must be positive", name)
		}
	}
	return nil
}
