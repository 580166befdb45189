package envconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Get returns the value of the requested environment variable or the supplied fallback when empty.
func Get(name string, fallback string) string {
	if value, ok := os.LookupEnv(name); ok && value != "" {
		return value
	}
	return fallback
}

// GetBool parses a boolean environment variable (1, t, true, 0, f, false...), returning
// fallback when unset.
func GetBool(name string, fallback bool) (bool, error) {
	raw := Get(name, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("env %s: %w", name, err)
	}
	return v, nil
}

// GetUint64 parses an unsigned integer environment variable, returning fallback when unset.
func GetUint64(name string, fallback uint64) (uint64, error) {
	raw := Get(name, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("env %s: %w", name, err)
	}
	return v, nil
}

// GetInt parses an integer environment variable, returning fallback when unset.
func GetInt(name string, fallback int) (int, error) {
	raw := Get(name, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("env %s: %w", name, err)
	}
	return v, nil
}

// GetDuration parses a time.Duration environment variable, returning fallback when unset.
func GetDuration(name string, fallback time.Duration) (time.Duration, error) {
	raw := Get(name, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("env %s: %w", name, err)
	}
	return v, nil
}

// Validate checks v against its `validate` struct tags.
func Validate(v any) error {
	return validate.Struct(v)
}
