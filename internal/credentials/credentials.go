// Package credentials resolves the API key used to authenticate backup uploads.
//
// A key is looked up through an ordered list of Sources. The first source
// yielding a non-empty key wins. Key values are never logged.
package credentials

import (
	"context"
	"errors"
	"fmt"

	backuperrors "github.com/Wurst-Imperium/upload-backups/errors"
)

// EnvAPIKey is the environment variable holding the API key.
const EnvAPIKey = "WI_BACKUPS_API_KEY"

var (
	// ErrSecretNotFound is returned when the referenced secret does not exist.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrSecretEmpty is returned when a secret exists but holds no value.
	ErrSecretEmpty = errors.New("secret value is empty")

	// ErrAccessDenied is returned when the caller may not read the secret.
	ErrAccessDenied = errors.New("access denied to secret")
)

// Source yields an API key. An empty key with a nil error means the source
// has nothing to offer and the next one should be consulted.
type Source interface {
	// Name identifies the source in errors and logs.
	Name() string

	// APIKey returns the key held by the source.
	APIKey(ctx context.Context) (string, error)
}

// Resolve returns the first non-empty key among sources. It fails with a
// configuration error when no source provides one.
func Resolve(ctx context.Context, sources ...Source) (string, error) {
	for _, s := range sources {
		key, err := s.APIKey(ctx)
		if err != nil {
			return "", backuperrors.NewError("credentials", fmt.Errorf("%s: %w", s.Name(), err))
		}
		if key != "" {
			return key, nil
		}
	}
	return "", backuperrors.NewConfigError("", "API key is missing or empty.")
}

// EnvSource reads the key from an environment variable.
type EnvSource struct {
	variable string
	getenv   func(string) string
}

// Env returns a source reading variable through getenv.
func Env(getenv func(string) string, variable string) *EnvSource {
	return &EnvSource{
		variable: variable,
		getenv:   getenv,
	}
}

// Name returns "env:<variable>".
func (s *EnvSource) Name() string {
	return "env:" + s.variable
}

// APIKey returns the variable's value, which may be empty.
func (s *EnvSource) APIKey(context.Context) (string, error) {
	return s.getenv(s.variable), nil
}

// StaticSource holds a key passed in directly.
type StaticSource string

// Name returns "static".
func (StaticSource) Name() string {
	return "static"
}

// APIKey returns the key.
func (s StaticSource) APIKey(context.Context) (string, error) {
	return string(s), nil
}
