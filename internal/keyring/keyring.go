// Package keyring keeps database credentials in the OS secret store so they
// never appear in config files or shell history.
package keyring

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/cadence/internal/constants"
)

// RefPrefix marks a config value that must be resolved from the keyring,
// e.g. "keyring:" or "keyring:work-db".
const RefPrefix = "keyring:"

var (
	ErrNotFound           = errors.New("credentials not found in keyring")
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

func account(user string) string {
	if user == "" {
		return constants.DefaultKeyringUser
	}
	return user
}

// Get returns the secret stored for user, or the default account when user
// is empty.
func Get(user string) (string, error) {
	secret, err := keyring.Get(constants.AppName, account(user))
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return secret, nil
}

func Set(user, secret string) error {
	if secret == "" {
		return errors.New("secret cannot be empty")
	}
	if err := keyring.Set(constants.AppName, account(user), secret); err != nil {
		return fmt.Errorf("failed to store credentials in keyring: %w", err)
	}
	return nil
}

func Delete(user string) error {
	err := keyring.Delete(constants.AppName, account(user))
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete credentials from keyring: %w", err)
	}
	return nil
}

// IsRef reports whether value points into the keyring.
func IsRef(value string) bool {
	return strings.HasPrefix(value, RefPrefix)
}

// Resolve returns value unchanged unless it is a keyring reference, in which
// case the referenced secret is looked up.
func Resolve(value string) (string, error) {
	if !IsRef(value) {
		return value, nil
	}
	user := strings.TrimPrefix(value, RefPrefix)
	secret, err := Get(user)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", value, err)
	}
	return secret, nil
}

// IsAvailable is a best-effort check of the OS keyring.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
