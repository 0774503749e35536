// Package secrets reads SMTP and IMAP passwords from the OS keychain.
package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// Service groups jobsweep's entries in the OS keychain.
const Service = "jobsweep"

// ErrNotFound is returned when neither the keychain nor the fallback has a value.
var ErrNotFound = errors.New("password not found")

// Password returns the keychain entry for account, or fallback when account
// is empty or has no entry.
func Password(account, fallback string) (string, error) {
	if strings.TrimSpace(account) != "" {
		pw, err := keyring.Get(Service, account)
		if err == nil && strings.TrimSpace(pw) != "" {
			return pw, nil
		}
		if err != nil && !errors.Is(err, keyring.ErrNotFound) && fallback == "" {
			return "", fmt.Errorf("keychain lookup for %s: %w", account, err)
		}
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", fmt.Errorf("%w: set it with 'jobsweep secret set' or in the config", ErrNotFound)
}

// Set stores password for account.
func Set(account, password string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(Service, account, password)
}

// Delete removes the entry for account.
func Delete(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(Service, account)
}
