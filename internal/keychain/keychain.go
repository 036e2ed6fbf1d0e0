package keychain

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const (
	serviceName  = "backupbot"
	tokenAccount = "telegram-bot-token"
)

// ErrNotFound is returned when no secret is stored for the account.
var ErrNotFound = keyring.ErrNotFound

// Get retrieves a secret from the system keychain.
func Get(account string) (string, error) {
	return keyring.Get(serviceName, account)
}

// Set stores a secret in the system keychain.
func Set(account, value string) error {
	return keyring.Set(serviceName, account, value)
}

// Token returns the stored bot token, or ErrNotFound.
func Token() (string, error) {
	return Get(tokenAccount)
}

// SetToken stores the bot token.
func SetToken(token string) error {
	return Set(tokenAccount, token)
}

// DeleteToken removes the stored bot token.
func DeleteToken() error {
	err := keyring.Delete(serviceName, tokenAccount)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
