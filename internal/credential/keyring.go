package credential

import (
	"errors"
	"fmt"
	"os"

	"github.com/99designs/keyring"
)

const serviceName = "lectureboard"

// Keys under which the board keeps its secrets.
const (
	// KeyStoreAPIKey is the API key for the rest store backend.
	KeyStoreAPIKey = "store-api-key"
)

// envOverrides maps a key to the environment variable that takes
// precedence over the keyring.
var envOverrides = map[string]string{
	KeyStoreAPIKey: "LECTUREBOARD_STORE_API_KEY",
}

// ErrNotFound is returned when a credential is in neither the environment
// nor the keyring.
var ErrNotFound = errors.New("credential not found")

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/lectureboard/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("lectureboard-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Lookup returns the credential for key, preferring its environment
// override when one is set.
func Lookup(key string) (string, error) {
	if env, ok := envOverrides[key]; ok {
		if v := os.Getenv(env); v != "" {
			return v, nil
		}
	}
	v, err := Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return v, err
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "lectureboard " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring.
func Delete(key string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}
