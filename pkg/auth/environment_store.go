package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Variables read by EnvironmentStore, the names the Kaggle CLI uses
const (
	UsernameEnv  = "KAGGLE_USERNAME"
	KeyEnv       = "KAGGLE_KEY"
	ConfigDirEnv = "KAGGLE_CONFIG_DIR"
)

// EnvironmentStore reads KAGGLE_USERNAME and KAGGLE_KEY. It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment credentials. A non-empty username must
// match KAGGLE_USERNAME.
func (e *EnvironmentStore) Retrieve(username string) (*Account, error) {
	user, key := os.Getenv(UsernameEnv), os.Getenv(KeyEnv)
	if user == "" || key == "" {
		return nil, ErrCredentialsNotFound
	}
	if username != "" && username != user {
		return nil, ErrCredentialsNotFound
	}

	return &Account{Username: user, Key: key}, nil
}

// List returns a single account if the environment variables are set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(username string) bool {
	_, err := e.Retrieve(username)
	return err == nil
}

// KaggleConfigStore reads the kaggle.json token file downloaded from the
// Kaggle account page. It is read-only.
type KaggleConfigStore struct {
	path string
}

// NewKaggleConfigStore reads path, or when empty $KAGGLE_CONFIG_DIR/kaggle.json
// falling back to ~/.kaggle/kaggle.json
func NewKaggleConfigStore(path string) *KaggleConfigStore {
	if path == "" {
		path = defaultKaggleConfigPath()
	}
	return &KaggleConfigStore{path: path}
}

func defaultKaggleConfigPath() string {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return filepath.Join(dir, "kaggle.json")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".kaggle", "kaggle.json")
}

// Path returns the token file location
func (k *KaggleConfigStore) Path() string {
	return k.path
}

// Store is not supported; kaggle.json belongs to the Kaggle CLI
func (k *KaggleConfigStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve parses the token file. A non-empty username must match it.
func (k *KaggleConfigStore) Retrieve(username string) (*Account, error) {
	if k.path == "" {
		return nil, ErrCredentialsNotFound
	}

	info, err := os.Stat(k.path)
	if err != nil {
		return nil, ErrCredentialsNotFound
	}
	content, err := os.ReadFile(k.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", k.path, err)
	}

	var token struct {
		Username string `json:"username"`
		Key      string `json:"key"`
	}
	if err := json.Unmarshal(content, &token); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", k.path, err)
	}
	if token.Username == "" || token.Key == "" {
		return nil, fmt.Errorf("%w: %s lacks username or key", ErrInvalidCredentials, k.path)
	}
	if username != "" && username != token.Username {
		return nil, ErrCredentialsNotFound
	}

	return &Account{
		Username:     token.Username,
		Key:          token.Key,
		LastModified: info.ModTime(),
	}, nil
}

// List returns the token file account, if any
func (k *KaggleConfigStore) List() ([]*Account, error) {
	account, err := k.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported
func (k *KaggleConfigStore) Delete(username string) error {
	return ErrStoreUnavailable
}

// Exists checks if the token file holds credentials for username
func (k *KaggleConfigStore) Exists(username string) bool {
	_, err := k.Retrieve(username)
	return err == nil
}
