package auth

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func kaggleAccount(username string) *Account {
	return &Account{Username: username, Key: "0123456789abcdef0123456789abcdef"}
}

func TestManagerLifecycle(t *testing.T) {
	manager, store := NewMockManager()

	require.NoError(t, manager.Store(kaggleAccount("vangogh")))
	assert.Equal(t, 1, store.Count())

	retrieved, err := manager.Retrieve("vangogh")
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", retrieved.Key)
	assert.False(t, retrieved.LastModified.IsZero())

	accounts, err := manager.List()
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	require.NoError(t, manager.Delete("vangogh"))
	_, err = manager.Retrieve("vangogh")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.Zero(t, store.Count())
}

func TestManagerStoreValidation(t *testing.T) {
	manager, _ := NewMockManager()

	assert.Error(t, manager.Store(nil))
	assert.Error(t, manager.Store(&Account{Key: "abc"}))
	assert.Error(t, manager.Store(&Account{Username: "vangogh"}))
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = errors.New("keychain locked")
	working := NewMockStore()
	manager := NewManagerWithStores(broken, working)

	require.NoError(t, manager.Store(kaggleAccount("monet")))
	assert.Zero(t, broken.Count())
	assert.Equal(t, 1, working.Count())

	working.StoreError = errors.New("disk full")
	err := manager.Store(kaggleAccount("degas"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestManagerDeleteMissing(t *testing.T) {
	manager, _ := NewMockManager()

	err := manager.Delete("nobody")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestManagerListMergesStores(t *testing.T) {
	first, second := NewMockStore(), NewMockStore()
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, first.Store(&Account{Username: "rembrandt", Key: "old", LastModified: older}))
	require.NoError(t, second.Store(&Account{Username: "rembrandt", Key: "new", LastModified: older.Add(time.Hour)}))
	require.NoError(t, second.Store(&Account{Username: "cassatt", Key: "k", LastModified: older}))

	accounts, err := NewManagerWithStores(first, second).List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "cassatt", accounts[0].Username)
	assert.Equal(t, "rembrandt", accounts[1].Username)
	assert.Equal(t, "new", accounts[1].Key)
}

func TestRetrieveDefaultPrefersEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(UsernameEnv, "")
	t.Setenv(KeyEnv, "")

	store := NewMockStore()
	require.NoError(t, store.Store(kaggleAccount("vermeer")))
	config := NewKaggleConfigStore(filepath.Join(dir, "kaggle.json"))
	manager := NewManagerWithStores(store, config, NewEnvironmentStore())

	account, err := manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "vermeer", account.Username)

	require.NoError(t, os.WriteFile(config.Path(), []byte(`{"username":"hokusai","key":"from-file"}`), 0600))
	account, err = manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "hokusai", account.Username)

	t.Setenv(UsernameEnv, "kahlo")
	t.Setenv(KeyEnv, "from-env")
	account, err = manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "kahlo", account.Username)
	assert.Equal(t, "from-env", account.Key)
}

func TestRetrieveDefaultWithoutCredentials(t *testing.T) {
	t.Setenv(UsernameEnv, "")
	t.Setenv(KeyEnv, "")
	manager := NewManagerWithStores(NewMockStore(), NewEnvironmentStore())

	_, err := manager.RetrieveDefault()
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()

	t.Setenv(UsernameEnv, "kahlo")
	t.Setenv(KeyEnv, "")
	assert.False(t, store.Exists(""))

	t.Setenv(KeyEnv, "secret-key")
	account, err := store.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, "kahlo", account.Username)

	_, err = store.Retrieve("someone-else")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.ErrorIs(t, store.Store(kaggleAccount("kahlo")), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("kahlo"), ErrStoreUnavailable)
}

func TestKaggleConfigStore(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(ConfigDirEnv, dir)

	store := NewKaggleConfigStore("")
	assert.Equal(t, filepath.Join(dir, "kaggle.json"), store.Path())
	assert.False(t, store.Exists(""))

	require.NoError(t, os.WriteFile(store.Path(), []byte(`{"username":"hokusai","key":"wave"}`), 0600))
	account, err := store.Retrieve("hokusai")
	require.NoError(t, err)
	assert.Equal(t, "wave", account.Key)
	assert.False(t, account.LastModified.IsZero())

	require.NoError(t, os.WriteFile(store.Path(), []byte(`{"username":"hokusai"}`), 0600))
	_, err = store.Retrieve("")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestEncryptedFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds", "credentials.enc")
	store, err := NewEncryptedFileStoreWithPassphrase(path, "correct horse battery staple")
	require.NoError(t, err)

	require.NoError(t, store.Store(kaggleAccount("turner")))
	require.NoError(t, store.Store(kaggleAccount("constable")))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "0123456789abcdef")

	reopened, err := NewEncryptedFileStoreWithPassphrase(path, "correct horse battery staple")
	require.NoError(t, err)
	accounts, err := reopened.List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "constable", accounts[0].Username)

	wrong, err := NewEncryptedFileStoreWithPassphrase(path, "wrong")
	require.NoError(t, err)
	_, err = wrong.Retrieve("turner")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCredentialsNotFound)

	require.NoError(t, store.Delete("turner"))
	require.NoError(t, store.Delete("constable"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.ErrorIs(t, store.Delete("turner"), ErrCredentialsNotFound)
}

func TestEncryptedFileStorePassphraseFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(PassphraseEnv, "")

	store, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	require.NoError(t, err)
	require.NoError(t, store.Store(kaggleAccount("klimt")))

	passphrase, err := os.ReadFile(filepath.Join(dir, ".passphrase"))
	require.NoError(t, err)
	assert.NotEmpty(t, passphrase)

	reopened, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	require.NoError(t, err)
	assert.True(t, reopened.Exists("klimt"))
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	require.NoError(t, store.Store(kaggleAccount("morisot")))
	require.NoError(t, store.Store(kaggleAccount("caillebotte")))
	assert.True(t, store.Exists("morisot"))

	accounts, err := store.List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "caillebotte", accounts[0].Username)

	require.NoError(t, store.Delete("caillebotte"))
	assert.ErrorIs(t, store.Delete("caillebotte"), ErrCredentialsNotFound)

	accounts, err = store.List()
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "morisot", accounts[0].Username)

	_, err = store.Retrieve("nobody")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestSanitizeAccount(t *testing.T) {
	account := kaggleAccount("vangogh")
	sanitized := SanitizeAccount(account)

	assert.Equal(t, "vangogh", sanitized.Username)
	assert.Equal(t, "0123...cdef", sanitized.Key)
	assert.Equal(t, "********", maskString("short"))
	assert.Nil(t, SanitizeAccount(nil))
}

func TestShowTokenGuide(t *testing.T) {
	var buf bytes.Buffer
	ShowTokenGuide(&buf)

	out := buf.String()
	assert.Contains(t, out, KaggleAccountURL)
	assert.Contains(t, out, UsernameEnv)
	assert.Contains(t, out, "artscraper auth login")
}
