package provision

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sduiterm/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "nvs.json"), nil)
	require.NoError(t, err)
	return s
}

func TestNewStore_EmptyPath(t *testing.T) {
	_, err := NewStore("", nil)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestStore_SetGet(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set("ssid", "HomeNet"))

	val, ok := s.Get("ssid")
	assert.True(t, ok)
	assert.Equal(t, "HomeNet", val)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nvs.json")

	s, err := NewStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.SetCredentials(Credentials{
		SSID:     "HomeNet",
		Password: "hunter2",
		WSURL:    "wss://sdui.example.com/ws",
	}))

	reopened, err := NewStore(path, nil)
	require.NoError(t, err)
	assert.True(t, reopened.IsProvisioned())

	creds := reopened.Credentials()
	assert.Equal(t, "HomeNet", creds.SSID)
	assert.Equal(t, "hunter2", creds.Password)
	assert.Equal(t, "wss://sdui.example.com/ws", creds.WSURL)
}

func TestStore_IsProvisioned(t *testing.T) {
	s := newTestStore(t)
	assert.False(t, s.IsProvisioned())

	require.NoError(t, s.Set(KeySSID, ""))
	assert.False(t, s.IsProvisioned(), "empty ssid does not count as provisioned")

	require.NoError(t, s.Set(KeySSID, "HomeNet"))
	assert.True(t, s.IsProvisioned())
}

func TestStore_SetCredentialsValidation(t *testing.T) {
	s := newTestStore(t)

	err := s.SetCredentials(Credentials{SSID: ""})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	err = s.SetCredentials(Credentials{SSID: "x", WSURL: "http://not-ws.example.com"})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	// Empty ws_url is allowed; the server address can come from config
	assert.NoError(t, s.SetCredentials(Credentials{SSID: "x", Password: "y"}))
}

func TestStore_Erase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nvs.json")
	s, err := NewStore(path, nil)
	require.NoError(t, err)

	require.NoError(t, s.SetCredentials(Credentials{SSID: "HomeNet", Password: "p"}))
	require.NoError(t, s.Erase())

	assert.False(t, s.IsProvisioned())

	reopened, err := NewStore(path, nil)
	require.NoError(t, err)
	assert.False(t, reopened.IsProvisioned())
}

func TestStore_Delete(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Set("ssid", "HomeNet"))
	require.NoError(t, s.Delete("ssid"))
	_, ok := s.Get("ssid")
	assert.False(t, ok)
}

func TestStore_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nvs.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	s, err := NewStore(path, nil)
	require.NoError(t, err)
	assert.False(t, s.IsProvisioned())
}

func TestStore_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nvs.json")
	s, err := NewStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Set(KeyPassword, "secret"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
