// Package provision persists device provisioning credentials in a small
// key-value store, mirroring the NVS namespace the device class uses for
// Wi-Fi onboarding. A device is provisioned once a non-empty SSID is stored;
// the captive portal writes ssid, password, and ws_url, then the runtime
// restarts into the provisioned boot path.
package provision

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/c360/sduiterm/config"
	errs "github.com/c360/sduiterm/errors"
	"github.com/c360/sduiterm/pkg/retry"
)

// Well-known credential keys
const (
	KeySSID     = "ssid"
	KeyPassword = "password"
	KeyWSURL    = "ws_url"
)

// Credentials is the provisioned credential set
type Credentials struct {
	SSID     string `json:"ssid"`
	Password string `json:"password"`
	WSURL    string `json:"ws_url"`
}

// Store is a file-backed key-value store for provisioning data. All writes
// persist immediately; a device reset must not lose captured credentials.
type Store struct {
	path   string
	mu     sync.RWMutex
	values map[string]string
	logger *slog.Logger
}

// NewStore opens the store at path, loading existing values if present
func NewStore(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, errs.WrapInvalid(
			fmt.Errorf("empty store path"),
			"Store", "NewStore", "open provisioning store")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		path:   path,
		values: make(map[string]string),
		logger: logger,
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, errs.WrapFatal(err, "Store", "NewStore", "read provisioning store")
	}

	if err := json.Unmarshal(data, &s.values); err != nil {
		// A corrupt store means re-provisioning, not a boot loop
		logger.Warn("Provisioning store corrupt, starting empty",
			"path", path, "error", err)
		s.values = make(map[string]string)
	}

	return s, nil
}

// Get returns the value for key
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[key]
	return val, ok
}

// Set stores and persists a single value
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.persistLocked()
}

// Delete removes and persists a single key
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return s.persistLocked()
}

// Erase wipes all stored values. Factory reset path.
func (s *Store) Erase() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
	return s.persistLocked()
}

// IsProvisioned reports whether a non-empty SSID has been stored
func (s *Store) IsProvisioned() bool {
	ssid, ok := s.Get(KeySSID)
	return ok && ssid != ""
}

// Credentials returns the stored credential set
func (s *Store) Credentials() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Credentials{
		SSID:     s.values[KeySSID],
		Password: s.values[KeyPassword],
		WSURL:    s.values[KeyWSURL],
	}
}

// SetCredentials validates and persists a full credential set. The websocket
// URL may be empty when the server address comes from configuration instead.
func (s *Store) SetCredentials(creds Credentials) error {
	if creds.SSID == "" {
		return errs.WrapInvalid(
			fmt.Errorf("empty ssid"),
			"Store", "SetCredentials", "persist credentials")
	}
	if creds.WSURL != "" {
		if err := config.ValidateServerURL(creds.WSURL); err != nil {
			return errs.WrapInvalid(err, "Store", "SetCredentials", "validate ws_url")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[KeySSID] = creds.SSID
	s.values[KeyPassword] = creds.Password
	s.values[KeyWSURL] = creds.WSURL
	if err := s.persistLocked(); err != nil {
		return err
	}

	s.logger.Info("Credentials provisioned", "ssid", creds.SSID)
	return nil
}

// persistLocked writes the store to disk with a bounded retry; flash-backed
// filesystems fail writes transiently. Caller holds the write lock.
func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return errs.WrapFatal(err, "Store", "persist", "marshal provisioning store")
	}

	return retry.Do(context.Background(), errs.DefaultRetryConfig().ToRetryConfig(), func() error {
		tmp := s.path + ".tmp"
		if err := os.WriteFile(tmp, data, 0600); err != nil {
			return errs.WrapTransient(err, "Store", "persist", "write provisioning store")
		}
		if err := os.Rename(tmp, s.path); err != nil {
			return errs.WrapTransient(err, "Store", "persist", "replace provisioning store")
		}
		return nil
	})
}
