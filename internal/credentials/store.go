package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Sentinel errors
var (
	// ErrNoToken is returned when no credential is stored.
	ErrNoToken = errors.New("no credential stored")
)

// Storage persists the raw credential string.
type Storage interface {
	Load() (string, error)
	Save(token string) error
	Delete() error
}

// Store manages the authentication credential issued at login.
//
// Every read re-validates the credential; an expired or malformed credential is
// purged from storage as soon as it is detected.
type Store struct {
	storage Storage
	now     func() time.Time

	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a credential store on top of the given storage.
func NewStore(storage Storage, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFileStore creates a credential store persisted under baseDir.
// If baseDir is empty, uses ~/.photoshare/credentials/
func NewFileStore(baseDir string, opts ...Option) (*Store, error) {
	storage, err := NewFileStorage(baseDir)
	if err != nil {
		return nil, err
	}
	return NewStore(storage, opts...), nil
}

// Save stores a newly issued credential, replacing any previous one.
func (s *Store) Save(token string) error {
	if token == "" {
		return errors.New("refusing to save empty credential")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Save(token); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}

	log.Debug().Msg("credential saved")

	return nil
}

// Read returns the stored credential as-is.
// Returns ErrNoToken if none is stored.
func (s *Store) Read() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.storage.Load()
	if err != nil {
		return "", fmt.Errorf("failed to read credential: %w", err)
	}
	if token == "" {
		return "", ErrNoToken
	}

	return token, nil
}

// Clear removes the stored credential. Clearing an empty store is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Delete(); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}

	log.Debug().Msg("credential cleared")

	return nil
}

// IsValid reports whether token decodes to claims with an expiry in the future.
// Any parse failure is treated as invalid.
func (s *Store) IsValid(token string) bool {
	_, err := parseClaims(token, s.now())
	return err == nil
}

// Claims decodes the claims embedded in token. If token is absent, malformed
// or expired it returns false, and when token is the stored credential the
// store is cleared.
func (s *Store) Claims(token string) (*Claims, bool) {
	if token == "" {
		return nil, false
	}

	claims, err := parseClaims(token, s.now())
	if err == nil {
		return claims, true
	}

	log.Debug().Err(err).Msg("rejecting credential")

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, loadErr := s.storage.Load()
	if loadErr != nil || stored != token {
		return nil, false
	}

	if err := s.storage.Delete(); err != nil {
		log.Warn().Err(err).Msg("failed to purge invalid credential")
	}

	return nil, false
}

// Current reads the stored credential and validates it, purging it when invalid.
func (s *Store) Current() (*Claims, string, bool) {
	token, err := s.Read()
	if err != nil {
		if !errors.Is(err, ErrNoToken) {
			log.Warn().Err(err).Msg("credential store unreadable")
		}
		return nil, "", false
	}

	claims, ok := s.Claims(token)
	if !ok {
		return nil, "", false
	}

	return claims, token, true
}

// Token returns the stored credential only when it is still valid. An expired
// or malformed credential is purged and reported as absent.
func (s *Store) Token() (string, bool) {
	_, token, ok := s.Current()
	return token, ok
}

// config represents the credentials configuration file.
type config struct {
	Version int       `json:"version"`
	Token   string    `json:"token,omitempty"`
	SavedAt time.Time `json:"saved_at,omitempty"`
}

// FileStorage keeps the credential in a JSON file so it survives restarts.
type FileStorage struct {
	baseDir string
}

// NewFileStorage creates the credentials directory if needed.
// If baseDir is empty, uses ~/.photoshare/credentials/
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".photoshare", "credentials")
	}

	// Create directory with 0700 permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}

	log.Debug().Str("baseDir", baseDir).Msg("credential storage initialized")

	return &FileStorage{baseDir: baseDir}, nil
}

// Path returns the location of the config file.
func (f *FileStorage) Path() string {
	return filepath.Join(f.baseDir, "config.json")
}

// Load implements Storage. A missing file is an empty store.
func (f *FileStorage) Load() (string, error) {
	data, err := os.ReadFile(f.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read config: %w", err)
	}

	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		// A corrupt file holds no usable credential.
		log.Warn().Err(err).Str("path", f.Path()).Msg("ignoring unparsable credentials config")
		return "", nil
	}

	return cfg.Token, nil
}

// Save implements Storage.
func (f *FileStorage) Save(token string) error {
	return f.write(&config{
		Version: 1,
		Token:   token,
		SavedAt: time.Now().UTC(),
	})
}

// Delete implements Storage.
func (f *FileStorage) Delete() error {
	if err := os.Remove(f.Path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove config: %w", err)
	}
	return nil
}

// write stores the config file atomically.
func (f *FileStorage) write(cfg *config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write to temp file first
	configPath := f.Path()
	tempPath := configPath + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, configPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// MemoryStorage keeps the credential in process memory.
type MemoryStorage struct {
	mu    sync.Mutex
	token string
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryStorage) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStorage) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
