package session

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/AbrahamRP97/neighnet-go/internal/models"
)

// Storage keys. Each one is an independent entry, mirroring the device
// key-value storage the mobile screens read from.
const (
	KeyToken    = "token"
	KeyUserID   = "userId"
	KeyUserName = "userName"
	KeyUserRole = "userRole"
	KeyTheme    = "theme"
)

// ErrNotFound indicates the requested key has no stored value.
var ErrNotFound = errors.New("session: key not found")

// Store persists session entries in a local sqlite database so credentials
// survive process restarts, the way the mobile app's async storage did.
type Store struct {
	db *sql.DB
}

// Open initialises the store at the provided path, creating parent
// directories and the backing table as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create session dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("ensure kv table: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the stored value for key, or ErrNotFound.
func (s *Store) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// Set stores or replaces a single entry.
func (s *Store) Set(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes a single entry. Missing keys are not an error.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// NormalizeToken strips an optional "Bearer " prefix so the stored credential
// is always the bare token.
func NormalizeToken(token string) string {
	token = strings.TrimSpace(token)
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}

// SaveLogin persists the credentials issued at login or registration
// verification success.
func (s *Store) SaveLogin(sess models.Session) error {
	entries := map[string]string{
		KeyToken:    NormalizeToken(sess.Token),
		KeyUserID:   sess.UserID,
		KeyUserName: sess.UserName,
		KeyUserRole: sess.UserRole,
	}
	for key, value := range entries {
		if err := s.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the current session. Missing entries come back as empty strings;
// callers check HasToken before issuing authenticated requests.
func (s *Store) Load() (models.Session, error) {
	sess := models.Session{}
	for key, dst := range map[string]*string{
		KeyToken:    &sess.Token,
		KeyUserID:   &sess.UserID,
		KeyUserName: &sess.UserName,
		KeyUserRole: &sess.UserRole,
	} {
		value, err := s.Get(key)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return models.Session{}, err
		}
		*dst = value
	}
	return sess, nil
}

// Clear wipes every stored entry, including the theme preference. Used at
// logout, account deletion, and session-invalid responses.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM kv`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
