package credstore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/scrypt"

	"github.com/gbaghdasaryan1/subscription-client/internal/domain"
)

const (
	keystoreFile = "keystore.bin"
	saltFile     = "keystore.salt"
	saltSize     = 16
)

// FileStore is an encrypted-at-rest keystore backed by a single file.
// Items are kept as a JSON map sealed with AES-256-GCM; the key is derived
// from a device secret with scrypt. Writes go through a temp file and
// rename so a crash never leaves a torn keystore.
type FileStore struct {
	mu  sync.Mutex
	dir string
	key []byte
}

// NewFileStore opens (or initializes) the keystore under dir, deriving the
// encryption key from secret. The salt is generated once and persisted next
// to the keystore.
func NewFileStore(dir, secret string) (*FileStore, error) {
	if secret == "" {
		return nil, errors.New("credstore: device secret must not be empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	salt, err := loadOrCreateSalt(filepath.Join(dir, saltFile))
	if err != nil {
		return nil, err
	}

	key, err := scrypt.Key([]byte(secret), salt, 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	return &FileStore{dir: dir, key: key}, nil
}

func loadOrCreateSalt(path string) ([]byte, error) {
	salt, err := os.ReadFile(path)
	if err == nil {
		if len(salt) != saltSize {
			return nil, fmt.Errorf("corrupt salt file %s", path)
		}
		return salt, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read salt: %w", err)
	}

	salt = make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	if err := os.WriteFile(path, salt, 0o600); err != nil {
		return nil, fmt.Errorf("write salt: %w", err)
	}
	return salt, nil
}

// SaveSession writes the token first and the profile second; a failure
// between the two leaves a token-only state that still authenticates.
func (s *FileStore) SaveSession(ctx context.Context, session *domain.Session) error {
	if session == nil || session.Token == "" {
		return errors.New("credstore: session token must not be empty")
	}

	if err := s.setItem(keyAuthToken, session.Token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	if session.User != nil {
		if err := s.setItem(keyUserData, session.User); err != nil {
			return fmt.Errorf("save profile: %w", err)
		}
	}
	return nil
}

// Token returns the stored bearer token or ErrNotFound.
func (s *FileStore) Token(ctx context.Context) (string, error) {
	var token string
	if err := s.getItem(keyAuthToken, &token); err != nil {
		return "", err
	}
	return token, nil
}

// Profile returns the cached user profile or ErrNotFound.
func (s *FileStore) Profile(ctx context.Context) (*domain.UserProfile, error) {
	var profile domain.UserProfile
	if err := s.getItem(keyUserData, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// IsAuthenticated reports token presence. Read failures count as not
// authenticated.
func (s *FileStore) IsAuthenticated(ctx context.Context) bool {
	token, err := s.Token(ctx)
	return err == nil && token != ""
}

// SaveSubscriptions caches the last fetched subscription snapshot.
func (s *FileStore) SaveSubscriptions(ctx context.Context, subs []domain.Subscription) error {
	return s.setItem(keySubscriptionData, subs)
}

// Subscriptions returns the cached subscription snapshot or ErrNotFound.
func (s *FileStore) Subscriptions(ctx context.Context) ([]domain.Subscription, error) {
	var subs []domain.Subscription
	if err := s.getItem(keySubscriptionData, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// ClearSession removes the token, profile, and cached subscriptions.
// The token goes first so any partial failure still reads as logged out.
func (s *FileStore) ClearSession(ctx context.Context) error {
	var errs []error
	for _, key := range []string{keyAuthToken, keyUserData, keySubscriptionData} {
		if err := s.deleteItem(key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// --- keystore file plumbing ---

func (s *FileStore) setItem(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	items[key] = raw

	return s.save(items)
}

func (s *FileStore) getItem(key string, out any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return err
	}

	raw, ok := items[key]
	if !ok {
		return ErrNotFound
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) deleteItem(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := items[key]; !ok {
		return nil
	}
	delete(items, key)

	return s.save(items)
}

func (s *FileStore) load() (map[string]json.RawMessage, error) {
	sealed, err := os.ReadFile(filepath.Join(s.dir, keystoreFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("read keystore: %w", err)
	}

	plain, err := s.open(sealed)
	if err != nil {
		return nil, err
	}

	items := map[string]json.RawMessage{}
	if err := json.Unmarshal(plain, &items); err != nil {
		return nil, fmt.Errorf("decode keystore: %w", err)
	}
	return items, nil
}

func (s *FileStore) save(items map[string]json.RawMessage) error {
	plain, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode keystore: %w", err)
	}

	sealed, err := s.seal(plain)
	if err != nil {
		return err
	}

	path := filepath.Join(s.dir, keystoreFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return fmt.Errorf("write keystore: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace keystore: %w", err)
	}
	return nil
}

func (s *FileStore) seal(plain []byte) ([]byte, error) {
	gcm, err := s.aead()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plain, nil), nil
}

func (s *FileStore) open(sealed []byte) ([]byte, error) {
	gcm, err := s.aead()
	if err != nil {
		return nil, err
	}

	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("keystore too short")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]

	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt keystore: %w", err)
	}
	return plain, nil
}

func (s *FileStore) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return gcm, nil
}
