package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/keywarden/go-keywarden/ucan"
)

const (
	keyPairsFile    = "keypairs.json"
	tokensFile      = "tokens.json"
	revocationsFile = "revocations.json"
	keysFile        = "keys.json"
)

// FileStore persists each state category to a JSON file in a directory.
// Writes go to a temporary file which is renamed over the target, so a
// partially written file is never observed.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates the data directory if it does not exist.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (fs *FileStore) LoadKeyPairs() (map[string]ucan.KeyPair, error) {
	return loadFile[ucan.KeyPair](fs, keyPairsFile)
}

func (fs *FileStore) SaveKeyPairs(m map[string]ucan.KeyPair) error {
	return saveFile(fs, keyPairsFile, m)
}

func (fs *FileStore) LoadTokens() (map[string]ucan.Token, error) {
	return loadFile[ucan.Token](fs, tokensFile)
}

func (fs *FileStore) SaveTokens(m map[string]ucan.Token) error {
	return saveFile(fs, tokensFile, m)
}

func (fs *FileStore) LoadRevocations() (map[string]ucan.Revocation, error) {
	return loadFile[ucan.Revocation](fs, revocationsFile)
}

func (fs *FileStore) SaveRevocations(m map[string]ucan.Revocation) error {
	return saveFile(fs, revocationsFile, m)
}

func (fs *FileStore) LoadKeys() (map[string]Key, error) {
	return loadFile[Key](fs, keysFile)
}

func (fs *FileStore) SaveKeys(m map[string]Key) error {
	return saveFile(fs, keysFile, m)
}

func (fs *FileStore) Close() error {
	return nil
}

func loadFile[T any](fs *FileStore, name string) (map[string]T, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(fs.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]T{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	out := map[string]T{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return out, nil
}

func saveFile[T any](fs *FileStore, name string, m map[string]T) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	path := filepath.Join(fs.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}
