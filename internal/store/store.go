// Package store implements the content-addressed filesystem document store.
// Documents are sharded into 256 fixed subdirectories named by the first
// two hex digits of the identifier's SHA-256 digest, split across two
// one-character directory levels.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/stackdown/stackdown/internal/archive"
)

const hexDigits = "0123456789abcdef"

// Config captures the parameters for the document store.
type Config struct {
	// BaseDir is the root directory of the archive.
	BaseDir string `mapstructure:"base_dir"`
}

// Store writes and enumerates markdown documents on the local filesystem.
type Store struct {
	baseDir string
	hasher  archive.Hasher
}

// New creates a filesystem-backed document store rooted at cfg.BaseDir.
func New(cfg Config, hasher archive.Hasher) (*Store, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if err := os.MkdirAll(cfg.BaseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}
	return &Store{baseDir: cfg.BaseDir, hasher: hasher}, nil
}

// HashID returns the lowercase hex SHA-256 digest of an article identifier.
func (s *Store) HashID(id string) (string, error) {
	digest, err := s.hasher.Hash([]byte(id))
	if err != nil {
		return "", fmt.Errorf("hash identifier: %w", err)
	}
	return digest, nil
}

// PathFor maps an identifier to its stable storage location. The sharding
// is fixed at the first two hex nibbles of the digest; WalkDocs depends on
// exactly this layout.
func (s *Store) PathFor(id string) (string, error) {
	digest, err := s.HashID(id)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, digest[0:1], digest[1:2], digest+".md"), nil
}

// Exists reports whether a document for the identifier is already stored.
func (s *Store) Exists(id string) (bool, error) {
	path, err := s.PathFor(id)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat document: %w", err)
}

// Write stores the document body for the identifier, creating parent
// directories as needed and overwriting any existing content.
func (s *Store) Write(id string, body string) error {
	path, err := s.PathFor(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create shard directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// Read returns the document stored under an already-known content hash.
func (s *Store) Read(hash string) (string, error) {
	if !validHash(hash) {
		return "", fmt.Errorf("invalid content hash %q", hash)
	}
	path := filepath.Join(s.baseDir, hash[0:1], hash[1:2], hash+".md")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return string(data), nil
}

// WalkDocs calls fn for every stored document across all 256 shards. A
// missing shard directory means zero documents in that shard, not an error.
// Enumeration restarts from scratch on every call.
func (s *Store) WalkDocs(fn func(name, body string) error) error {
	for i := 0; i < len(hexDigits); i++ {
		for j := 0; j < len(hexDigits); j++ {
			dir := filepath.Join(s.baseDir, hexDigits[i:i+1], hexDigits[j:j+1])
			entries, err := os.ReadDir(dir)
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return fmt.Errorf("read shard %s%s: %w", hexDigits[i:i+1], hexDigits[j:j+1], err)
			}
			for _, entry := range entries {
				if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
					continue
				}
				data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
				if err != nil {
					return fmt.Errorf("read document %s: %w", entry.Name(), err)
				}
				if err := fn(entry.Name(), string(data)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// validHash accepts exactly 64 lowercase hex characters, which also guards
// Read against path traversal.
func validHash(hash string) bool {
	if len(hash) != 64 {
		return false
	}
	for _, r := range hash {
		if !strings.ContainsRune(hexDigits, r) {
			return false
		}
	}
	return true
}
