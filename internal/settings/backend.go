package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"chefsite/internal/database"
)

// SQLBackend keeps the document as one row of the documents table.
type SQLBackend struct {
	db  *database.DB
	key string
}

func NewSQLBackend(db *database.DB) *SQLBackend {
	return &SQLBackend{db: db, key: DocumentKey}
}

func (b *SQLBackend) Read(ctx context.Context) ([]byte, error) {
	doc, err := b.db.GetDocument(ctx, b.key)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, err
	}
	return doc.Body, nil
}

func (b *SQLBackend) Write(ctx context.Context, data []byte) error {
	return b.db.PutDocument(ctx, b.key, CurrentVersion, data)
}

// FileBackend keeps the document in a JSON file, replaced by rename.
type FileBackend struct {
	path string
	mu   sync.Mutex
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (b *FileBackend) Read(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoDocument
	}
	return data, err
}

func (b *FileBackend) Write(ctx context.Context, data []byte) (err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("error creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("error writing settings: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("error syncing settings: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("error closing settings: %w", err)
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("error replacing settings: %w", err)
	}
	return nil
}

// MemoryBackend keeps the document in process memory.
type MemoryBackend struct {
	mu   sync.RWMutex
	data []byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (b *MemoryBackend) Read(ctx context.Context) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.data == nil {
		return nil, ErrNoDocument
	}
	return append([]byte(nil), b.data...), nil
}

func (b *MemoryBackend) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	b.data = append([]byte(nil), data...)
	b.mu.Unlock()
	return nil
}
