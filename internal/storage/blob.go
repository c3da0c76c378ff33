package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// BlobStore holds the opaque byte payloads of file records, keyed by the
// object name recorded on each file. Folders never touch it.
type BlobStore interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	Download(ctx context.Context, objectName string) (io.ReadCloser, int64, error)
	Delete(ctx context.Context, objectName string) error
}

// MemoryBlobStore keeps payloads in a map. It backs the test suites; the
// server wires the MinIO implementation instead.
type MemoryBlobStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{objects: make(map[string][]byte)}
}

func (m *MemoryBlobStore) Upload(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectName] = data
	return nil
}

func (m *MemoryBlobStore) Download(_ context.Context, objectName string) (io.ReadCloser, int64, error) {
	m.mu.RLock()
	data, ok := m.objects[objectName]
	m.mu.RUnlock()
	if !ok {
		return nil, 0, fmt.Errorf("object %s not found", objectName)
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (m *MemoryBlobStore) Delete(_ context.Context, objectName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, objectName)
	return nil
}

// Len reports how many objects the store holds, for test assertions.
func (m *MemoryBlobStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
