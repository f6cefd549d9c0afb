package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/todoweb/server/internal/storage"
	"github.com/todoweb/server/types"
)

const exportContentType = "application/json"

// ErrExportDisabled is returned when no object storage backend is configured.
var ErrExportDisabled = errors.New("export storage not configured")

// ErrExportNotFound is returned when the owner has no stored snapshot.
var ErrExportNotFound = errors.New("export not found")

// ExportSnapshot is the JSON document written for an owner's todos.
type ExportSnapshot struct {
	UserID     int          `json:"user_id"`
	ExportedAt time.Time    `json:"exported_at"`
	Todos      []types.Todo `json:"todos"`
}

// ExportService writes and reads per-owner todo snapshots in object storage.
type ExportService struct {
	todos   TodoRepository
	objects storage.ObjectStorage
}

// NewExportService accepts a nil objects store; every call then fails with
// ErrExportDisabled.
func NewExportService(todos TodoRepository, objects storage.ObjectStorage) *ExportService {
	return &ExportService{todos: todos, objects: objects}
}

// ExportKey is the object key holding ownerID's snapshot.
func ExportKey(ownerID int) string {
	return fmt.Sprintf("exports/user-%d/todos.json", ownerID)
}

// Export snapshots the owner's current todos, replacing any previous snapshot.
func (s *ExportService) Export(ctx context.Context, ownerID int) (ExportSnapshot, error) {
	if s.objects == nil {
		return ExportSnapshot{}, ErrExportDisabled
	}

	todos, err := s.todos.ListByOwner(ctx, ownerID)
	if err != nil {
		return ExportSnapshot{}, fmt.Errorf("list todos: %w", err)
	}

	snapshot := ExportSnapshot{
		UserID:     ownerID,
		ExportedAt: time.Now().UTC(),
		Todos:      todos,
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return ExportSnapshot{}, err
	}

	key := ExportKey(ownerID)
	if err := s.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), exportContentType); err != nil {
		return ExportSnapshot{}, fmt.Errorf("put %s: %w", key, err)
	}
	return snapshot, nil
}

// Open returns a reader over the owner's stored snapshot.
func (s *ExportService) Open(ctx context.Context, ownerID int) (io.ReadCloser, error) {
	if s.objects == nil {
		return nil, ErrExportDisabled
	}

	rc, err := s.objects.Get(ctx, ExportKey(ownerID))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrExportNotFound
		}
		return nil, fmt.Errorf("get export: %w", err)
	}
	return rc, nil
}

func (s *ExportService) Delete(ctx context.Context, ownerID int) error {
	if s.objects == nil {
		return ErrExportDisabled
	}
	return s.objects.Delete(ctx, ExportKey(ownerID))
}
