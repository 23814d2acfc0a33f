package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrArtifactNotFound is returned when an export id is unknown or expired.
var ErrArtifactNotFound = errors.New("export: artifact not found")

// Status tracks an asynchronous export.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// Artifact is a stored export. Data is only populated once Status is ready.
type Artifact struct {
	ID          string    `json:"id"`
	Status      Status    `json:"status"`
	Format      string    `json:"format"`
	Filename    string    `json:"filename,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Error       string    `json:"error,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
	Data        []byte    `json:"-"`
}

// Store keeps export artifacts in Redis with a TTL.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore constructs a Store. A non-positive ttl defaults to one hour.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{client: client, ttl: ttl}
}

func metaKey(id string) string { return "export:" + id + ":meta" }
func dataKey(id string) string { return "export:" + id + ":data" }

// Put writes the artifact metadata and, when present, its payload.
func (s *Store) Put(ctx context.Context, a Artifact) error {
	if a.ID == "" {
		return errors.New("export: artifact id required")
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now().UTC()
	}
	meta, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("export: encode artifact: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, metaKey(a.ID), meta, s.ttl)
		if len(a.Data) > 0 {
			pipe.Set(ctx, dataKey(a.ID), a.Data, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("export: store artifact %s: %w", a.ID, err)
	}
	return nil
}

// Get loads the artifact and its payload.
func (s *Store) Get(ctx context.Context, id string) (Artifact, error) {
	raw, err := s.client.Get(ctx, metaKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Artifact{}, ErrArtifactNotFound
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("export: load artifact %s: %w", id, err)
	}
	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return Artifact{}, fmt.Errorf("export: decode artifact %s: %w", id, err)
	}
	if a.Status != StatusReady {
		return a, nil
	}
	data, err := s.client.Get(ctx, dataKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Artifact{}, ErrArtifactNotFound
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("export: load artifact data %s: %w", id, err)
	}
	a.Data = data
	return a, nil
}
