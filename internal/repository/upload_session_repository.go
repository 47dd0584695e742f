package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/sipodi-api/internal/models"
)

const (
	uploadSessionPrefix = "upload:session:"
	uploadOrphanIndex   = "upload:orphans"
)

// ErrUploadSessionNotFound is returned when the session expired, was consumed or never existed.
var ErrUploadSessionNotFound = errors.New("upload session not found")

// UploadSessionRepository keeps presigned upload sessions in Redis. Alongside each session the
// object key is tracked in a sorted set scored by the time after which an unattached object
// counts as orphaned.
type UploadSessionRepository struct {
	client *redis.Client
}

// NewUploadSessionRepository constructs the repository.
func NewUploadSessionRepository(client *redis.Client) *UploadSessionRepository {
	return &UploadSessionRepository{client: client}
}

// Save stores the session with ttl and schedules its object for orphan cleanup at orphanAt.
func (r *UploadSessionRepository) Save(ctx context.Context, session *models.UploadSession, ttl time.Duration, orphanAt time.Time) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal upload session: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, uploadSessionPrefix+session.ID, payload, ttl)
	pipe.ZAdd(ctx, uploadOrphanIndex, redis.Z{Score: float64(orphanAt.Unix()), Member: session.ObjectKey})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save upload session %s: %w", session.ID, err)
	}
	return nil
}

// Get loads a session.
func (r *UploadSessionRepository) Get(ctx context.Context, id string) (*models.UploadSession, error) {
	raw, err := r.client.Get(ctx, uploadSessionPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrUploadSessionNotFound
		}
		return nil, fmt.Errorf("get upload session %s: %w", id, err)
	}
	var session models.UploadSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal upload session %s: %w", id, err)
	}
	return &session, nil
}

// Release deletes the session. It reports false when another caller released it first.
func (r *UploadSessionRepository) Release(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Del(ctx, uploadSessionPrefix+id).Result()
	if err != nil {
		return false, fmt.Errorf("release upload session %s: %w", id, err)
	}
	return n > 0, nil
}

// Untrack removes an object key from the orphan index once it is attached or deleted.
func (r *UploadSessionRepository) Untrack(ctx context.Context, objectKey string) error {
	if err := r.client.ZRem(ctx, uploadOrphanIndex, objectKey).Err(); err != nil {
		return fmt.Errorf("untrack upload object %s: %w", objectKey, err)
	}
	return nil
}

// DueOrphans lists object keys whose orphan deadline passed.
func (r *UploadSessionRepository) DueOrphans(ctx context.Context, now time.Time, limit int64) ([]string, error) {
	keys, err := r.client.ZRangeByScore(ctx, uploadOrphanIndex, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list orphaned uploads: %w", err)
	}
	return keys, nil
}
