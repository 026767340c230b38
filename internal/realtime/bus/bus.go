package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/docentkit/docentkit-backend/internal/platform/envutil"
	"github.com/docentkit/docentkit-backend/internal/platform/logger"
)

// StageEvent is one pipeline progress notification.
type StageEvent struct {
	ID        string    `json:"id"`
	ModuleID  string    `json:"module_id"`
	Stage     string    `json:"stage"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher fans pipeline stage events out over redis pub/sub so the
// surrounding application can stream build progress. A nil Publisher is a
// valid no-op.
type Publisher struct {
	log     *logger.Logger
	client  *redis.Client
	channel string
}

// NewPublisher connects using REDIS_ADDR / REDIS_PASSWORD / REDIS_DB /
// PIPELINE_EVENTS_CHANNEL.
func NewPublisher(log *logger.Logger) (*Publisher, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     envutil.String("REDIS_ADDR", "localhost:6379"),
		Password: envutil.String("REDIS_PASSWORD", ""),
		DB:       envutil.Int("REDIS_DB", 0),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Publisher{
		log:     log.With("service", "PipelineBus"),
		client:  client,
		channel: envutil.String("PIPELINE_EVENTS_CHANNEL", "pipeline:events"),
	}, nil
}

// PublishStage emits one stage event. Best-effort: publish failures are
// logged, never propagated into the pipeline.
func (p *Publisher) PublishStage(ctx context.Context, moduleID, stage, message string) {
	if p == nil || p.client == nil {
		return
	}
	ev := StageEvent{
		ID:        uuid.NewString(),
		ModuleID:  moduleID,
		Stage:     stage,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.log.Warn("stage event publish failed", "module_id", moduleID, "stage", stage, "error", err.Error())
	}
}

// Close releases the redis connection.
func (p *Publisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
