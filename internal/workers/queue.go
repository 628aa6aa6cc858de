package workers

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/yoockh/callsplit/internal/models"
)

const (
	DefaultStream = "recordings:stream"
	DefaultGroup  = "recording-workers"
)

func StatusChannel(recordingID string) string { return "recording:" + recordingID + ":status" }

// StreamQueue enqueues recordings on a Redis stream.
type StreamQueue struct {
	Redis  *redis.Client
	Stream string
}

func (q *StreamQueue) Enqueue(ctx context.Context, rec *models.Recording) error {
	stream := q.Stream
	if stream == "" {
		stream = DefaultStream
	}
	return q.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			"recording_id": rec.RecordingID,
			"user_id":      rec.UserID,
		},
	}).Err()
}

type StatusEvent struct {
	Type        string `json:"type"`
	RecordingID string `json:"recording_id"`
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
}

type Publisher interface {
	PublishStatus(ctx context.Context, ev StatusEvent) error
}

type RedisPublisher struct {
	Redis *redis.Client
}

func (p *RedisPublisher) PublishStatus(ctx context.Context, ev StatusEvent) error {
	ev.Type = "status"
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.Redis.Publish(ctx, StatusChannel(ev.RecordingID), b).Err()
}

// StatusStream yields raw status payloads until closed.
type StatusStream interface {
	Messages() <-chan string
	Close() error
}

// RedisSubscriber subscribes to a recording's status channel. Subscribe
// returns only once Redis has confirmed the subscription.
type RedisSubscriber struct {
	Redis *redis.Client
}

func (s *RedisSubscriber) Subscribe(ctx context.Context, recordingID string) (StatusStream, error) {
	ps := s.Redis.Subscribe(ctx, StatusChannel(recordingID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	out := make(chan string)
	go func() {
		defer close(out)
		for m := range ps.Channel() {
			select {
			case out <- m.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()
	return &redisStream{ps: ps, out: out}, nil
}

type redisStream struct {
	ps  *redis.PubSub
	out chan string
}

func (r *redisStream) Messages() <-chan string { return r.out }
func (r *redisStream) Close() error            { return r.ps.Close() }
