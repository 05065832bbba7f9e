// Package redis implements the frame buffer on Redis Streams, with a local
// journal fallback for outages on the capture side.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/statwatch-io/statwatch/internal/adapter/metrics"
	"github.com/statwatch-io/statwatch/internal/domain"
)

// FrameBuffer implements domain.FrameBuffer using Redis Streams.
// The journal is optional; pass nil on the consumer side.
type FrameBuffer struct {
	client      *redis.Client
	logger      *slog.Logger
	journal     domain.Journal
	metrics     *metrics.ListenerMetrics
	streamKey   string
	dlqKey      string
	isAvailable atomic.Bool
}

// NewFrameBuffer creates a Redis-backed frame buffer and ensures the consumer
// group exists. A failure to reach Redis at startup is not fatal: the buffer
// starts in the unavailable state and appends go to the journal until the
// health check sees Redis again. m may be nil on the consumer side.
func NewFrameBuffer(client *redis.Client, logger *slog.Logger, stream, dlqStream, group string, journal domain.Journal, m *metrics.ListenerMetrics) (*FrameBuffer, error) {
	buf := &FrameBuffer{
		client:    client,
		logger:    logger.With("component", "frame_buffer"),
		journal:   journal,
		metrics:   m,
		streamKey: stream,
		dlqKey:    dlqStream,
	}
	buf.isAvailable.Store(true)

	if err := buf.setupConsumerGroup(context.Background(), group); err != nil {
		buf.setAvailable(false)
		buf.logger.Error("Failed to setup consumer group, Redis may be unavailable on startup", "error", err)
	}

	return buf, nil
}

// setAvailable flips the availability flag and keeps the journal gauge in
// step. Returns true when the state actually changed.
func (b *FrameBuffer) setAvailable(up bool) bool {
	changed := b.isAvailable.CompareAndSwap(!up, up)
	if changed && b.metrics != nil && b.journal != nil {
		if up {
			b.metrics.WALActive.Set(0)
		} else {
			b.metrics.WALActive.Set(1)
		}
	}
	return changed
}

// StartHealthCheck monitors Redis connectivity and replays the journal into
// the stream when the connection recovers. Blocks until ctx is done.
func (b *FrameBuffer) StartHealthCheck(ctx context.Context, interval time.Duration) {
	if b.journal == nil {
		b.logger.Info("Journal is not configured, skipping health check/replayer")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	b.logger.Info("Starting Redis health check and journal replayer")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Stopping Redis health check")
			return
		case <-ticker.C:
			err := b.client.Ping(ctx).Err()
			if err != nil {
				if b.setAvailable(false) {
					b.logger.Error("Redis connection lost", "error", err)
				}
			} else {
				if b.setAvailable(true) {
					b.logger.Info("Redis connection recovered")
					if err := b.ReplayJournal(ctx); err != nil {
						b.logger.Error("Failed to replay journal after Redis recovery", "error", err)
						b.setAvailable(false)
					}
				}
			}
		}
	}
}

// ReplayJournal re-appends journaled frames to the stream and truncates the
// journal on success.
func (b *FrameBuffer) ReplayJournal(ctx context.Context) error {
	b.logger.Info("Attempting to replay journal to Redis")
	replayHandler := func(frame domain.RawFrame) error {
		return b.appendToStream(ctx, frame)
	}

	if err := b.journal.Replay(ctx, replayHandler); err != nil {
		return fmt.Errorf("journal replay failed: %w", err)
	}

	if err := b.journal.Truncate(ctx); err != nil {
		return fmt.Errorf("failed to truncate journal after successful replay: %w", err)
	}

	b.logger.Info("Journal replay to Redis completed successfully")
	return nil
}

func (b *FrameBuffer) setupConsumerGroup(ctx context.Context, group string) error {
	err := b.client.XGroupCreateMkStream(ctx, b.streamKey, group, "0").Err()
	if err != nil && !isRedisBusyGroupError(err) {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// Append adds a frame to the stream, falling back to the journal if Redis is
// unavailable. A frame accepted by the journal is durable and returns nil.
func (b *FrameBuffer) Append(ctx context.Context, frame domain.RawFrame) error {
	if !b.isAvailable.Load() {
		if b.journal == nil {
			return fmt.Errorf("redis is down and no journal is configured: %w", domain.ErrBufferUnavailable)
		}
		b.logger.Warn("Redis is unavailable, writing frame to journal", "frame_id", frame.ID)
		return b.journal.Append(ctx, frame)
	}

	err := b.appendToStream(ctx, frame)
	if err != nil {
		if isNetworkError(err) {
			if b.setAvailable(false) {
				b.logger.Error("Redis connection lost during write", "error", err)
			}
			if b.journal == nil {
				return fmt.Errorf("redis became unreachable and no journal is configured: %w", domain.ErrBufferUnavailable)
			}
			b.logger.Warn("Redis became unavailable, writing frame to journal", "frame_id", frame.ID)
			return b.journal.Append(ctx, frame)
		}
		return err
	}
	return nil
}

func (b *FrameBuffer) appendToStream(ctx context.Context, frame domain.RawFrame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: b.streamKey,
		Values: map[string]interface{}{"payload": payload},
	}

	if err := b.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to XADD to redis stream: %w", err)
	}
	return nil
}

// ReadBatch reads up to count frames from the stream for a consumer group.
func (b *FrameBuffer) ReadBatch(ctx context.Context, group, consumer string, count int) ([]domain.RawFrame, error) {
	args := &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{b.streamKey, ">"},
		Count:    int64(count),
		Block:    2 * time.Second,
	}

	streams, err := b.client.XReadGroup(ctx, args).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to XREADGROUP from redis: %w", err)
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}

	messages := streams[0].Messages
	frames := make([]domain.RawFrame, 0, len(messages))
	for _, msg := range messages {
		payload, ok := msg.Values["payload"].(string)
		if !ok {
			b.logger.Warn("Invalid message format in stream, skipping", "message_id", msg.ID)
			continue
		}

		var frame domain.RawFrame
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			b.logger.Warn("Failed to unmarshal frame from stream, skipping", "message_id", msg.ID, "error", err)
			continue
		}
		frame.StreamMessageID = msg.ID
		frames = append(frames, frame)
	}

	return frames, nil
}

// Acknowledge marks processed frames as done in the stream.
func (b *FrameBuffer) Acknowledge(ctx context.Context, group string, messageIDs ...string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if err := b.client.XAck(ctx, b.streamKey, group, messageIDs...).Err(); err != nil {
		return fmt.Errorf("failed to XACK frames in redis: %w", err)
	}
	return nil
}

// DeadLetter moves an undecodable frame to the dead-letter stream, tagged
// with the decode failure reason.
func (b *FrameBuffer) DeadLetter(ctx context.Context, frame domain.RawFrame, reason string) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to marshal frame for DLQ: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: b.dlqKey,
		Values: map[string]interface{}{
			"payload":         payload,
			"reason":          reason,
			"original_stream": b.streamKey,
			"original_msg_id": frame.StreamMessageID,
			"failed_at":       time.Now().UTC().Format(time.RFC3339),
		},
	}

	if err := b.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to XADD to DLQ stream: %w", err)
	}
	b.logger.Warn("Moved frame to DLQ", "frame_id", frame.ID, "reason", reason)
	return nil
}

func isRedisBusyGroupError(err error) bool {
	return err != nil && err.Error() == "BUSYGROUP Consumer Group name already exists"
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, redis.ErrClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
