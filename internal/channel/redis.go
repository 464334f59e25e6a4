package channel

import (
	"context"
	"encoding/json"
	"fmt"

	d "github.com/fjod/go_pos/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis carries messages over Redis pub/sub so the display can run as a separate process.
type Redis struct {
	client *redis.Client
	topic  string
	log    *zap.Logger
}

func NewRedis(client *redis.Client, registerID string, log *zap.Logger) *Redis {
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{client: client, topic: Topic(registerID), log: log}
}

func Topic(registerID string) string {
	return fmt.Sprintf("pos:display:%s", registerID)
}

func (r *Redis) Publish(ctx context.Context, msg d.ChannelMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal channel message failed: %w", err)
	}
	if err := r.client.Publish(ctx, r.topic, data).Err(); err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context) (<-chan d.ChannelMessage, error) {
	pubsub := r.client.Subscribe(ctx, r.topic)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe failed: %w", err)
	}

	out := make(chan d.ChannelMessage, subscriberBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()
		in := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-in:
				if !ok {
					return
				}
				var msg d.ChannelMessage
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					r.log.Warn("dropping malformed channel message", zap.String("topic", r.topic), zap.Error(err))
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
