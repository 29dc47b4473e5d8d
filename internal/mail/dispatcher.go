package mail

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Dispatcher enqueues outbound mail onto a redis stream. Actual delivery is
// handled by an out-of-process consumer; the API never blocks on SMTP.
type Dispatcher struct {
	client *redis.Client
	stream string
	from   string
	log    zerolog.Logger
}

func NewDispatcher(client *redis.Client, stream string, from string, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		client: client,
		stream: stream,
		from:   from,
		log:    log,
	}
}

func (d *Dispatcher) SendMFACode(ctx context.Context, email string, code string) error {
	return d.enqueue(ctx, map[string]any{
		"type": "mfa_code",
		"to":   email,
		"from": d.from,
		"code": code,
	})
}

func (d *Dispatcher) enqueue(ctx context.Context, payload map[string]any) error {
	if d.client == nil {
		return nil
	}
	_, err := d.client.XAdd(ctx, &redis.XAddArgs{
		Stream: d.stream,
		Values: payload,
	}).Result()
	if err != nil {
		return fmt.Errorf("enqueue mail: %w", err)
	}
	return nil
}
