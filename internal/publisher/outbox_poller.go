package publisher

import (
	"context"
	"time"

	r "github.com/fjod/go_pos/internal/repository"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const Topic = "checkout-outbox"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxPoller publishes journalled checkout events to Kafka and prunes published ones.
type OutboxPoller struct {
	timeout   time.Duration
	eventTick time.Duration
	pruneTick time.Duration
	retention time.Duration
	batch     int
	repo      r.RepoInterface
	writer    messageWriter
	log       *zap.Logger
}

func NewOutboxPoller(repo r.RepoInterface, log *zap.Logger, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OutboxPoller{
		timeout:   5 * time.Second,
		eventTick: time.Second,
		pruneTick: time.Hour,
		retention: 7 * 24 * time.Hour,
		batch:     100,
		repo:      repo,
		writer:    w,
		log:       log,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	pruneTicker := time.NewTicker(p.pruneTick)
	defer eventTicker.Stop()
	defer pruneTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-pruneTicker.C:
			p.pruneProcessedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, p.batch)
	if err != nil {
		p.log.Warn("failed to fetch outbox events", zap.Error(err))
		return
	}

	for _, event := range events {
		if err := p.publishToKafka(ctx, event); err != nil {
			p.log.Warn("failed to publish outbox event", zap.Int("id", event.ID), zap.Error(err))
			// keep ordering per aggregate: stop and retry the rest on the next tick
			return
		}
		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.log.Warn("failed to mark outbox event as processed", zap.Int("id", event.ID), zap.Error(err))
			continue
		}
	}
}

func (p *OutboxPoller) pruneProcessedEvents(ctx context.Context) {
	n, err := p.repo.DeleteProcessedEvents(ctx, time.Now().Add(-p.retention))
	if err != nil {
		p.log.Warn("failed to prune processed outbox events", zap.Error(err))
		return
	}
	if n > 0 {
		p.log.Info("pruned processed outbox events", zap.Int64("deleted", n))
	}
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event *r.OutboxEvent) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.AggregateId), // transaction id keeps a sale's events ordered
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
