// Package outbox drains reservation lifecycle events from the outbox
// table to the rabbit topic exchange.
package outbox

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/hotel-reservations/internal/adapters/crdb"
	"github.com/robertarktes/hotel-reservations/internal/adapters/rabbit"
	"github.com/robertarktes/hotel-reservations/internal/observability"
)

type Publisher struct {
	repo      *crdb.Repository
	rabbitPub *rabbit.Publisher
	logger    observability.Logger
}

func NewPublisher(repo *crdb.Repository, rabbitPub *rabbit.Publisher, logger observability.Logger) *Publisher {
	return &Publisher{repo: repo, rabbitPub: rabbitPub, logger: logger}
}

func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.drain(ctx)
		}
	}
}

func (p *Publisher) drain(ctx context.Context) {
	records, err := p.repo.UnpublishedOutbox(ctx, 10)
	if err != nil {
		p.logger.Error("failed to fetch outbox records", err)
		return
	}
	for _, rec := range records {
		msg := amqp.Publishing{
			MessageId:   rec.DedupeKey,
			ContentType: "application/json",
			Body:        rec.Payload,
		}
		if err := p.rabbitPub.Publish(ctx, rec.EventType, msg); err != nil {
			observability.RabbitPublishRetries.Inc()
			p.logger.Error("failed to publish outbox record", err)
			continue
		}
		observability.OutboxLag.Set(time.Since(rec.CreatedAt).Seconds())
		if err := p.repo.MarkPublished(ctx, rec.ID, time.Now()); err != nil {
			p.logger.Error("failed to mark outbox record published", err)
		}
	}
}
