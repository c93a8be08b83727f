// The completion worker closes out finished stays: CONFIRMED
// reservations whose checkout date has passed are marked COMPLETED and
// a reservation.completed event is published.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/hotel-reservations/internal/adapters/crdb"
	mongoadapter "github.com/robertarktes/hotel-reservations/internal/adapters/mongo"
	"github.com/robertarktes/hotel-reservations/internal/adapters/rabbit"
	"github.com/robertarktes/hotel-reservations/internal/booking"
	"github.com/robertarktes/hotel-reservations/internal/config"
	"github.com/robertarktes/hotel-reservations/internal/domain"
	"github.com/robertarktes/hotel-reservations/internal/observability"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	rabbitPub, err := rabbit.NewPublisher(conn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	audit := mongoadapter.NewAuditLogger(mongoClient.Database("hotel"), logger)

	worker := NewCompletionWorker(repo, rabbitPub, audit, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Run(ctx, cfg.CompletionInterval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown completion worker")
}

type CompletionWorker struct {
	repo      *crdb.Repository
	rabbitPub *rabbit.Publisher
	audit     booking.AuditLog
	logger    observability.Logger
}

func NewCompletionWorker(repo *crdb.Repository, rabbitPub *rabbit.Publisher, audit booking.AuditLog, logger observability.Logger) *CompletionWorker {
	return &CompletionWorker{repo: repo, rabbitPub: rabbitPub, audit: audit, logger: logger}
}

func (w *CompletionWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			stays, err := w.repo.FinishedStays(ctx, domain.DateOnly(now))
			if err != nil {
				w.logger.Error("failed to fetch finished stays", err)
				continue
			}
			for _, res := range stays {
				if err := w.completeWithRetry(ctx, res); err != nil {
					w.logger.Error("failed to complete reservation after retries", err)
				}
			}
		}
	}
}

func (w *CompletionWorker) completeWithRetry(ctx context.Context, res domain.Reservation) error {
	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		if err := w.repo.MarkCompleted(ctx, res.ID); err != nil {
			if domain.IsNotFound(err) {
				// Already completed or cancelled since the fetch.
				return nil
			}
			backoff := time.Duration(1<<i) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}

		observability.ReservationStatusChanges.WithLabelValues(string(domain.StatusCompleted)).Inc()

		res.Status = domain.StatusCompleted
		if w.audit != nil {
			if err := w.audit.Record(ctx, "reservation.completed", &res); err != nil {
				w.logger.Error("failed to record audit entry", err)
			}
		}

		payload, _ := json.Marshal(map[string]interface{}{
			"reservation_id": res.ID,
			"room_id":        res.RoomID,
		})
		msg := amqp.Publishing{
			MessageId:   uuid.New().String(),
			ContentType: "application/json",
			Body:        payload,
		}
		return w.rabbitPub.Publish(ctx, "reservation.completed", msg)
	}
	return fmt.Errorf("failed after %d retries", maxRetries)
}
