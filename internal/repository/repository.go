package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	d "github.com/fjod/go_pos/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type Repository struct {
	db *sql.DB
}

// OutboxEvent is a journalled checkout event waiting to be published.
type OutboxEvent struct {
	ID          int
	EventID     string
	AggregateId string
	EventType   string
	Payload     json.RawMessage
	CreatedAt   time.Time
}

// DisplayAction is one entry of the customer display action log.
type DisplayAction struct {
	ID            int
	RegisterID    string
	TransactionID string
	ActionType    string
	ActionData    json.RawMessage
	CreatedAt     time.Time
}

type RepoInterface interface {
	Close() error
	RunMigrations(*Credentials) error
	Record(ctx context.Context, event d.CheckoutEvent) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int) error
	DeleteProcessedEvents(ctx context.Context, olderThan time.Time) (int64, error)
	ListDisplayActions(ctx context.Context, transactionID string) ([]*DisplayAction, error)
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Record journals the event into the outbox. Customer actions are also appended to the
// display action log. Recording the same event twice is a no-op.
func (r *Repository) Record(ctx context.Context, event d.CheckoutEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal checkout event failed: %w", err)
	}
	aggregate := event.TransactionID
	if aggregate == "" {
		aggregate = event.RegisterID
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO checkout_outbox (event_id, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id) DO NOTHING`,
		event.EventID, aggregate, string(event.Type), string(payload), event.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	if event.Type == d.EventCustomerAction {
		var action struct {
			Action string `json:"action"`
		}
		if err := json.Unmarshal(event.Payload, &action); err != nil {
			return fmt.Errorf("unmarshal customer action failed: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO display_actions (event_id, register_id, transaction_id, action_type, action_data, created_at)
			VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
			ON CONFLICT (event_id) DO NOTHING`,
			event.EventID, event.RegisterID, event.TransactionID, action.Action, string(event.Payload), event.OccurredAt)
		if err != nil {
			return fmt.Errorf("failed to insert display action: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_id, aggregate_id, event_type, payload, created_at
		FROM checkout_outbox
		WHERE processed_at IS NULL
		ORDER BY id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var ev OutboxEvent
		var payload []byte
		if err := rows.Scan(&ev.ID, &ev.EventID, &ev.AggregateId, &ev.EventType, &payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		ev.Payload = payload
		events = append(events, &ev)
	}
	return events, rows.Err()
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE checkout_outbox SET processed_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// DeleteProcessedEvents removes published events created before olderThan.
func (r *Repository) DeleteProcessedEvents(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM checkout_outbox
		WHERE processed_at IS NOT NULL AND created_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete processed events: %w", err)
	}
	return res.RowsAffected()
}

func (r *Repository) ListDisplayActions(ctx context.Context, transactionID string) ([]*DisplayAction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, register_id, COALESCE(transaction_id, ''), action_type, action_data, created_at
		FROM display_actions
		WHERE transaction_id = $1
		ORDER BY created_at, id`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query display actions: %w", err)
	}
	defer rows.Close()

	var actions []*DisplayAction
	for rows.Next() {
		var a DisplayAction
		var data []byte
		if err := rows.Scan(&a.ID, &a.RegisterID, &a.TransactionID, &a.ActionType, &data, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan display action: %w", err)
		}
		a.ActionData = data
		actions = append(actions, &a)
	}
	return actions, rows.Err()
}
