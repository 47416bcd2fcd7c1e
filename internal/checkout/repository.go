package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AlanMedina53232/RawConnect/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

var ErrIdempotencyKeyNotFound = errors.New("no checkout session for idempotency key")

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// Session is the persisted saga state for one checkout attempt.
type Session struct {
	ID             string
	BuyerEmail     string
	IdempotencyKey string
	Status         domain.CheckoutStatus
	CartSnapshot   []byte
	TotalAmount    float64
	FailureReason  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	Processed   bool
	CreatedAt   time.Time
}

type RepoInterface interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSessionByIdempotencyKey(ctx context.Context, key string) (*Session, error)
	UpdateSessionStatus(ctx context.Context, id string, status domain.CheckoutStatus) error
	FailSession(ctx context.Context, id string, reason string) error
	CompleteSession(ctx context.Context, id string, eventPayload []byte) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
	GetAbandonedSessions(ctx context.Context, olderThan time.Duration) ([]*Session, error)
	RunMigrations(*Credentials) error
	Close() error
}

type Repository struct {
	db *sql.DB
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

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "checkout_schema_migrations",
	})
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

func (r *Repository) CreateSession(ctx context.Context, session *Session) error {
	query := `INSERT INTO checkout_sessions
	          (id, buyer_email, idempotency_key, status, cart_snapshot, total_amount, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.BuyerEmail,
		session.IdempotencyKey,
		session.Status,
		session.CartSnapshot,
		session.TotalAmount)
	if err != nil {
		return fmt.Errorf("insert checkout session: %w", err)
	}
	return nil
}

func (r *Repository) GetSessionByIdempotencyKey(ctx context.Context, key string) (*Session, error) {
	query := `SELECT id, buyer_email, idempotency_key, status, cart_snapshot, total_amount,
	                 COALESCE(failure_reason, ''), created_at, updated_at
	          FROM checkout_sessions WHERE idempotency_key = $1`

	var s Session
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&s.ID,
		&s.BuyerEmail,
		&s.IdempotencyKey,
		&s.Status,
		&s.CartSnapshot,
		&s.TotalAmount,
		&s.FailureReason,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIdempotencyKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session by idempotency key: %w", err)
	}
	return &s, nil
}

func (r *Repository) UpdateSessionStatus(ctx context.Context, id string, status domain.CheckoutStatus) error {
	query := `UPDATE checkout_sessions SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session status rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("checkout session %s not found", id)
	}
	return nil
}

func (r *Repository) FailSession(ctx context.Context, id string, reason string) error {
	query := `UPDATE checkout_sessions
	          SET status = $2, failure_reason = $3, updated_at = NOW()
	          WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, domain.CheckoutStatusFailed, reason)
	if err != nil {
		return fmt.Errorf("fail session: %w", err)
	}
	return nil
}

// CompleteSession marks the session COMPLETED and writes the outbox event
// in the same transaction, so a completed checkout always has its event.
func (r *Repository) CompleteSession(ctx context.Context, id string, eventPayload []byte) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin complete tx: %w", err)
	}
	defer tx.Rollback()

	updateQuery := `UPDATE checkout_sessions SET status = $2, updated_at = NOW() WHERE id = $1`
	if _, err := tx.ExecContext(ctx, updateQuery, id, domain.CheckoutStatusCompleted); err != nil {
		return fmt.Errorf("complete session: %w", err)
	}

	outboxQuery := `INSERT INTO outbox_events (aggregate_id, event_type, payload, processed, created_at)
	                VALUES ($1, $2, $3, FALSE, NOW())`
	if _, err := tx.ExecContext(ctx, outboxQuery, id, "checkout.completed", eventPayload); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit complete tx: %w", err)
	}
	return nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, processed, created_at
	          FROM outbox_events WHERE processed = FALSE
	          ORDER BY id ASC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query unprocessed events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.Processed, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	query := `UPDATE outbox_events SET processed = TRUE WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}
	return nil
}

// GetAbandonedSessions returns sessions stuck in a non-terminal status for
// longer than olderThan. These are checkouts the process died in the
// middle of; the poller marks them FAILED for reconciliation.
func (r *Repository) GetAbandonedSessions(ctx context.Context, olderThan time.Duration) ([]*Session, error) {
	query := `SELECT id, buyer_email, idempotency_key, status, cart_snapshot, total_amount,
	                 COALESCE(failure_reason, ''), created_at, updated_at
	          FROM checkout_sessions
	          WHERE status NOT IN ($1, $2) AND updated_at < NOW() - ($3 * INTERVAL '1 second')`

	rows, err := r.db.QueryContext(ctx, query,
		domain.CheckoutStatusCompleted,
		domain.CheckoutStatusFailed,
		int(olderThan.Seconds()))
	if err != nil {
		return nil, fmt.Errorf("query abandoned sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(
			&s.ID,
			&s.BuyerEmail,
			&s.IdempotencyKey,
			&s.Status,
			&s.CartSnapshot,
			&s.TotalAmount,
			&s.FailureReason,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan abandoned session: %w", err)
		}
		sessions = append(sessions, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return sessions, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
