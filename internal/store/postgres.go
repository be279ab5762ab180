// Package store persists pending arrival alerts.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/randytsao24/busalert/internal/alerts"
	"github.com/randytsao24/busalert/internal/livetimes"
)

const schema = `
CREATE TABLE IF NOT EXISTS arrival_alerts (
  id           uuid PRIMARY KEY,
  stop_code    text NOT NULL,
  services     text NOT NULL,
  time_trigger integer NOT NULL CHECK (time_trigger >= 0),
  created_at   timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS arrival_alerts_created_at ON arrival_alerts (created_at);
`

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// Postgres keeps alerts in the arrival_alerts table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the table when it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (p *Postgres) PendingAlerts(ctx context.Context) ([]*alerts.ArrivalAlertRequest, error) {
	q := `SELECT id, stop_code, services, time_trigger, created_at FROM arrival_alerts ORDER BY created_at, id`
	rows, err := p.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []*alerts.ArrivalAlertRequest
	for rows.Next() {
		var r record
		if err := rows.Scan(&r.ID, &r.StopCode, &r.Services, &r.TimeTrigger, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a, err := r.alert()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	return out, nil
}

func (p *Postgres) AddAlert(ctx context.Context, a *alerts.ArrivalAlertRequest) error {
	r := newRecord(a)
	q := `INSERT INTO arrival_alerts (id, stop_code, services, time_trigger, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := p.db.ExecContext(ctx, q, r.ID, r.StopCode, r.Services, r.TimeTrigger, r.CreatedAt); err != nil {
		return fmt.Errorf("insert alert %s: %w", r.ID, err)
	}
	return nil
}

func (p *Postgres) RemoveAlerts(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	q, args := deleteQuery(ids)
	if _, err := p.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("delete alerts: %w", err)
	}
	return nil
}

func deleteQuery(ids []uuid.UUID) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	return "DELETE FROM arrival_alerts WHERE id IN (" + strings.Join(placeholders, ", ") + ")", args
}

// record is the stored form of an alert, shared by every store.
type record struct {
	ID          uuid.UUID `yaml:"id"`
	StopCode    string    `yaml:"stopCode"`
	Services    string    `yaml:"services"`
	TimeTrigger int       `yaml:"timeTrigger"`
	CreatedAt   time.Time `yaml:"createdAt"`
}

func newRecord(a *alerts.ArrivalAlertRequest) record {
	return record{
		ID:          a.ID,
		StopCode:    a.Stop.Code(),
		Services:    a.Services.String(),
		TimeTrigger: a.TimeTrigger,
		CreatedAt:   a.CreatedAt,
	}
}

func (r record) alert() (*alerts.ArrivalAlertRequest, error) {
	stop, err := livetimes.NewStopIdentifier(r.StopCode)
	if err != nil {
		return nil, fmt.Errorf("alert %s: %w", r.ID, err)
	}
	services := alerts.ParseServices(r.Services)
	if services.IsEmpty() {
		return nil, fmt.Errorf("alert %s: %w", r.ID, alerts.ErrNoServices)
	}
	if r.TimeTrigger < 0 {
		return nil, fmt.Errorf("alert %s: %w", r.ID, alerts.ErrInvalidTrigger)
	}
	return &alerts.ArrivalAlertRequest{
		ID:          r.ID,
		Stop:        stop,
		Services:    services,
		TimeTrigger: r.TimeTrigger,
		CreatedAt:   r.CreatedAt,
	}, nil
}
