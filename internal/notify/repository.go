package notify

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Delivery kinds.
const (
	KindScheduled = "scheduled"
	KindManual    = "manual"
)

// Delivery statuses.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Delivery is one recorded send attempt.
type Delivery struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Destination string    `json:"destination"`
	RangeStart  time.Time `json:"range_start"`
	RangeEnd    time.Time `json:"range_end"`
	SentAt      time.Time `json:"sent_at"`
	Status      string    `json:"status"`
	HTTPStatus  int       `json:"http_status,omitempty"`
	Error       string    `json:"error,omitempty"`
	Text        string    `json:"text"`
}

// DeliveryRepository stores delivery history.
type DeliveryRepository interface {
	Create(ctx context.Context, d *Delivery) error
	List(ctx context.Context, limit int) ([]Delivery, error)
}

// sentAtLayout is fixed width so sent_at sorts as text.
const sentAtLayout = "2006-01-02T15:04:05.000000000Z"

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// SQLiteDeliveryRepository stores deliveries in report_deliveries.
type SQLiteDeliveryRepository struct {
	db *sql.DB
}

// NewSQLiteDeliveryRepository creates a repository over db.
func NewSQLiteDeliveryRepository(db *sql.DB) *SQLiteDeliveryRepository {
	return &SQLiteDeliveryRepository{db: db}
}

// Create inserts d. ID and SentAt are generated if empty.
func (r *SQLiteDeliveryRepository) Create(ctx context.Context, d *Delivery) error {
	if d.ID == "" {
		d.ID = "dlv-" + uuid.NewString()
	}
	if d.SentAt.IsZero() {
		d.SentAt = time.Now().UTC()
	}

	var httpStatus any
	if d.HTTPStatus != 0 {
		httpStatus = d.HTTPStatus
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO report_deliveries
		   (id, kind, destination, range_start, range_end, sent_at, status, http_status, error, text)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Kind, d.Destination,
		d.RangeStart.UTC().Format(time.RFC3339),
		d.RangeEnd.UTC().Format(time.RFC3339),
		d.SentAt.UTC().Format(sentAtLayout),
		d.Status, httpStatus, nullableString(d.Error), d.Text,
	)
	if err != nil {
		return fmt.Errorf("inserting delivery: %w", err)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns the most recent deliveries first. limit is clamped to
// [1, 500] with 50 used for non-positive values.
func (r *SQLiteDeliveryRepository) List(ctx context.Context, limit int) ([]Delivery, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, destination, range_start, range_end, sent_at, status, http_status, error, text
		 FROM report_deliveries
		 ORDER BY sent_at DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying deliveries: %w", err)
	}
	defer rows.Close()

	out := []Delivery{}
	for rows.Next() {
		var (
			d                          Delivery
			rangeStart, rangeEnd, sent string
			httpStatus                 sql.NullInt64
			errText                    sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.Kind, &d.Destination, &rangeStart, &rangeEnd, &sent,
			&d.Status, &httpStatus, &errText, &d.Text); err != nil {
			return nil, fmt.Errorf("scanning delivery: %w", err)
		}

		if d.RangeStart, err = time.Parse(time.RFC3339, rangeStart); err != nil {
			return nil, fmt.Errorf("parsing range_start %q: %w", rangeStart, err)
		}
		if d.RangeEnd, err = time.Parse(time.RFC3339, rangeEnd); err != nil {
			return nil, fmt.Errorf("parsing range_end %q: %w", rangeEnd, err)
		}
		if d.SentAt, err = time.Parse(sentAtLayout, sent); err != nil {
			return nil, fmt.Errorf("parsing sent_at %q: %w", sent, err)
		}
		if httpStatus.Valid {
			d.HTTPStatus = int(httpStatus.Int64)
		}
		if errText.Valid {
			d.Error = errText.String
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating deliveries: %w", err)
	}
	return out, nil
}
