package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/dbx"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, event *models.Event) (*models.Event, error) {
	query :=
		`INSERT INTO events (title, description, date, created_by)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		event.Title, optString(event.Description), event.Date, event.CreatedBy,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return event, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	query :=
		`SELECT id, title, description, date, created_by, image_url, created_at, updated_at
		 FROM events
		 WHERE id = $1
		 `

	return scanEvent(r.db.QueryRowContext(ctx, query, id))
}

// List passes a NULL limit when page.Limit is zero, which PostgreSQL treats as LIMIT ALL.
func (r *PostgresRepository) List(ctx context.Context, page models.Page) ([]models.Event, error) {
	query :=
		`SELECT id, title, description, date, created_by, image_url, created_at, updated_at
		 FROM events
		 ORDER BY date ASC, id ASC
		 LIMIT $1 OFFSET $2
		 `

	var limit any
	if page.Limit > 0 {
		limit = page.Limit
	}

	rows, err := r.db.QueryContext(ctx, query, limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, event *models.Event) (*models.Event, error) {
	query :=
		`UPDATE events
		 SET title = $1, description = $2, date = $3, updated_at = now()
		 WHERE id = $4 AND created_by = $5
		 RETURNING id, title, description, date, created_by, image_url, created_at, updated_at
		 `

	return scanEvent(r.db.QueryRowContext(ctx, query,
		event.Title, optString(event.Description), event.Date, event.ID, event.CreatedBy))
}

func (r *PostgresRepository) Delete(ctx context.Context, id, ownerID int64) error {
	query :=
		`DELETE FROM events
		 WHERE id = $1 AND created_by = $2
		 `

	res, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) SetImage(ctx context.Context, id, ownerID int64, imageURL string) (*models.Event, error) {
	query :=
		`UPDATE events
		 SET image_url = $1, updated_at = now()
		 WHERE id = $2 AND created_by = $3
		 RETURNING id, title, description, date, created_by, image_url, created_at, updated_at
		 `

	return scanEvent(r.db.QueryRowContext(ctx, query, imageURL, id, ownerID))
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (*models.Event, error) {
	var (
		e           models.Event
		description sql.NullString
		imageURL    sql.NullString
	)

	err := row.Scan(&e.ID, &e.Title, &description, &e.Date, &e.CreatedBy, &imageURL, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if description.Valid {
		e.Description = &description.String
	}
	if imageURL.Valid {
		e.ImageURL = &imageURL.String
	}
	return &e, nil
}

func optString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
