// Package store provides the relational product catalog backing the
// evidence probes and the deterministic answer operations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	stderrors "banking-router/internal/common/errors"
	"banking-router/internal/common/logger"
	"banking-router/internal/models"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("RECORD_NOT_FOUND")

// Store answers scoped queries against the product catalog.
type Store struct {
	db  *sql.DB
	log logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Store {
	return &Store{db: db, log: log}
}

// CountRecords returns the number of products matching the scope. Empty
// scope dimensions match everything, the category match is prefix-based so
// "saving account" also matches "saving accounts".
func (s *Store) CountRecords(ctx context.Context, organization, category string) (int, error) {
	start := time.Now()

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM products
		WHERE ($1 = '' OR LOWER(organization) = LOWER($1))
		  AND ($2 = '' OR LOWER(category) LIKE LOWER($2) || '%')`,
		organization, category).Scan(&count)
	if err != nil {
		return 0, queryError(ctx, "count_records", err)
	}

	s.log.Debug("counted records", map[string]interface{}{
		"organization": organization,
		"category":     category,
		"count":        count,
		"duration_ms":  time.Since(start).Milliseconds(),
	})
	return count, nil
}

// ListRecords returns products matching the scope ordered by name. A zero
// limit means no limit.
func (s *Store) ListRecords(ctx context.Context, organization, category string, limit int) ([]models.Record, error) {
	query := `
		SELECT name, organization, category, attributes, summary
		FROM products
		WHERE ($1 = '' OR LOWER(organization) = LOWER($1))
		  AND ($2 = '' OR LOWER(category) LIKE LOWER($2) || '%')
		ORDER BY name`
	args := []interface{}{organization, category}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, queryError(ctx, "list_records", err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// FindByName looks up a single product by exact name, case-insensitive.
func (s *Store) FindByName(ctx context.Context, name string) (*models.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, organization, category, attributes, summary
		FROM products
		WHERE LOWER(name) = LOWER($1)`, name)

	var rec models.Record
	var attrs sql.NullString
	var summary sql.NullString
	err := row.Scan(&rec.Name, &rec.Organization, &rec.Category, &attrs, &summary)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, queryError(ctx, "find_by_name", err)
	}
	if attrs.Valid && attrs.String != "" {
		if jsonErr := json.Unmarshal([]byte(attrs.String), &rec.Attributes); jsonErr != nil {
			s.log.Warn("malformed attributes payload", map[string]interface{}{
				"product": rec.Name,
				"error":   jsonErr.Error(),
			})
		}
	}
	rec.Summary = summary.String
	return &rec, nil
}

// DistinctOrganizations returns every organization present in the catalog.
func (s *Store) DistinctOrganizations(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, `SELECT DISTINCT organization FROM products ORDER BY organization`)
}

// DistinctCategories returns every category present in the catalog.
func (s *Store) DistinctCategories(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, `SELECT DISTINCT category FROM products ORDER BY category`)
}

func (s *Store) distinct(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		if v != "" {
			values = append(values, v)
		}
	}
	return values, rows.Err()
}

// queryError classifies a database failure into the standard taxonomy so
// callers can distinguish timeouts from execution failures.
func queryError(ctx context.Context, queryType string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return stderrors.NewQueryTimeoutError(queryType)
	}
	return stderrors.NewQueryExecutionFailedError(queryType, err)
}

func scanRecord(rows *sql.Rows) (models.Record, error) {
	var rec models.Record
	var attrs sql.NullString
	var summary sql.NullString
	if err := rows.Scan(&rec.Name, &rec.Organization, &rec.Category, &attrs, &summary); err != nil {
		return rec, err
	}
	if attrs.Valid && attrs.String != "" {
		// Malformed attribute payloads degrade to a record without
		// attributes rather than failing the whole listing.
		_ = json.Unmarshal([]byte(attrs.String), &rec.Attributes)
	}
	rec.Summary = summary.String
	return rec, nil
}
