package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sakif/real-estate-ai/internal/apperror"
	"github.com/sakif/real-estate-ai/internal/model"
	"github.com/sakif/real-estate-ai/internal/repository"
)

var _ repository.QueryRepository = (*DB)(nil)

// CreateQuery inserts q and fills ID/CreatedAt.
func (db *DB) CreateQuery(ctx context.Context, q *model.Query) error {
	q.CreatedAt = time.Now().UTC()

	err := db.queryRow(ctx,
		`INSERT INTO queries (user_id, query_text, city, district, property_type,
		                      lat, lon, beds, baths, area, year_built, asking_price, land_size, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		q.UserID,
		q.QueryText,
		nullString(q.City),
		nullString(q.District),
		nullString(q.PropertyType),
		nullFloat(q.Lat),
		nullFloat(q.Lon),
		nullInt(q.Beds),
		nullInt(q.Baths),
		nullFloat(q.Area),
		nullInt(q.YearBuilt),
		nullFloat(q.AskingPrice),
		nullFloat(q.LandSize),
		q.CreatedAt,
	).Scan(&q.ID)
	if err != nil {
		return fmt.Errorf("sqldb: inserting query for user %d: %w", q.UserID, err)
	}
	return nil
}

// GetQueryForUser returns the query only when userID owns it. A query owned
// by someone else is indistinguishable from a missing one.
func (db *DB) GetQueryForUser(ctx context.Context, id, userID int64) (*model.Query, error) {
	var (
		q                            model.Query
		city, district, propertyType sql.NullString
		lat, lon, area, asking, land sql.NullFloat64
		beds, baths, yearBuilt       sql.NullInt64
	)

	err := db.queryRow(ctx,
		`SELECT id, user_id, query_text, city, district, property_type,
		        lat, lon, beds, baths, area, year_built, asking_price, land_size, created_at
		 FROM queries WHERE id = ? AND user_id = ?`,
		id, userID,
	).Scan(
		&q.ID, &q.UserID, &q.QueryText, &city, &district, &propertyType,
		&lat, &lon, &beds, &baths, &area, &yearBuilt, &asking, &land, &q.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("query", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqldb: getting query %d: %w", id, err)
	}

	q.City = city.String
	q.District = district.String
	q.PropertyType = propertyType.String
	q.Lat = floatPtr(lat)
	q.Lon = floatPtr(lon)
	q.Beds = intPtr(beds)
	q.Baths = intPtr(baths)
	q.Area = floatPtr(area)
	q.YearBuilt = intPtr(yearBuilt)
	q.AskingPrice = floatPtr(asking)
	q.LandSize = floatPtr(land)

	return &q, nil
}

// ListQueriesForUser returns the user's queries newest first. id breaks
// ties between rows created within the same clock tick.
func (db *DB) ListQueriesForUser(ctx context.Context, userID int64, opts repository.ListOptions) ([]model.HistoryItem, error) {
	rows, err := db.query(ctx,
		`SELECT q.id, q.query_text, q.created_at,
		        EXISTS (SELECT 1 FROM responses r WHERE r.query_id = q.id)
		 FROM queries q
		 WHERE q.user_id = ?
		 ORDER BY q.created_at DESC, q.id DESC
		 LIMIT ? OFFSET ?`,
		userID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqldb: listing queries for user %d: %w", userID, err)
	}
	defer rows.Close()

	// Non-nil so an empty history encodes as [] rather than null.
	items := make([]model.HistoryItem, 0, opts.Limit)
	for rows.Next() {
		var it model.HistoryItem
		if err := rows.Scan(&it.ID, &it.QueryText, &it.CreatedAt, &it.HasResponse); err != nil {
			return nil, fmt.Errorf("sqldb: scanning query row: %w", err)
		}
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqldb: iterating query rows: %w", err)
	}

	return items, nil
}

// DeleteQuery removes a query; its response and feedback cascade.
// Used to undo a query whose response could not be stored.
func (db *DB) DeleteQuery(ctx context.Context, id int64) error {
	result, err := db.exec(ctx, `DELETE FROM queries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqldb: deleting query %d: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqldb: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("query", strconv.FormatInt(id, 10))
	}
	return nil
}
