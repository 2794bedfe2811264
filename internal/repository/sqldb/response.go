package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sakif/real-estate-ai/internal/apperror"
	"github.com/sakif/real-estate-ai/internal/model"
	"github.com/sakif/real-estate-ai/internal/repository"
)

var _ repository.ResponseRepository = (*DB)(nil)

// CreateResponse inserts resp and fills ID/CreatedAt. Provenance is stored
// as a JSON array in a TEXT column on both engines.
func (db *DB) CreateResponse(ctx context.Context, resp *model.Response) error {
	provenance := resp.Provenance
	if provenance == nil {
		provenance = []model.Provenance{}
	}
	encoded, err := json.Marshal(provenance)
	if err != nil {
		return fmt.Errorf("sqldb: encoding provenance: %w", err)
	}

	resp.CreatedAt = time.Now().UTC()

	err = db.queryRow(ctx,
		`INSERT INTO responses (query_id, estimated_price, location_score, deal_verdict,
		                        why, confidence, provenance, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		resp.QueryID,
		resp.EstimatedPrice,
		resp.LocationScore,
		resp.DealVerdict,
		resp.Why,
		resp.Confidence,
		string(encoded),
		resp.CreatedAt,
	).Scan(&resp.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("response for query", strconv.FormatInt(resp.QueryID, 10))
		}
		return fmt.Errorf("sqldb: inserting response for query %d: %w", resp.QueryID, err)
	}
	return nil
}

func (db *DB) GetResponseByID(ctx context.Context, id int64) (*model.Response, error) {
	r, err := scanResponse(db.queryRow(ctx,
		`SELECT id, query_id, estimated_price, location_score, deal_verdict, why,
		        confidence, provenance, created_at
		 FROM responses WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("response", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqldb: getting response %d: %w", id, err)
	}
	return r, nil
}

func (db *DB) GetResponseByQueryID(ctx context.Context, queryID int64) (*model.Response, error) {
	r, err := scanResponse(db.queryRow(ctx,
		`SELECT id, query_id, estimated_price, location_score, deal_verdict, why,
		        confidence, provenance, created_at
		 FROM responses WHERE query_id = ?`, queryID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("response for query", strconv.FormatInt(queryID, 10))
		}
		return nil, fmt.Errorf("sqldb: getting response for query %d: %w", queryID, err)
	}
	return r, nil
}

func scanResponse(row *sql.Row) (*model.Response, error) {
	var (
		r          model.Response
		provenance string
	)
	if err := row.Scan(
		&r.ID,
		&r.QueryID,
		&r.EstimatedPrice,
		&r.LocationScore,
		&r.DealVerdict,
		&r.Why,
		&r.Confidence,
		&provenance,
		&r.CreatedAt,
	); err != nil {
		return nil, err
	}

	r.Provenance = []model.Provenance{}
	if provenance != "" {
		if err := json.Unmarshal([]byte(provenance), &r.Provenance); err != nil {
			return nil, fmt.Errorf("decoding provenance of response %d: %w", r.ID, err)
		}
	}
	return &r, nil
}
