package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/real-estate-ai/internal/model"
	"github.com/sakif/real-estate-ai/internal/repository"
)

var _ repository.FeedbackRepository = (*DB)(nil)

// UpsertFeedback stores the caller's vote on a response.
//
// INSERT ... ON CONFLICT DO UPDATE is one atomic statement on both engines,
// backed by the UNIQUE (response_id, user_id) index, so two concurrent
// submissions can never leave two rows. The first created_at is kept on
// update.
func (db *DB) UpsertFeedback(ctx context.Context, fb *model.Feedback) error {
	err := db.queryRow(ctx,
		`INSERT INTO feedback (response_id, user_id, is_positive, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (response_id, user_id) DO UPDATE SET is_positive = excluded.is_positive
		 RETURNING id`,
		fb.ResponseID,
		fb.UserID,
		fb.IsPositive,
		time.Now().UTC(),
	).Scan(&fb.ID)
	if err != nil {
		return fmt.Errorf("sqldb: upserting feedback (response=%d user=%d): %w", fb.ResponseID, fb.UserID, err)
	}

	// Read created_at from the table so the column type drives decoding.
	if err := db.queryRow(ctx,
		`SELECT created_at FROM feedback WHERE id = ?`, fb.ID,
	).Scan(&fb.CreatedAt); err != nil {
		return fmt.Errorf("sqldb: reading feedback %d: %w", fb.ID, err)
	}
	return nil
}

// FeedbackStats counts every vote on responseID and looks up userID's own.
func (db *DB) FeedbackStats(ctx context.Context, responseID, userID int64) (*model.FeedbackStats, error) {
	stats := &model.FeedbackStats{ResponseID: responseID}

	err := db.queryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN is_positive THEN 1 ELSE 0 END), 0)
		 FROM feedback WHERE response_id = ?`,
		responseID,
	).Scan(&stats.Total, &stats.Positive)
	if err != nil {
		return nil, fmt.Errorf("sqldb: counting feedback for response %d: %w", responseID, err)
	}
	stats.Negative = stats.Total - stats.Positive

	var mine bool
	err = db.queryRow(ctx,
		`SELECT is_positive FROM feedback WHERE response_id = ? AND user_id = ?`,
		responseID, userID,
	).Scan(&mine)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// caller hasn't voted; UserFeedback stays nil
	case err != nil:
		return nil, fmt.Errorf("sqldb: getting own feedback for response %d: %w", responseID, err)
	default:
		stats.UserFeedback = &mine
	}

	return stats, nil
}
