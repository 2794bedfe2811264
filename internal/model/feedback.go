package model

import "time"

// Feedback is a user's thumbs-up/down on a Response. At most one row exists
// per (ResponseID, UserID); resubmitting overwrites IsPositive.
type Feedback struct {
	ID         int64     `json:"id"`
	ResponseID int64     `json:"response_id"`
	UserID     int64     `json:"-"`
	IsPositive bool      `json:"is_positive"`
	CreatedAt  time.Time `json:"created_at"`
}

// FeedbackStats aggregates every vote on a Response plus the caller's own.
// UserFeedback is nil when the caller has not voted.
type FeedbackStats struct {
	ResponseID   int64 `json:"response_id"`
	Total        int   `json:"total_feedback"`
	Positive     int   `json:"positive_feedback"`
	Negative     int   `json:"negative_feedback"`
	UserFeedback *bool `json:"user_feedback"`
}
