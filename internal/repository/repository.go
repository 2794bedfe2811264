// Package repository declares the persistence contracts the service layer
// depends on. Implementations live in sub-packages (see sqldb).
//
// Every "not found" is reported as an apperror.ErrNotFound so services can
// match it with errors.Is without knowing the storage engine.
package repository

import (
	"context"

	"github.com/sakif/real-estate-ai/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

type UserRepository interface {
	// CreateUser inserts user and fills ID/CreatedAt. A duplicate email,
	// username or GitHub ID yields apperror.ErrConflict.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// FindUserByEmailOrUsername returns the first user matching either field.
	FindUserByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	LinkGitHubID(ctx context.Context, userID, githubID int64) error
	ExistsUsername(ctx context.Context, username string) (bool, error)
}

type QueryRepository interface {
	CreateQuery(ctx context.Context, q *model.Query) error
	// GetQueryForUser only returns the query when userID owns it.
	GetQueryForUser(ctx context.Context, id, userID int64) (*model.Query, error)
	// ListQueriesForUser returns newest first.
	ListQueriesForUser(ctx context.Context, userID int64, opts ListOptions) ([]model.HistoryItem, error)
	DeleteQuery(ctx context.Context, id int64) error
}

type ResponseRepository interface {
	CreateResponse(ctx context.Context, resp *model.Response) error
	GetResponseByID(ctx context.Context, id int64) (*model.Response, error)
	GetResponseByQueryID(ctx context.Context, queryID int64) (*model.Response, error)
}

type FeedbackRepository interface {
	// UpsertFeedback inserts or overwrites the (ResponseID, UserID) vote and
	// fills ID/CreatedAt from the stored row.
	UpsertFeedback(ctx context.Context, fb *model.Feedback) error
	FeedbackStats(ctx context.Context, responseID, userID int64) (*model.FeedbackStats, error)
}
