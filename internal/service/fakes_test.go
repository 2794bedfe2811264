package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/sakif/real-estate-ai/internal/analysis"
	"github.com/sakif/real-estate-ai/internal/apperror"
	"github.com/sakif/real-estate-ai/internal/model"
	"github.com/sakif/real-estate-ai/internal/repository"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================
//
// In-memory repositories. Each fake has error fields that, when set, make
// the matching method fail the way a broken database would.

var errDBDown = errors.New("database is on fire")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserRepo struct {
	users  map[int64]*model.User
	nextID int64

	createErr error
	findErr   error
	// beforeCreate runs once, ahead of the next CreateUser, to stage a
	// concurrent writer.
	beforeCreate func()
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*model.User), nextID: 1}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *model.User) error {
	if hook := f.beforeCreate; hook != nil {
		f.beforeCreate = nil
		hook()
	}
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.users {
		sameGitHub := u.GitHubID != nil && user.GitHubID != nil && *u.GitHubID == *user.GitHubID
		if u.Email == user.Email || u.Username == user.Username || sameGitHub {
			return apperror.ConflictMessage(msgUserExists)
		}
	}
	user.ID = f.nextID
	f.nextID++
	user.CreatedAt = time.Now()
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) FindUserByEmailOrUsername(_ context.Context, email, username string) (*model.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, u := range f.users {
		if u.Email == email || u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) GetUserByGitHubID(_ context.Context, githubID int64) (*model.User, error) {
	for _, u := range f.users {
		if u.GitHubID != nil && *u.GitHubID == githubID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("github user", strconv.FormatInt(githubID, 10))
}

func (f *fakeUserRepo) LinkGitHubID(_ context.Context, userID, githubID int64) error {
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("user", strconv.FormatInt(userID, 10))
	}
	u.GitHubID = &githubID
	return nil
}

func (f *fakeUserRepo) ExistsUsername(_ context.Context, username string) (bool, error) {
	for _, u := range f.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

type fakeQueryRepo struct {
	queries   map[int64]*model.Query
	responded map[int64]bool
	nextID    int64
	deleted   []int64

	createErr error
	listErr   error
	lastOpts  repository.ListOptions
}

func newFakeQueryRepo() *fakeQueryRepo {
	return &fakeQueryRepo{
		queries:   make(map[int64]*model.Query),
		responded: make(map[int64]bool),
		nextID:    1,
	}
}

func (f *fakeQueryRepo) CreateQuery(_ context.Context, q *model.Query) error {
	if f.createErr != nil {
		return f.createErr
	}
	q.ID = f.nextID
	f.nextID++
	q.CreatedAt = time.Now().Add(time.Duration(q.ID) * time.Second)
	copied := *q
	f.queries[q.ID] = &copied
	return nil
}

func (f *fakeQueryRepo) GetQueryForUser(_ context.Context, id, userID int64) (*model.Query, error) {
	q, ok := f.queries[id]
	if !ok || q.UserID != userID {
		return nil, apperror.NotFound("query", strconv.FormatInt(id, 10))
	}
	copied := *q
	return &copied, nil
}

func (f *fakeQueryRepo) ListQueriesForUser(_ context.Context, userID int64, opts repository.ListOptions) ([]model.HistoryItem, error) {
	f.lastOpts = opts
	if f.listErr != nil {
		return nil, f.listErr
	}
	items := []model.HistoryItem{}
	for _, q := range f.queries {
		if q.UserID == userID {
			items = append(items, model.HistoryItem{
				ID: q.ID, QueryText: q.QueryText, CreatedAt: q.CreatedAt, HasResponse: f.responded[q.ID],
			})
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	if len(items) > opts.Limit {
		items = items[:opts.Limit]
	}
	return items, nil
}

func (f *fakeQueryRepo) DeleteQuery(_ context.Context, id int64) error {
	if _, ok := f.queries[id]; !ok {
		return apperror.NotFound("query", strconv.FormatInt(id, 10))
	}
	delete(f.queries, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeResponseRepo struct {
	responses map[int64]*model.Response
	nextID    int64
	queries   *fakeQueryRepo // marks HasResponse when set

	createErr error
	getErr    error
}

func newFakeResponseRepo(queries *fakeQueryRepo) *fakeResponseRepo {
	return &fakeResponseRepo{responses: make(map[int64]*model.Response), nextID: 1, queries: queries}
}

func (f *fakeResponseRepo) CreateResponse(_ context.Context, resp *model.Response) error {
	if f.createErr != nil {
		return f.createErr
	}
	resp.ID = f.nextID
	f.nextID++
	resp.CreatedAt = time.Now()
	copied := *resp
	f.responses[resp.ID] = &copied
	if f.queries != nil {
		f.queries.responded[resp.QueryID] = true
	}
	return nil
}

func (f *fakeResponseRepo) GetResponseByID(_ context.Context, id int64) (*model.Response, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	r, ok := f.responses[id]
	if !ok {
		return nil, apperror.NotFound("response", strconv.FormatInt(id, 10))
	}
	copied := *r
	return &copied, nil
}

func (f *fakeResponseRepo) GetResponseByQueryID(_ context.Context, queryID int64) (*model.Response, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, r := range f.responses {
		if r.QueryID == queryID {
			copied := *r
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("response for query", strconv.FormatInt(queryID, 10))
}

type feedbackKey struct{ responseID, userID int64 }

type fakeFeedbackRepo struct {
	rows   map[feedbackKey]*model.Feedback
	nextID int64

	upsertErr error
}

func newFakeFeedbackRepo() *fakeFeedbackRepo {
	return &fakeFeedbackRepo{rows: make(map[feedbackKey]*model.Feedback), nextID: 1}
}

func (f *fakeFeedbackRepo) UpsertFeedback(_ context.Context, fb *model.Feedback) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	key := feedbackKey{fb.ResponseID, fb.UserID}
	if existing, ok := f.rows[key]; ok {
		existing.IsPositive = fb.IsPositive
		*fb = *existing
		return nil
	}
	fb.ID = f.nextID
	f.nextID++
	fb.CreatedAt = time.Now()
	copied := *fb
	f.rows[key] = &copied
	return nil
}

func (f *fakeFeedbackRepo) FeedbackStats(_ context.Context, responseID, userID int64) (*model.FeedbackStats, error) {
	stats := &model.FeedbackStats{ResponseID: responseID}
	for key, fb := range f.rows {
		if key.responseID != responseID {
			continue
		}
		stats.Total++
		if fb.IsPositive {
			stats.Positive++
		} else {
			stats.Negative++
		}
		if key.userID == userID {
			v := fb.IsPositive
			stats.UserFeedback = &v
		}
	}
	return stats, nil
}

// fakeAnalyzer returns a canned Result and records the features it saw.
type fakeAnalyzer struct {
	result *analysis.Result
	calls  int
	got    model.Features
}

func (f *fakeAnalyzer) Run(_ context.Context, feats model.Features) *analysis.Result {
	f.calls++
	f.got = feats
	return f.result
}
