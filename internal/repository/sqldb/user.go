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

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, email, username, hashed_password, is_active, github_id, created_at`

// CreateUser inserts a new user. ID and CreatedAt are filled in place.
// A UNIQUE violation (email, username or github_id) becomes ErrConflict, so
// two concurrent signups for the same email can't both succeed.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.CreatedAt = time.Now().UTC()

	var githubID any
	if user.GitHubID != nil {
		githubID = *user.GitHubID
	}

	err := db.queryRow(ctx,
		`INSERT INTO users (email, username, hashed_password, is_active, github_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		user.Email,
		user.Username,
		user.HashedPassword,
		user.IsActive,
		githubID,
		user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ConflictMessage("User with this email or username already exists")
		}
		return fmt.Errorf("sqldb: inserting user %q: %w", user.Email, err)
	}

	return nil
}

// GetUserByID retrieves a user by primary key.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := db.scanUser(db.queryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqldb: getting user %d: %w", id, err)
	}
	return u, nil
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := db.scanUser(db.queryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqldb: getting user by email: %w", err)
	}
	return u, nil
}

func (db *DB) FindUserByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error) {
	u, err := db.scanUser(db.queryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? OR username = ? ORDER BY id LIMIT 1`,
		email, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqldb: finding user by email or username: %w", err)
	}
	return u, nil
}

func (db *DB) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	u, err := db.scanUser(db.queryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, githubID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("github user", strconv.FormatInt(githubID, 10))
		}
		return nil, fmt.Errorf("sqldb: getting user by github_id %d: %w", githubID, err)
	}
	return u, nil
}

// LinkGitHubID attaches a GitHub identity to an existing account.
func (db *DB) LinkGitHubID(ctx context.Context, userID, githubID int64) error {
	result, err := db.exec(ctx,
		`UPDATE users SET github_id = ? WHERE id = ?`, githubID, userID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("github user", strconv.FormatInt(githubID, 10))
		}
		return fmt.Errorf("sqldb: linking github_id for user %d: %w", userID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqldb: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("user", strconv.FormatInt(userID, 10))
	}
	return nil
}

func (db *DB) ExistsUsername(ctx context.Context, username string) (bool, error) {
	var n int
	if err := db.queryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE username = ?`, username).Scan(&n); err != nil {
		return false, fmt.Errorf("sqldb: checking username: %w", err)
	}
	return n > 0, nil
}

func (db *DB) scanUser(row *sql.Row) (*model.User, error) {
	var (
		u        model.User
		githubID sql.NullInt64
	)
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.HashedPassword,
		&u.IsActive,
		&githubID,
		&u.CreatedAt,
	); err != nil {
		return nil, err
	}
	if githubID.Valid {
		id := githubID.Int64
		u.GitHubID = &id
	}
	return &u, nil
}
