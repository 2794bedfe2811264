// Package service holds the business rules of the API. It sits between the
// HTTP handlers and the repositories:
//
//	Handler (HTTP) → Service (business rules) → Repository (DB)
//
// Services return *apperror.AppError for every failure a client can act on
// (bad input, missing resource, bad credentials). Anything else is wrapped
// with a "service/<name>:" prefix and becomes a 500 at the handler boundary.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/real-estate-ai/internal/apperror"
	"github.com/sakif/real-estate-ai/internal/auth"
	"github.com/sakif/real-estate-ai/internal/model"
	"github.com/sakif/real-estate-ai/internal/repository"
)

const (
	msgUserExists         = "User with this email or username already exists"
	msgBadCredentials     = "Incorrect email or password"
	msgAccountDeactivated = "User account is deactivated"
)

// AuthService handles sign-up, login and GitHub sign-in.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository → read/write user records
//   - tokens     *auth.TokenService        → issue bearer tokens
//   - passwords  *auth.PasswordService     → bcrypt hashing
//   - minPassword                          → configured minimum length
type AuthService struct {
	users       repository.UserRepository
	tokens      *auth.TokenService
	passwords   *auth.PasswordService
	minPassword int
	logger      *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	minPasswordLength int,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:       users,
		tokens:      tokens,
		passwords:   passwords,
		minPassword: minPasswordLength,
		logger:      logger,
	}
}

// AuthResult bundles the user and the issued bearer token so the handler
// can respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Signup creates a password account and issues a token.
//
// The duplicate check runs before the password rules, so a taken email is
// reported even when the password is also too short.
func (s *AuthService) Signup(ctx context.Context, email, username, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.ValidationFailed("username", "Username must not be blank")
	}

	existing, err := s.users.FindUserByEmailOrUsername(ctx, email, username)
	switch {
	case err == nil && existing != nil:
		return nil, apperror.ConflictMessage(msgUserExists)
	case err != nil && !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: checking existing user: %w", err)
	}

	if len([]rune(password)) < s.minPassword {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("Password must be at least %d characters long", s.minPassword))
	}
	if len(password) > auth.MaxPasswordBytes {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("Password must be at most %d bytes long", auth.MaxPasswordBytes))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{
		Email:          email,
		Username:       username,
		HashedPassword: hash,
		IsActive:       true,
	}
	// CreateUser reports a race with another sign-up as ErrConflict.
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ConflictMessage(msgUserExists)
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user signed up",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)

	return s.issue(user)
}

// Login verifies an email/password pair.
//
// Unknown emails still pay for a bcrypt comparison so response time does
// not reveal which addresses are registered. The active flag is checked
// only after the password matched.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.passwords.VerifyDummy(password)
			return nil, apperror.Unauthenticated(msgBadCredentials)
		}
		return nil, fmt.Errorf("service/auth: loading user: %w", err)
	}

	// GitHub-only accounts have no password hash.
	if user.HashedPassword == "" {
		s.passwords.VerifyDummy(password)
		return nil, apperror.Unauthenticated(msgBadCredentials)
	}

	if err := s.passwords.Verify(user.HashedPassword, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("stored password hash unusable",
				slog.Int64("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperror.Unauthenticated(msgBadCredentials)
	}

	if !user.IsActive {
		return nil, apperror.ValidationFailed("", msgAccountDeactivated)
	}

	return s.issue(user)
}

// LoginOrRegisterGitHub signs in the owner of a GitHub profile.
//
//  1. A user already linked to the GitHub ID signs in directly.
//  2. Otherwise a password account with the same email is linked.
//  3. Otherwise a new account is created. A taken username gets a short
//     random suffix; a hidden email becomes the GitHub noreply address.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil || gh.ID == 0 {
		return nil, errors.New("service/auth: GitHub user must not be empty")
	}

	user, err := s.users.GetUserByGitHubID(ctx, gh.ID)
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrNotFound):
		user, err = s.linkOrCreateGitHubUser(ctx, gh)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("service/auth: loading GitHub user %d: %w", gh.ID, err)
	}

	if !user.IsActive {
		return nil, apperror.ValidationFailed("", msgAccountDeactivated)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.Int64("userID", user.ID),
		slog.String("login", gh.Login),
	)

	return s.issue(user)
}

func (s *AuthService) linkOrCreateGitHubUser(ctx context.Context, gh *auth.GitHubUser) (*model.User, error) {
	email := normalizeEmail(gh.Email)
	if email == "" {
		email = fmt.Sprintf("%d+%s@users.noreply.github.com", gh.ID, strings.ToLower(gh.Login))
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.users.LinkGitHubID(ctx, existing.ID, gh.ID); err != nil {
			return nil, fmt.Errorf("service/auth: linking GitHub ID %d: %w", gh.ID, err)
		}
		existing.GitHubID = &gh.ID
		return existing, nil
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: loading user by email: %w", err)
	}

	username, err := s.freeUsername(ctx, gh.Login)
	if err != nil {
		return nil, err
	}

	ghID := gh.ID
	user := &model.User{
		Email:    email,
		Username: username,
		IsActive: true,
		GitHubID: &ghID,
	}
	err = s.users.CreateUser(ctx, user)
	if errors.Is(err, apperror.ErrConflict) {
		// Another first sign-in won the race: reuse its account, or take
		// a fresh suffix if it only claimed the username.
		if winner, lerr := s.users.GetUserByGitHubID(ctx, gh.ID); lerr == nil {
			return winner, nil
		}
		user.Username = withSuffix(usernameBase(gh.Login))
		err = s.users.CreateUser(ctx, user)
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: creating GitHub user: %w", err)
	}
	return user, nil
}

func (s *AuthService) freeUsername(ctx context.Context, login string) (string, error) {
	base := usernameBase(login)

	taken, err := s.users.ExistsUsername(ctx, base)
	if err != nil {
		return "", fmt.Errorf("service/auth: checking username: %w", err)
	}
	if !taken {
		return base, nil
	}
	return withSuffix(base), nil
}

func usernameBase(login string) string {
	if base := strings.TrimSpace(login); base != "" {
		return base
	}
	return "github"
}

// withSuffix appends the last six characters of a new xid.
func withSuffix(base string) string {
	id := xid.New().String()
	return base + "-" + id[len(id)-6:]
}

// GetUserByID returns the user for the given ID.
func (s *AuthService) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	if id <= 0 {
		return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: fetching user %d: %w", id, err)
	}
	return user, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(strconv.FormatInt(user.ID, 10))
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %d: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
