package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/real-estate-ai/internal/apperror"
	"github.com/sakif/real-estate-ai/internal/model"
	"github.com/sakif/real-estate-ai/internal/repository"
)

const msgResponseNotFound = "Response not found"

// FeedbackService records thumbs-up/down votes on responses.
//
// Any authenticated user may vote on any response; one vote per user per
// response, the latest submission wins.
type FeedbackService struct {
	responses repository.ResponseRepository
	feedback  repository.FeedbackRepository
	logger    *slog.Logger
}

func NewFeedbackService(
	responses repository.ResponseRepository,
	feedback repository.FeedbackRepository,
	logger *slog.Logger,
) *FeedbackService {
	return &FeedbackService{responses: responses, feedback: feedback, logger: logger}
}

// Submit stores or overwrites the caller's vote on a response.
func (s *FeedbackService) Submit(ctx context.Context, userID, responseID int64, positive bool) (*model.Feedback, error) {
	if err := s.requireResponse(ctx, responseID); err != nil {
		return nil, err
	}

	fb := &model.Feedback{ResponseID: responseID, UserID: userID, IsPositive: positive}
	if err := s.feedback.UpsertFeedback(ctx, fb); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// response deleted between the check and the write
			return nil, apperror.NotFoundMessage(msgResponseNotFound)
		}
		return nil, fmt.Errorf("service/feedback: saving feedback: %w", err)
	}

	s.logger.Debug("feedback recorded",
		slog.Int64("userID", userID),
		slog.Int64("responseID", responseID),
		slog.Bool("positive", positive),
	)
	return fb, nil
}

// Stats aggregates every vote on a response plus the caller's own.
func (s *FeedbackService) Stats(ctx context.Context, userID, responseID int64) (*model.FeedbackStats, error) {
	if err := s.requireResponse(ctx, responseID); err != nil {
		return nil, err
	}

	stats, err := s.feedback.FeedbackStats(ctx, responseID, userID)
	if err != nil {
		return nil, fmt.Errorf("service/feedback: aggregating response %d: %w", responseID, err)
	}
	return stats, nil
}

func (s *FeedbackService) requireResponse(ctx context.Context, responseID int64) error {
	if _, err := s.responses.GetResponseByID(ctx, responseID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFoundMessage(msgResponseNotFound)
		}
		return fmt.Errorf("service/feedback: loading response %d: %w", responseID, err)
	}
	return nil
}
