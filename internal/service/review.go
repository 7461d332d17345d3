package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ulasari/RentalGo/internal/domain"
	"github.com/ulasari/RentalGo/internal/event"
	"github.com/ulasari/RentalGo/internal/repository"
	apperrors "github.com/ulasari/RentalGo/pkg/errors"
)

const maxReviewCommentLen = 2000

// ReviewService implements the business logic for review operations. Rating
// aggregation is transactional inside the repository; this layer owns
// validation and ownership checks.
type ReviewService struct {
	repo     repository.ReviewRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(repo repository.ReviewRepository, producer *event.Producer, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

// CreateReviewInput holds the parameters for creating a review. A nil
// ReviewerID denotes an anonymous review.
type CreateReviewInput struct {
	PropertyID string
	BookingID  *string
	ReviewerID *string
	Rating     int
	Comment    string
}

// UpdateReviewInput holds the partial-update parameters for a review.
type UpdateReviewInput struct {
	Rating  *int
	Comment *string
}

// CreateReview validates and stores a review. One review per authenticated
// reviewer per property; duplicates surface as a conflict from the store.
func (s *ReviewService) CreateReview(ctx context.Context, input *CreateReviewInput) (*domain.Review, error) {
	if input.PropertyID == "" {
		return nil, apperrors.ValidationField("property_id", "is required")
	}
	if err := validateRating(input.Rating); err != nil {
		return nil, err
	}
	if len(input.Comment) > maxReviewCommentLen {
		return nil, apperrors.ValidationField("comment", fmt.Sprintf("must not exceed %d characters", maxReviewCommentLen))
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:         uuid.New().String(),
		PropertyID: input.PropertyID,
		BookingID:  input.BookingID,
		ReviewerID: input.ReviewerID,
		Rating:     input.Rating,
		Comment:    input.Comment,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	if err := s.producer.PublishReviewCreated(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.created event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("property_id", review.PropertyID),
		slog.Int("rating", review.Rating),
	)
	return review, nil
}

// GetReview retrieves a review by its ID.
func (s *ReviewService) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review by id: %w", err)
	}
	return review, nil
}

// UpdateReview applies a partial update. Only the reviewer or an admin may
// edit; anonymous reviews have no owner and are admin-only.
func (s *ReviewService) UpdateReview(ctx context.Context, callerID, callerRole, id string, input *UpdateReviewInput) (*domain.Review, error) {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review for update: %w", err)
	}
	if err := Allow(callerID, callerRole, review.ReviewerID); err != nil {
		return nil, err
	}

	if input.Rating != nil {
		if err := validateRating(*input.Rating); err != nil {
			return nil, err
		}
		review.Rating = *input.Rating
	}
	if input.Comment != nil {
		if len(*input.Comment) > maxReviewCommentLen {
			return nil, apperrors.ValidationField("comment", fmt.Sprintf("must not exceed %d characters", maxReviewCommentLen))
		}
		review.Comment = *input.Comment
	}
	review.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, review); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", review.ID),
	)
	return review, nil
}

// DeleteReview removes a review. Only the reviewer or an admin may delete.
func (s *ReviewService) DeleteReview(ctx context.Context, callerID, callerRole, id string) error {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get review for delete: %w", err)
	}
	if err := Allow(callerID, callerRole, review.ReviewerID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", id),
	)
	return nil
}

// ListReviews returns paginated reviews for a property with the total count.
func (s *ReviewService) ListReviews(ctx context.Context, propertyID string, page, perPage int) ([]domain.Review, int, error) {
	page, perPage = clampPagination(page, perPage)

	reviews, total, err := s.repo.ListByProperty(ctx, propertyID, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, total, nil
}

// LikeReview bumps the review's like counter.
func (s *ReviewService) LikeReview(ctx context.Context, id string) error {
	if err := s.repo.Like(ctx, id); err != nil {
		return fmt.Errorf("like review: %w", err)
	}
	return nil
}

// DislikeReview bumps the review's dislike counter.
func (s *ReviewService) DislikeReview(ctx context.Context, id string) error {
	if err := s.repo.Dislike(ctx, id); err != nil {
		return fmt.Errorf("dislike review: %w", err)
	}
	return nil
}

// GetSummary returns the average rating and review count for a property.
func (s *ReviewService) GetSummary(ctx context.Context, propertyID string) (*domain.ReviewSummary, error) {
	summary, err := s.repo.GetSummary(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("get review summary: %w", err)
	}
	return summary, nil
}

// RecalculateAllRatings rewrites the denormalized average rating on every
// property. Used by the bulk recompute binary.
func (s *ReviewService) RecalculateAllRatings(ctx context.Context) (int, error) {
	touched, err := s.repo.RecalculateAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("recalculate ratings: %w", err)
	}

	s.logger.InfoContext(ctx, "average ratings recalculated",
		slog.Int("properties", touched),
	)
	return touched, nil
}

func validateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return apperrors.ValidationField("rating", "must be between 1 and 5")
	}
	return nil
}
