package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/eduhub/course-service/internal/models"
	"github.com/eduhub/course-service/internal/repositories"
	"github.com/eduhub/course-service/internal/validator"
)

type discussionService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	now       func() time.Time
}

func NewDiscussionService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) DiscussionService {
	return &discussionService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		now:       time.Now,
	}
}

// Create stores the discussion and links it from the lesson in one transaction.
func (s *discussionService) Create(ctx context.Context, course *models.Course, lessonID, authorID uuid.UUID, req *CreateDiscussionRequest) (*models.Discussion, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if _, err := course.FindLesson(lessonID); err != nil {
		return nil, ErrLessonNotFound
	}

	discussion := &models.Discussion{
		Belong:  authorID,
		Title:   req.Title,
		Content: req.Content,
		Replies: []models.Reply{},
		LikedBy: []uuid.UUID{},
	}
	var fresh *models.Course
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Discussion().Create(ctx, nil, discussion); err != nil {
			return fmt.Errorf("create discussion: %w", err)
		}
		var err error
		fresh, err = tx.Course().GetByIDForUpdate(ctx, nil, course.ID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrCourseNotFound
			}
			return fmt.Errorf("lock course: %w", err)
		}
		if err := fresh.AttachDiscussion(lessonID, discussion.ID); err != nil {
			return contentError(err)
		}
		if err := tx.Course().Update(ctx, nil, fresh); err != nil {
			return fmt.Errorf("link discussion to lesson: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	*course = *fresh

	s.logger.Info("Discussion created", "discussion_id", discussion.ID, "lesson_id", lessonID)
	return discussion, nil
}

func (s *discussionService) ListByLesson(ctx context.Context, course *models.Course, lessonID uuid.UUID) ([]*models.Discussion, error) {
	lesson, err := course.FindLesson(lessonID)
	if err != nil {
		return nil, ErrLessonNotFound
	}
	if len(lesson.DiscussionIDs) == 0 {
		return []*models.Discussion{}, nil
	}
	discussions, err := s.repo.Discussion().GetByIDs(ctx, nil, lesson.DiscussionIDs)
	if err != nil {
		return nil, fmt.Errorf("list lesson discussions: %w", err)
	}
	return discussions, nil
}

func (s *discussionService) List(ctx context.Context, filters repositories.DiscussionFilters) (*DiscussionListResponse, error) {
	discussions, total, err := s.repo.Discussion().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("list discussions: %w", err)
	}
	return &DiscussionListResponse{Discussions: discussions, Total: total}, nil
}

func (s *discussionService) Reply(ctx context.Context, discussion *models.Discussion, userID uuid.UUID, req *ReplyRequest) (*models.Discussion, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	err := s.mutate(ctx, discussion, func(d *models.Discussion) {
		d.AddReply(userID, req.Content, s.now())
	})
	if err != nil {
		return nil, err
	}
	return discussion, nil
}

func (s *discussionService) ToggleLike(ctx context.Context, discussion *models.Discussion, userID uuid.UUID) (*LikeResult, error) {
	var liked bool
	err := s.mutate(ctx, discussion, func(d *models.Discussion) {
		liked = d.ToggleLike(userID)
	})
	if err != nil {
		return nil, err
	}
	return &LikeResult{
		Liked:   liked,
		Likes:   discussion.Likes,
		LikedBy: discussion.LikedBy,
	}, nil
}

// Delete removes the discussion and pulls its id from every lesson that
// references it.
func (s *discussionService) Delete(ctx context.Context, discussionID uuid.UUID) error {
	detached := 0
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if _, err := tx.Discussion().GetByID(ctx, nil, discussionID); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrDiscussionNotFound
			}
			return fmt.Errorf("load discussion: %w", err)
		}

		courses, err := tx.Course().ListByDiscussionID(ctx, nil, discussionID)
		if err != nil {
			return fmt.Errorf("find referencing courses: %w", err)
		}
		for _, found := range courses {
			course, err := tx.Course().GetByIDForUpdate(ctx, nil, found.ID)
			if err != nil {
				if repositories.IsNotFoundError(err) {
					continue
				}
				return fmt.Errorf("lock course: %w", err)
			}
			if !course.DetachDiscussion(discussionID) {
				continue
			}
			if err := tx.Course().Update(ctx, nil, course); err != nil {
				return fmt.Errorf("unlink discussion: %w", err)
			}
			detached++
		}

		if err := tx.Discussion().Delete(ctx, nil, discussionID); err != nil {
			return fmt.Errorf("delete discussion: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Discussion deleted", "discussion_id", discussionID, "courses_updated", detached)
	return nil
}

// mutate applies change to the discussion reloaded under a row lock and writes
// it back in the same transaction. On success discussion holds the stored state.
func (s *discussionService) mutate(ctx context.Context, discussion *models.Discussion, change func(*models.Discussion)) error {
	var fresh *models.Discussion
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		var err error
		fresh, err = tx.Discussion().GetByIDForUpdate(ctx, nil, discussion.ID)
		if err != nil {
			return err
		}
		change(fresh)
		return tx.Discussion().Update(ctx, nil, fresh)
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrDiscussionNotFound
		}
		return fmt.Errorf("save discussion: %w", err)
	}
	*discussion = *fresh
	return nil
}
