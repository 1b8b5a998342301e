package access

import (
	"context"

	"github.com/google/uuid"

	"github.com/eduhub/course-service/internal/models"
	"github.com/eduhub/course-service/internal/repositories"
)

// Store is the read-only storage the evaluator consults. Every lookup returns
// an error wrapping repositories.ErrNotFound when nothing matches.
type Store interface {
	CourseByID(ctx context.Context, id uuid.UUID) (*models.Course, error)
	CourseByLessonID(ctx context.Context, lessonID uuid.UUID) (*models.Course, error)
	CourseByDiscussionID(ctx context.Context, discussionID uuid.UUID) (*models.Course, error)
	CourseByModuleID(ctx context.Context, moduleID uuid.UUID) (*models.Course, error)
	ModuleExists(ctx context.Context, moduleID uuid.UUID) (bool, error)
	DiscussionByID(ctx context.Context, id uuid.UUID) (*models.Discussion, error)
	QuizByID(ctx context.Context, id uuid.UUID) (*models.Quiz, error)
}

type repositoryStore struct {
	repo repositories.Repository
}

// NewRepositoryStore reads straight from the repositories; nothing is cached.
func NewRepositoryStore(repo repositories.Repository) Store {
	return &repositoryStore{repo: repo}
}

func (s *repositoryStore) CourseByID(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	return s.repo.Course().GetByID(ctx, nil, id)
}

func (s *repositoryStore) CourseByLessonID(ctx context.Context, lessonID uuid.UUID) (*models.Course, error) {
	return s.repo.Course().GetByLessonID(ctx, nil, lessonID)
}

func (s *repositoryStore) CourseByDiscussionID(ctx context.Context, discussionID uuid.UUID) (*models.Course, error) {
	return s.repo.Course().GetByDiscussionID(ctx, nil, discussionID)
}

func (s *repositoryStore) CourseByModuleID(ctx context.Context, moduleID uuid.UUID) (*models.Course, error) {
	return s.repo.Course().GetByModuleID(ctx, nil, moduleID)
}

func (s *repositoryStore) ModuleExists(ctx context.Context, moduleID uuid.UUID) (bool, error) {
	return s.repo.Course().ModuleExists(ctx, nil, moduleID)
}

func (s *repositoryStore) DiscussionByID(ctx context.Context, id uuid.UUID) (*models.Discussion, error) {
	return s.repo.Discussion().GetByID(ctx, nil, id)
}

func (s *repositoryStore) QuizByID(ctx context.Context, id uuid.UUID) (*models.Quiz, error) {
	return s.repo.Quiz().GetByID(ctx, nil, id)
}
