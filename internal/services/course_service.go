package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/eduhub/course-service/internal/access"
	"github.com/eduhub/course-service/internal/models"
	"github.com/eduhub/course-service/internal/repositories"
	"github.com/eduhub/course-service/internal/validator"
)

type courseService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	now       func() time.Time
}

func NewCourseService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) CourseService {
	return &courseService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		now:       time.Now,
	}
}

// ===== COURSES =====

func (s *courseService) List(ctx context.Context, filters repositories.CourseFilters) (*CourseListResponse, error) {
	courses, total, err := s.repo.Course().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return &CourseListResponse{Courses: courses, Total: total}, nil
}

func (s *courseService) Create(ctx context.Context, p *access.Principal, req *CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	instructorID := p.ID
	if req.InstructorID != nil && p.IsAdmin() {
		id, err := uuid.Parse(*req.InstructorID)
		if err != nil {
			return nil, invalidInput("instructor_id", "must be a valid id")
		}
		instructor, err := s.repo.User().GetByID(ctx, nil, id)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrUserNotFound
			}
			return nil, fmt.Errorf("load instructor: %w", err)
		}
		if instructor.Role != models.RoleInstructor {
			return nil, invalidInput("instructor_id", "user is not an instructor")
		}
		instructorID = id
	}

	course := &models.Course{
		Title:            req.Title,
		Description:      req.Description,
		InstructorID:     instructorID,
		Duration:         req.Duration,
		Level:            models.CourseLevel(req.Level),
		Language:         req.Language,
		Price:            req.Price,
		Discount:         req.Discount,
		Categories:       req.Categories,
		Tags:             req.Tags,
		EnrolledStudents: []uuid.UUID{},
		Modules:          []models.Module{},
	}
	if err := s.repo.Course().Create(ctx, nil, course); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}

	s.logger.Info("Course created", "course_id", course.ID, "instructor_id", instructorID)
	return course, nil
}

func (s *courseService) Update(ctx context.Context, course *models.Course, req *UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	err := s.mutate(ctx, course, func(c *models.Course) error {
		if req.Title != nil {
			c.Title = *req.Title
		}
		if req.Description != nil {
			c.Description = *req.Description
		}
		if req.Duration != nil {
			c.Duration = *req.Duration
		}
		if req.Level != nil {
			c.Level = models.CourseLevel(*req.Level)
		}
		if req.Language != nil {
			c.Language = *req.Language
		}
		if req.Price != nil {
			c.Price = *req.Price
		}
		if req.Discount != nil {
			c.Discount = *req.Discount
		}
		if req.Categories != nil {
			c.Categories = *req.Categories
		}
		if req.Tags != nil {
			c.Tags = *req.Tags
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Course updated", "course_id", course.ID)
	return course, nil
}

func (s *courseService) Delete(ctx context.Context, course *models.Course) error {
	if err := s.repo.Course().Delete(ctx, nil, course.ID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrCourseNotFound
		}
		return fmt.Errorf("delete course: %w", err)
	}
	s.logger.Info("Course deleted", "course_id", course.ID)
	return nil
}

// ===== MODULES =====

func (s *courseService) AddModule(ctx context.Context, course *models.Course, req *CreateModuleRequest) (*models.Module, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var module models.Module
	err := s.mutate(ctx, course, func(c *models.Course) error {
		module = *c.AddModule(req.Title, req.Order, s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Module added", "course_id", course.ID, "module_id", module.ID)
	return &module, nil
}

func (s *courseService) UpdateModule(ctx context.Context, course *models.Course, moduleID uuid.UUID, req *UpdateModuleRequest) (*models.Module, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var module models.Module
	err := s.mutate(ctx, course, func(c *models.Course) error {
		updated, err := c.UpdateModule(moduleID, models.ModuleChanges{
			Title: req.Title,
			Order: req.Order,
		}, s.now())
		if err != nil {
			return contentError(err)
		}
		module = *updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &module, nil
}

func (s *courseService) DeleteModule(ctx context.Context, course *models.Course, moduleID uuid.UUID) error {
	err := s.mutate(ctx, course, func(c *models.Course) error {
		return contentError(c.RemoveModule(moduleID))
	})
	if err != nil {
		return err
	}
	s.logger.Info("Module removed", "course_id", course.ID, "module_id", moduleID)
	return nil
}

// ===== LESSONS =====

func (s *courseService) GetLesson(ctx context.Context, course *models.Course, moduleID, lessonID uuid.UUID) (*models.Lesson, error) {
	lesson, err := course.Lesson(moduleID, lessonID)
	if err != nil {
		return nil, contentError(err)
	}
	return lesson, nil
}

func (s *courseService) AddLesson(ctx context.Context, course *models.Course, moduleID uuid.UUID, req *CreateLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var lesson models.Lesson
	err := s.mutate(ctx, course, func(c *models.Course) error {
		added, err := c.AddLesson(moduleID, req.Title, req.Duration, req.VideoURL, req.Order, s.now())
		if err != nil {
			return contentError(err)
		}
		lesson = *added
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Lesson added", "course_id", course.ID, "module_id", moduleID, "lesson_id", lesson.ID)
	return &lesson, nil
}

func (s *courseService) UpdateLesson(ctx context.Context, course *models.Course, moduleID, lessonID uuid.UUID, req *UpdateLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var lesson models.Lesson
	err := s.mutate(ctx, course, func(c *models.Course) error {
		updated, err := c.UpdateLesson(moduleID, lessonID, models.LessonChanges{
			Title:    req.Title,
			Duration: req.Duration,
			VideoURL: req.VideoURL,
			Order:    req.Order,
		}, s.now())
		if err != nil {
			return contentError(err)
		}
		lesson = *updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

// DeleteLesson removes the lesson only; discussions it referenced stay.
func (s *courseService) DeleteLesson(ctx context.Context, course *models.Course, moduleID, lessonID uuid.UUID) error {
	err := s.mutate(ctx, course, func(c *models.Course) error {
		return contentError(c.RemoveLesson(moduleID, lessonID))
	})
	if err != nil {
		return err
	}
	s.logger.Info("Lesson removed", "course_id", course.ID, "module_id", moduleID, "lesson_id", lessonID)
	return nil
}

// mutate applies change to the course reloaded under a row lock and writes it
// back in the same transaction. On success course holds the stored state.
func (s *courseService) mutate(ctx context.Context, course *models.Course, change func(*models.Course) error) error {
	fresh, err := lockedCourseUpdate(ctx, s.repo, course.ID, change)
	if err != nil {
		return err
	}
	*course = *fresh
	return nil
}

// lockedCourseUpdate is the read-modify-write shared by every service that
// changes a course document. Errors from change are returned as is.
func lockedCourseUpdate(ctx context.Context, repo repositories.Repository, courseID uuid.UUID, change func(*models.Course) error) (*models.Course, error) {
	var (
		fresh     *models.Course
		changeErr error
	)
	err := repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		var err error
		fresh, err = tx.Course().GetByIDForUpdate(ctx, nil, courseID)
		if err != nil {
			return err
		}
		if changeErr = change(fresh); changeErr != nil {
			return changeErr
		}
		return tx.Course().Update(ctx, nil, fresh)
	})
	switch {
	case err == nil:
		return fresh, nil
	case changeErr != nil:
		return nil, changeErr
	case repositories.IsNotFoundError(err):
		return nil, ErrCourseNotFound
	default:
		return nil, fmt.Errorf("save course: %w", err)
	}
}

// contentError maps aggregate lookup failures onto service errors.
func contentError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrModuleNotFound):
		return ErrModuleNotFound
	case errors.Is(err, models.ErrLessonNotFound):
		return ErrLessonNotFound
	default:
		return err
	}
}
