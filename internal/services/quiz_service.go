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

type quizService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	now       func() time.Time
}

func NewQuizService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) QuizService {
	return &quizService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		now:       time.Now,
	}
}

func (s *quizService) Create(ctx context.Context, course *models.Course, moduleID *uuid.UUID, req *CreateQuizRequest) (*models.Quiz, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if moduleID != nil && !course.HasModule(*moduleID) {
		return nil, ErrModuleNotFound
	}

	courseID := course.ID
	quiz := &models.Quiz{
		Title:       req.Title,
		Description: req.Description,
		Questions:   toQuestions(req.Questions),
		CourseID:    &courseID,
		ModuleID:    moduleID,
	}
	if err := s.repo.Quiz().Create(ctx, nil, quiz); err != nil {
		return nil, fmt.Errorf("create quiz: %w", err)
	}

	s.logger.Info("Quiz created", "quiz_id", quiz.ID, "course_id", course.ID, "questions", len(quiz.Questions))
	return quiz, nil
}

func (s *quizService) Update(ctx context.Context, quiz *models.Quiz, req *UpdateQuizRequest) (*models.Quiz, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if req.Title != nil {
		quiz.Title = *req.Title
	}
	if req.Description != nil {
		quiz.Description = req.Description
	}
	if req.Questions != nil {
		quiz.Questions = toQuestions(*req.Questions)
	}

	if err := s.repo.Quiz().Update(ctx, nil, quiz); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("update quiz: %w", err)
	}
	return quiz, nil
}

func (s *quizService) Delete(ctx context.Context, quiz *models.Quiz) error {
	if err := s.repo.Quiz().Delete(ctx, nil, quiz.ID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuizNotFound
		}
		return fmt.Errorf("delete quiz: %w", err)
	}
	s.logger.Info("Quiz deleted", "quiz_id", quiz.ID)
	return nil
}

func (s *quizService) List(ctx context.Context, p *access.Principal, course *models.Course, scope repositories.QuizScope) ([]*QuizView, error) {
	quizzes, err := s.repo.Quiz().List(ctx, nil, scope)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	reveal := canSeeAnswers(p, course)
	views := make([]*QuizView, 0, len(quizzes))
	for _, q := range quizzes {
		views = append(views, viewQuiz(q, reveal))
	}
	return views, nil
}

func (s *quizService) Get(ctx context.Context, p *access.Principal, course *models.Course, quiz *models.Quiz) *QuizView {
	return viewQuiz(quiz, canSeeAnswers(p, course))
}

// Submit grades the answers. Students also get the result recorded in their
// course progress; a resubmission replaces the earlier result.
func (s *quizService) Submit(ctx context.Context, p *access.Principal, course *models.Course, quiz *models.Quiz, req *SubmitQuizRequest) (*SubmissionResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	grade, err := quiz.Grade(req.Answers)
	if err != nil {
		if errors.Is(err, models.ErrAnswerCountMismatch) {
			return nil, ErrAnswerCount
		}
		return nil, err
	}

	result := &SubmissionResult{QuizID: quiz.ID, Grade: grade}
	if !p.HasRole(models.RoleStudent) {
		return result, nil
	}

	progress, err := s.recordResult(ctx, p.ID, course.ID, models.QuizResult{
		QuizID:         quiz.ID,
		Score:          grade.Score,
		TotalQuestions: grade.TotalQuestions,
		SubmittedAt:    s.now(),
	})
	if err != nil {
		return nil, err
	}
	result.Progress = progress

	s.logger.Info("Quiz submitted",
		"quiz_id", quiz.ID,
		"student_id", p.ID,
		"score", grade.Score,
		"total", grade.TotalQuestions,
		"overall_progress", progress.OverallProgress)
	return result, nil
}

func (s *quizService) recordResult(ctx context.Context, studentID, courseID uuid.UUID, result models.QuizResult) (*models.Progress, error) {
	var progress *models.Progress
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		quizIDs, err := tx.Quiz().IDsByCourse(ctx, nil, courseID)
		if err != nil {
			return fmt.Errorf("list course quizzes: %w", err)
		}

		progress, err = tx.Progress().Get(ctx, nil, studentID, courseID)
		if err != nil {
			if !repositories.IsNotFoundError(err) {
				return fmt.Errorf("load progress: %w", err)
			}
			progress = &models.Progress{StudentID: studentID, CourseID: courseID}
		}

		progress.RecordResult(result, quizIDs)
		if err := tx.Progress().Save(ctx, nil, progress); err != nil {
			return fmt.Errorf("save progress: %w", err)
		}
		return nil
	})
	return progress, err
}

func canSeeAnswers(p *access.Principal, course *models.Course) bool {
	if p.IsAdmin() {
		return true
	}
	return course != nil && p.HasRole(models.RoleInstructor) && course.IsInstructor(p.ID)
}

func viewQuiz(q *models.Quiz, reveal bool) *QuizView {
	v := &QuizView{
		ID:          q.ID,
		Title:       q.Title,
		Description: q.Description,
		CourseID:    q.CourseID,
		ModuleID:    q.ModuleID,
		Questions:   make([]QuestionView, 0, len(q.Questions)),
		CreatedAt:   q.CreatedAt,
		UpdatedAt:   q.UpdatedAt,
	}
	for _, question := range q.Questions {
		qv := QuestionView{QuestionText: question.QuestionText, Options: question.Options}
		if reveal {
			correct := question.CorrectOption
			qv.CorrectOption = &correct
		}
		v.Questions = append(v.Questions, qv)
	}
	return v
}

func toQuestions(reqs []validator.QuestionRequest) []models.Question {
	out := make([]models.Question, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, models.Question{
			QuestionText:  r.QuestionText,
			Options:       r.Options,
			CorrectOption: r.CorrectOption,
		})
	}
	return out
}
