package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/eduhub/course-service/internal/models"
	"github.com/eduhub/course-service/internal/repositories"
)

const progressSheet = "Progress"

type progressService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewProgressService(repo repositories.Repository, logger *slog.Logger) ProgressService {
	return &progressService{
		repo:   repo,
		logger: logger,
	}
}

// Get returns the student's progress in the course; a student who has not
// submitted anything yet gets an empty record. The percentage is recomputed
// against the course's current quizzes.
func (s *progressService) Get(ctx context.Context, studentID uuid.UUID, course *models.Course) (*models.Progress, error) {
	progress, err := s.repo.Progress().Get(ctx, nil, studentID, course.ID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return &models.Progress{
				StudentID:   studentID,
				CourseID:    course.ID,
				QuizResults: []models.QuizResult{},
			}, nil
		}
		return nil, fmt.Errorf("get progress: %w", err)
	}
	quizIDs, err := s.repo.Quiz().IDsByCourse(ctx, nil, course.ID)
	if err != nil {
		return nil, fmt.Errorf("list course quizzes: %w", err)
	}
	progress.Recalculate(quizIDs)
	return progress, nil
}

// Export renders every enrolled student's progress as an xlsx workbook with one
// score column per quiz.
func (s *progressService) Export(ctx context.Context, course *models.Course) (*ProgressExport, error) {
	courseID := course.ID
	quizzes, err := s.repo.Quiz().List(ctx, nil, repositories.QuizScope{CourseID: &courseID})
	if err != nil {
		return nil, fmt.Errorf("list course quizzes: %w", err)
	}
	records, err := s.repo.Progress().ListByCourse(ctx, nil, course.ID)
	if err != nil {
		return nil, fmt.Errorf("list course progress: %w", err)
	}
	quizIDs := make([]uuid.UUID, len(quizzes))
	for i, q := range quizzes {
		quizIDs[i] = q.ID
	}
	byStudent := make(map[uuid.UUID]*models.Progress, len(records))
	for _, p := range records {
		byStudent[p.StudentID] = p
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("Failed to close workbook", "error", err)
		}
	}()
	if err := f.SetSheetName("Sheet1", progressSheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	header := []any{"Student ID", "User Name", "Email", "Quizzes Completed", "Overall Progress (%)"}
	for _, q := range quizzes {
		header = append(header, q.Title)
	}
	if err := f.SetSheetRow(progressSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if err := s.styleHeader(f, len(header)); err != nil {
		return nil, err
	}

	for i, studentID := range course.EnrolledStudents {
		row := []any{studentID.String(), "", "", 0, 0}
		user, err := s.repo.User().GetByID(ctx, nil, studentID)
		switch {
		case err == nil:
			row[1], row[2] = user.UserName, user.Email
		case !repositories.IsNotFoundError(err):
			return nil, fmt.Errorf("load student: %w", err)
		}

		scores := map[uuid.UUID]models.QuizResult{}
		if p, ok := byStudent[studentID]; ok {
			p.Recalculate(quizIDs)
			row[3], row[4] = p.Completed(quizIDs), p.OverallProgress
			for _, r := range p.QuizResults {
				scores[r.QuizID] = r
			}
		}
		for _, q := range quizzes {
			if r, ok := scores[q.ID]; ok {
				row = append(row, fmt.Sprintf("%d/%d", r.Score, r.TotalQuestions))
			} else {
				row = append(row, "")
			}
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(progressSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}

	s.logger.Info("Progress exported", "course_id", course.ID, "students", len(course.EnrolledStudents), "quizzes", len(quizzes))
	return &ProgressExport{
		FileName: fmt.Sprintf("course-%s-progress.xlsx", course.ID),
		Content:  buf.Bytes(),
	}, nil
}

func (s *progressService) styleHeader(f *excelize.File, columns int) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(columns, 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(progressSheet, "A1", last, style); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(columns)
	if err != nil {
		return err
	}
	return f.SetColWidth(progressSheet, "A", lastCol, 22)
}
