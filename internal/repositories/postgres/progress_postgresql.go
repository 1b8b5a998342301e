package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/eduhub/course-service/internal/models"
	"github.com/eduhub/course-service/internal/repositories"
)

type progressRepository struct {
	db *gorm.DB
}

func NewProgressRepository(db *gorm.DB) repositories.ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) Get(ctx context.Context, tx *gorm.DB, studentID, courseID uuid.UUID) (*models.Progress, error) {
	var progress models.Progress
	if err := getDB(r.db, tx).WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&progress).Error; err != nil {
		return nil, handleDBError(err, "progress", "get progress")
	}
	return &progress, nil
}

// Save upserts on the (student, course) pair
func (r *progressRepository) Save(ctx context.Context, tx *gorm.DB, progress *models.Progress) error {
	err := getDB(r.db, tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "course_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quiz_results", "overall_progress", "updated_at"}),
		}).
		Create(progress).Error
	return handleDBError(err, "progress", "save progress")
}

func (r *progressRepository) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*models.Progress, error) {
	progress := []*models.Progress{}
	if err := getDB(r.db, tx).WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("overall_progress DESC").
		Find(&progress).Error; err != nil {
		return nil, handleDBError(err, "progress", "list progress by course")
	}
	return progress, nil
}
