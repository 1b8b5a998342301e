package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eduhub/course-service/internal/models"
	"github.com/eduhub/course-service/internal/repositories"
)

type quizRepository struct {
	db *gorm.DB
}

func NewQuizRepository(db *gorm.DB) repositories.QuizRepository {
	return &quizRepository{db: db}
}

func (r *quizRepository) Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	if err := getDB(r.db, tx).WithContext(ctx).Create(quiz).Error; err != nil {
		return handleDBError(err, "quiz", "create quiz")
	}
	return nil
}

func (r *quizRepository) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := getDB(r.db, tx).WithContext(ctx).First(&quiz, "id = ?", id).Error; err != nil {
		return nil, handleDBError(err, "quiz", "get quiz by id")
	}
	return &quiz, nil
}

func (r *quizRepository) Update(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	return updateRow(getDB(r.db, tx).WithContext(ctx), quiz, "quiz", "update quiz")
}

func (r *quizRepository) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	result := getDB(r.db, tx).WithContext(ctx).Delete(&models.Quiz{}, "id = ?", id)
	if result.Error != nil {
		return handleDBError(result.Error, "quiz", "delete quiz")
	}
	if result.RowsAffected == 0 {
		return repositories.NotFound("quiz")
	}
	return nil
}

// List narrows by every id set in the scope
func (r *quizRepository) List(ctx context.Context, tx *gorm.DB, scope repositories.QuizScope) ([]*models.Quiz, error) {
	query := getDB(r.db, tx).WithContext(ctx).Model(&models.Quiz{})
	if scope.CourseID != nil {
		query = query.Where("course_id = ?", *scope.CourseID)
	}
	if scope.ModuleID != nil {
		query = query.Where("module_id = ?", *scope.ModuleID)
	}

	quizzes := []*models.Quiz{}
	if err := query.Order("created_at ASC").Find(&quizzes).Error; err != nil {
		return nil, handleDBError(err, "quiz", "list quizzes")
	}
	return quizzes, nil
}

// IDsByCourse returns the ids of every live quiz attached to the course.
func (r *quizRepository) IDsByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	if err := getDB(r.db, tx).WithContext(ctx).Model(&models.Quiz{}).
		Where("course_id = ?", courseID).
		Pluck("id", &ids).Error; err != nil {
		return nil, handleDBError(err, "quiz", "list quiz ids")
	}
	return ids, nil
}
