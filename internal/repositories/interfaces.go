package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eduhub/course-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type CourseFilters struct {
	Category     string              `json:"category"`
	Tag          string              `json:"tag"`
	InstructorID *uuid.UUID          `json:"instructor_id"`
	Level        *models.CourseLevel `json:"level"`
	Limit        int                 `json:"limit"`
	Offset       int                 `json:"offset"`
	SortBy       string              `json:"sort_by"`    // "created_at", "title", "price"
	SortOrder    string              `json:"sort_order"` // "asc", "desc"
}

type DiscussionFilters struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type PaymentFilters struct {
	UserID   *uuid.UUID            `json:"user_id"`
	CourseID *uuid.UUID            `json:"course_id"`
	Status   *models.PaymentStatus `json:"status"`
	Limit    int                   `json:"limit"`
	Offset   int                   `json:"offset"`
}

// QuizScope selects quizzes of a course, of a module, or of a module within a course.
type QuizScope struct {
	CourseID *uuid.UUID
	ModuleID *uuid.UUID
}

// ===== REPOSITORY INTERFACES =====

// CourseRepository persists the Course aggregate. Modules and lessons have no
// repository of their own; they are changed through the aggregate and saved with it.
type CourseRepository interface {
	Create(ctx context.Context, tx *gorm.DB, course *models.Course) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Course, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Course, error)
	// Update writes the whole aggregate and reports not found for missing or deleted rows
	Update(ctx context.Context, tx *gorm.DB, course *models.Course) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	List(ctx context.Context, tx *gorm.DB, filters CourseFilters) ([]*models.Course, int64, error)

	// Containment lookups over the embedded module document
	GetByLessonID(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) (*models.Course, error)
	GetByDiscussionID(ctx context.Context, tx *gorm.DB, discussionID uuid.UUID) (*models.Course, error)
	GetByModuleID(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) (*models.Course, error)
	ModuleExists(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) (bool, error)
	ListByStudent(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) ([]*models.Course, error)
	ListByDiscussionID(ctx context.Context, tx *gorm.DB, discussionID uuid.UUID) ([]*models.Course, error)
}

type DiscussionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, discussion *models.Discussion) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Discussion, error)
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Discussion, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*models.Discussion, error)
	Update(ctx context.Context, tx *gorm.DB, discussion *models.Discussion) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	List(ctx context.Context, tx *gorm.DB, filters DiscussionFilters) ([]*models.Discussion, int64, error)
}

type QuizRepository interface {
	Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Quiz, error)
	Update(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	List(ctx context.Context, tx *gorm.DB, scope QuizScope) ([]*models.Quiz, error)
	IDsByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]uuid.UUID, error)
}

type ProgressRepository interface {
	Get(ctx context.Context, tx *gorm.DB, studentID, courseID uuid.UUID) (*models.Progress, error)
	Save(ctx context.Context, tx *gorm.DB, progress *models.Progress) error
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*models.Progress, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, payment *models.Payment) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Payment, error)
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Payment, error)
	GetByIntentIDForUpdate(ctx context.Context, tx *gorm.DB, intentID string) (*models.Payment, error)
	Update(ctx context.Context, tx *gorm.DB, payment *models.Payment) error
	List(ctx context.Context, tx *gorm.DB, filters PaymentFilters) ([]*models.Payment, int64, error)
}
