package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eduhub/course-service/internal/models"
	"github.com/eduhub/course-service/internal/repositories"
)

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) repositories.PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, tx *gorm.DB, payment *models.Payment) error {
	if err := getDB(r.db, tx).WithContext(ctx).Create(payment).Error; err != nil {
		return handleDBError(err, "payment", "create payment")
	}
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := getDB(r.db, tx).WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		return nil, handleDBError(err, "payment", "get payment by id")
	}
	return &payment, nil
}

func (r *paymentRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := lockForUpdate(getDB(r.db, tx).WithContext(ctx)).First(&payment, "id = ?", id).Error; err != nil {
		return nil, handleDBError(err, "payment", "lock payment")
	}
	return &payment, nil
}

// GetByIntentIDForUpdate serializes webhook deliveries for the same intent.
func (r *paymentRepository) GetByIntentIDForUpdate(ctx context.Context, tx *gorm.DB, intentID string) (*models.Payment, error) {
	var payment models.Payment
	if err := lockForUpdate(getDB(r.db, tx).WithContext(ctx)).
		Where("gateway_intent_id = ?", intentID).
		First(&payment).Error; err != nil {
		return nil, handleDBError(err, "payment", "get payment by intent")
	}
	return &payment, nil
}

func (r *paymentRepository) Update(ctx context.Context, tx *gorm.DB, payment *models.Payment) error {
	return updateRow(getDB(r.db, tx).WithContext(ctx), payment, "payment", "update payment")
}

func (r *paymentRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.PaymentFilters) ([]*models.Payment, int64, error) {
	query := getDB(r.db, tx).WithContext(ctx).Model(&models.Payment{})
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.CourseID != nil {
		query = query.Where("course_id = ?", *filters.CourseID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "payment", "count payments")
	}

	var payments []*models.Payment
	if err := applyPagination(query.Order("created_at DESC"), filters.Limit, filters.Offset).
		Find(&payments).Error; err != nil {
		return nil, 0, handleDBError(err, "payment", "list payments")
	}
	return payments, total, nil
}
