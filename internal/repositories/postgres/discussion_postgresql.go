package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eduhub/course-service/internal/models"
	"github.com/eduhub/course-service/internal/repositories"
)

type discussionRepository struct {
	db *gorm.DB
}

func NewDiscussionRepository(db *gorm.DB) repositories.DiscussionRepository {
	return &discussionRepository{db: db}
}

func (r *discussionRepository) Create(ctx context.Context, tx *gorm.DB, discussion *models.Discussion) error {
	if err := getDB(r.db, tx).WithContext(ctx).Create(discussion).Error; err != nil {
		return handleDBError(err, "discussion", "create discussion")
	}
	return nil
}

func (r *discussionRepository) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Discussion, error) {
	var discussion models.Discussion
	if err := getDB(r.db, tx).WithContext(ctx).First(&discussion, "id = ?", id).Error; err != nil {
		return nil, handleDBError(err, "discussion", "get discussion by id")
	}
	return &discussion, nil
}

func (r *discussionRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Discussion, error) {
	var discussion models.Discussion
	if err := lockForUpdate(getDB(r.db, tx).WithContext(ctx)).First(&discussion, "id = ?", id).Error; err != nil {
		return nil, handleDBError(err, "discussion", "lock discussion")
	}
	return &discussion, nil
}

// GetByIDs returns the discussions that still exist, oldest first
func (r *discussionRepository) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*models.Discussion, error) {
	discussions := []*models.Discussion{}
	if len(ids) == 0 {
		return discussions, nil
	}
	if err := getDB(r.db, tx).WithContext(ctx).
		Where("id IN ?", ids).
		Order("created_at ASC").
		Find(&discussions).Error; err != nil {
		return nil, handleDBError(err, "discussion", "get discussions by ids")
	}
	return discussions, nil
}

func (r *discussionRepository) Update(ctx context.Context, tx *gorm.DB, discussion *models.Discussion) error {
	return updateRow(getDB(r.db, tx).WithContext(ctx), discussion, "discussion", "update discussion")
}

func (r *discussionRepository) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	result := getDB(r.db, tx).WithContext(ctx).Delete(&models.Discussion{}, "id = ?", id)
	if result.Error != nil {
		return handleDBError(result.Error, "discussion", "delete discussion")
	}
	if result.RowsAffected == 0 {
		return repositories.NotFound("discussion")
	}
	return nil
}

func (r *discussionRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.DiscussionFilters) ([]*models.Discussion, int64, error) {
	query := getDB(r.db, tx).WithContext(ctx).Model(&models.Discussion{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "discussion", "count discussions")
	}

	var discussions []*models.Discussion
	if err := applyPagination(query.Order("created_at DESC"), filters.Limit, filters.Offset).
		Find(&discussions).Error; err != nil {
		return nil, 0, handleDBError(err, "discussion", "list discussions")
	}
	return discussions, total, nil
}
