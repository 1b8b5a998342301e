package postgres

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eduhub/course-service/internal/models"
	"github.com/eduhub/course-service/internal/repositories"
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) repositories.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	if err := getDB(r.db, tx).WithContext(ctx).Create(user).Error; err != nil {
		return handleDBError(err, "user", "create user")
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := getDB(r.db, tx).WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, handleDBError(err, "user", "get user by id")
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error) {
	var user models.User
	if err := getDB(r.db, tx).WithContext(ctx).
		Where("email = ?", strings.ToLower(email)).
		First(&user).Error; err != nil {
		return nil, handleDBError(err, "user", "get user by email")
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, tx *gorm.DB, user *models.User) error {
	return updateRow(getDB(r.db, tx).WithContext(ctx), user, "user", "update user")
}

func (r *userRepository) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	result := getDB(r.db, tx).WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if result.Error != nil {
		return handleDBError(result.Error, "user", "delete user")
	}
	if result.RowsAffected == 0 {
		return repositories.NotFound("user")
	}
	return nil
}

func (r *userRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.UserFilters) ([]*models.User, int64, error) {
	query := getDB(r.db, tx).WithContext(ctx).Model(&models.User{})
	if filters.Query != "" {
		like := "%" + filters.Query + "%"
		query = query.Where("user_name ILIKE ? OR email ILIKE ?", like, like)
	}
	if filters.Role != nil {
		query = query.Where("role = ?", *filters.Role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "user", "count users")
	}

	var users []*models.User
	if err := applyPagination(query.Order("created_at DESC"), filters.Limit, filters.Offset).
		Find(&users).Error; err != nil {
		return nil, 0, handleDBError(err, "user", "list users")
	}
	return users, total, nil
}

func (r *userRepository) ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	return r.exists(ctx, tx, "email = ?", strings.ToLower(email))
}

func (r *userRepository) ExistsByUserName(ctx context.Context, tx *gorm.DB, userName string) (bool, error) {
	return r.exists(ctx, tx, "user_name = ?", userName)
}

func (r *userRepository) exists(ctx context.Context, tx *gorm.DB, cond string, arg any) (bool, error) {
	var count int64
	if err := getDB(r.db, tx).WithContext(ctx).Model(&models.User{}).
		Where(cond, arg).
		Count(&count).Error; err != nil {
		return false, handleDBError(err, "user", "check user exists")
	}
	return count > 0, nil
}
