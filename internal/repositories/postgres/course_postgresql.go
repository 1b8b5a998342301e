package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/eduhub/course-service/internal/cache"
	"github.com/eduhub/course-service/internal/models"
	"github.com/eduhub/course-service/internal/repositories"
)

type CoursePostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewCoursePostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.CourseRepository {
	return &CoursePostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

var courseSortColumns = map[string]string{
	"created_at": "created_at",
	"title":      "title",
	"price":      "price",
	"duration":   "duration",
}

type coursePage struct {
	Courses []*models.Course `json:"courses"`
	Total   int64            `json:"total"`
}

// ===== BASIC CRUD OPERATIONS =====

// Create creates a new course and invalidates cached listings
func (r *CoursePostgreSQL) Create(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	if err := getDB(r.db, tx).WithContext(ctx).Create(course).Error; err != nil {
		return handleDBError(err, "course", "create course")
	}
	cache.InvalidateCourseCache(ctx, r.cacheManager, course.ID)
	return nil
}

// GetByID always reads the database; access decisions must see current enrollment
func (r *CoursePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Course, error) {
	var course models.Course
	if err := getDB(r.db, tx).WithContext(ctx).First(&course, "id = ?", id).Error; err != nil {
		return nil, handleDBError(err, "course", "get course by id")
	}
	return &course, nil
}

func (r *CoursePostgreSQL) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Course, error) {
	var course models.Course
	if err := lockForUpdate(getDB(r.db, tx).WithContext(ctx)).First(&course, "id = ?", id).Error; err != nil {
		return nil, handleDBError(err, "course", "lock course")
	}
	return &course, nil
}

func (r *CoursePostgreSQL) Update(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	if err := updateRow(getDB(r.db, tx).WithContext(ctx), course, "course", "update course"); err != nil {
		return err
	}
	cache.InvalidateCourseCache(ctx, r.cacheManager, course.ID)
	return nil
}

func (r *CoursePostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	result := getDB(r.db, tx).WithContext(ctx).Delete(&models.Course{}, "id = ?", id)
	if result.Error != nil {
		return handleDBError(result.Error, "course", "delete course")
	}
	if result.RowsAffected == 0 {
		return repositories.NotFound("course")
	}
	cache.InvalidateCourseCache(ctx, r.cacheManager, id)
	return nil
}

// List returns a page of courses, served from cache when possible
func (r *CoursePostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.CourseFilters) ([]*models.Course, int64, error) {
	instructor, level := "", ""
	if filters.InstructorID != nil {
		instructor = filters.InstructorID.String()
	}
	if filters.Level != nil {
		level = string(*filters.Level)
	}
	key := cache.CourseListKey(filters.Category, filters.Tag, instructor, level, filters.Limit, filters.Offset) +
		fmt.Sprintf(":%s:%s", filters.SortBy, filters.SortOrder)

	var page coursePage
	err := r.cacheManager.Course.CacheOrExecute(ctx, key, &page, cache.CourseCacheConfig.TTL, func() (interface{}, error) {
		courses, total, err := r.list(ctx, getDB(r.db, tx), filters)
		if err != nil {
			return nil, err
		}
		return coursePage{Courses: courses, Total: total}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return page.Courses, page.Total, nil
}

func (r *CoursePostgreSQL) list(ctx context.Context, db *gorm.DB, filters repositories.CourseFilters) ([]*models.Course, int64, error) {
	query := db.WithContext(ctx).Model(&models.Course{})

	if filters.Category != "" {
		doc, err := containment([]string{filters.Category})
		if err != nil {
			return nil, 0, err
		}
		query = query.Where("categories @> ?::jsonb", doc)
	}
	if filters.Tag != "" {
		doc, err := containment([]string{filters.Tag})
		if err != nil {
			return nil, 0, err
		}
		query = query.Where("tags @> ?::jsonb", doc)
	}
	if filters.InstructorID != nil {
		query = query.Where("instructor_id = ?", *filters.InstructorID)
	}
	if filters.Level != nil {
		query = query.Where("level = ?", *filters.Level)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "course", "count courses")
	}

	var courses []*models.Course
	query = applyPaginationAndSorting(query, filters.Limit, filters.Offset, filters.SortBy, filters.SortOrder, courseSortColumns)
	if err := query.Find(&courses).Error; err != nil {
		return nil, 0, handleDBError(err, "course", "list courses")
	}
	return courses, total, nil
}

// ===== CONTAINMENT LOOKUPS =====

type lessonRef struct {
	ID            *uuid.UUID  `json:"id,omitempty"`
	DiscussionIDs []uuid.UUID `json:"discussion_ids,omitempty"`
}

type moduleRef struct {
	ID      *uuid.UUID  `json:"id,omitempty"`
	Lessons []lessonRef `json:"lessons,omitempty"`
}

func (r *CoursePostgreSQL) firstByModules(ctx context.Context, tx *gorm.DB, ref moduleRef, entity string) (*models.Course, error) {
	doc, err := containment([]moduleRef{ref})
	if err != nil {
		return nil, err
	}
	var course models.Course
	if err := getDB(r.db, tx).WithContext(ctx).
		Where("modules @> ?::jsonb", doc).
		First(&course).Error; err != nil {
		return nil, handleDBError(err, entity, "get course by "+entity)
	}
	return &course, nil
}

func (r *CoursePostgreSQL) GetByLessonID(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID) (*models.Course, error) {
	return r.firstByModules(ctx, tx, moduleRef{Lessons: []lessonRef{{ID: &lessonID}}}, "lesson")
}

func (r *CoursePostgreSQL) GetByDiscussionID(ctx context.Context, tx *gorm.DB, discussionID uuid.UUID) (*models.Course, error) {
	return r.firstByModules(ctx, tx, moduleRef{Lessons: []lessonRef{{DiscussionIDs: []uuid.UUID{discussionID}}}}, "discussion")
}

func (r *CoursePostgreSQL) GetByModuleID(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) (*models.Course, error) {
	return r.firstByModules(ctx, tx, moduleRef{ID: &moduleID}, "module")
}

func (r *CoursePostgreSQL) ModuleExists(ctx context.Context, tx *gorm.DB, moduleID uuid.UUID) (bool, error) {
	doc, err := containment([]moduleRef{{ID: &moduleID}})
	if err != nil {
		return false, err
	}
	var count int64
	if err := getDB(r.db, tx).WithContext(ctx).Model(&models.Course{}).
		Where("modules @> ?::jsonb", doc).
		Limit(1).
		Count(&count).Error; err != nil {
		return false, handleDBError(err, "module", "check module exists")
	}
	return count > 0, nil
}

func (r *CoursePostgreSQL) ListByStudent(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) ([]*models.Course, error) {
	doc, err := containment([]uuid.UUID{studentID})
	if err != nil {
		return nil, err
	}
	var courses []*models.Course
	if err := getDB(r.db, tx).WithContext(ctx).
		Where("enrolled_students @> ?::jsonb", doc).
		Order("created_at DESC").
		Find(&courses).Error; err != nil {
		return nil, handleDBError(err, "course", "list courses by student")
	}
	return courses, nil
}

func (r *CoursePostgreSQL) ListByDiscussionID(ctx context.Context, tx *gorm.DB, discussionID uuid.UUID) ([]*models.Course, error) {
	doc, err := containment([]moduleRef{{Lessons: []lessonRef{{DiscussionIDs: []uuid.UUID{discussionID}}}}})
	if err != nil {
		return nil, err
	}
	var courses []*models.Course
	if err := getDB(r.db, tx).WithContext(ctx).
		Where("modules @> ?::jsonb", doc).
		Find(&courses).Error; err != nil {
		return nil, handleDBError(err, "course", "list courses by discussion")
	}
	return courses, nil
}
