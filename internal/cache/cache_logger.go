package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// SafeInvalidatePattern logs instead of returning the error; stale listings
// expire on their own.
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// InvalidateCourseCache drops every cached course listing. Listings are keyed
// by filter, so any of them may contain the changed course.
func InvalidateCourseCache(ctx context.Context, cm *CacheManager, courseID uuid.UUID) {
	SafeInvalidatePattern(ctx, cm.Course, "list:*")
	slog.DebugContext(ctx, "Course cache invalidated", "course_id", courseID.String())
}

// CourseListKey builds a stable key for a listing query.
func CourseListKey(category, tag, instructor, level string, limit, offset int) string {
	return fmt.Sprintf("list:c=%s:t=%s:i=%s:l=%s:%d:%d", category, tag, instructor, level, limit, offset)
}
