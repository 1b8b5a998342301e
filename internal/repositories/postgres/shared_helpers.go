package postgres

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/eduhub/course-service/internal/repositories"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func getDB(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}

// handleDBError normalizes driver errors into the repository error vocabulary.
func handleDBError(err error, entity, operation string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repositories.NotFound(entity)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", entity, repositories.ErrDuplicate)
	}
	return fmt.Errorf("%s failed: %w", operation, err)
}

// lockForUpdate reads with SELECT ... FOR UPDATE. Callers must be inside a
// transaction for the lock to outlive the statement.
func lockForUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// updateStatement writes every column of model to its live row. Unlike Save
// it never inserts, so a deleted row stays deleted.
func updateStatement(db *gorm.DB, model any) *gorm.DB {
	return db.Model(model).Select("*").Omit("id", "created_at", "deleted_at").Updates(model)
}

func updateRow(db *gorm.DB, model any, entity, operation string) error {
	result := updateStatement(db, model)
	if result.Error != nil {
		return handleDBError(result.Error, entity, operation)
	}
	if result.RowsAffected == 0 {
		return repositories.NotFound(entity)
	}
	return nil
}

// applyPaginationAndSorting whitelists the sort column and clamps the page size.
func applyPaginationAndSorting(query *gorm.DB, limit, offset int, sortBy, sortOrder string, allowed map[string]string) *gorm.DB {
	column, ok := allowed[sortBy]
	if !ok {
		column = "created_at"
	}

	order := "DESC"
	if sortOrder == "asc" || sortOrder == "ASC" {
		order = "ASC"
	}
	query = query.Order(fmt.Sprintf("%s %s", column, order))

	return applyPagination(query, limit, offset)
}

func applyPagination(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit <= 0 {
		limit = defaultPageSize
	}
	limit = min(limit, maxPageSize)
	query = query.Limit(limit)
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

// containment renders v as a jsonb literal for the @> operator.
func containment(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode jsonb containment: %w", err)
	}
	return string(b), nil
}
