package postgres

import (
	"gorm.io/gorm"

	"github.com/SAP-F-2025/practice-engine/internal/repositories"
)

// SharedHelpers contains common database operations
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// ApplyAttemptFilters applies common filters to attempt history queries
func (h *SharedHelpers) ApplyAttemptFilters(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if filters.DateFrom != nil {
		query = query.Where("attempt_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("attempt_at <= ?", *filters.DateTo)
	}
	return query
}

// ApplyPaginationAndSort applies pagination and sorting with SQL injection protection
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, sortOrder string, limit, offset int) *gorm.DB {
	// Attempt history only ever sorts over submission time; the id tiebreak
	// keeps pagination stable when timestamps collide.
	if sortOrder == "asc" || sortOrder == "ASC" {
		query = query.Order("attempt_at ASC, id ASC")
	} else {
		query = query.Order("attempt_at DESC, id DESC")
	}

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	return query
}
