package postgres

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

// SharedHelpers holds query builders reused across repositories.
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (h *SharedHelpers) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return h.db
}

var attemptSortColumns = map[string]string{
	"started_at":      "started_at",
	"submitted_at":    "submitted_at",
	"score":           "score",
	"sequence_number": "sequence_number",
	"student_id":      "student_id",
}

func (h *SharedHelpers) ApplyAttemptFilters(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.StudentID != "" {
		query = query.Where("student_id = ?", filters.StudentID)
	}
	if filters.DateFrom != nil {
		query = query.Where("started_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("started_at <= ?", *filters.DateTo)
	}
	return query
}

// ApplyPaginationAndSort only sorts by whitelisted columns.
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	column, ok := attemptSortColumns[sortBy]
	if !ok {
		column = "started_at"
	}
	order := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		order = "ASC"
	}
	query = query.Order(fmt.Sprintf("%s %s", column, order)).Order("id ASC")

	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query = query.Limit(limit)
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}
