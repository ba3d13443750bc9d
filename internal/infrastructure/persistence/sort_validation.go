package persistence

import (
	"fmt"
	"strings"

	"github.com/billing/backend/internal/domain/shared"
)

// orderClause builds a safe ORDER BY clause from a filter. Only columns in
// the allowed set are accepted; anything else falls back to created_at.
func orderClause(filter shared.Filter, allowed map[string]bool) string {
	column := strings.ToLower(filter.OrderBy)
	if column == "" || !allowed[column] {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(filter.OrderDir, "asc") {
		direction = "ASC"
	}
	return fmt.Sprintf("%s %s", column, direction)
}
