package persistence

import (
	"strings"

	"gorm.io/gorm/clause"
)

// sortColumn builds the ORDER BY term for a client supplied field and
// direction. Fields outside allowed fall back to def and anything but "asc"
// sorts descending, so request input never reaches the SQL text.
func sortColumn(field, dir string, allowed map[string]bool, def string) clause.OrderByColumn {
	name := strings.TrimSpace(field)
	if !allowed[name] {
		name = def
	}
	return clause.OrderByColumn{
		Column: clause.Column{Name: name},
		Desc:   !strings.EqualFold(strings.TrimSpace(dir), "asc"),
	}
}
