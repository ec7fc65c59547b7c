package pg

import (
	"fmt"
	"strings"

	"github.com/jvollmer/go-flow/engine"
)

func where(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conditions, " AND ")
}

// orderAndPage orders query results by insertion (ID) and applies the query
// options.
func orderAndPage(options engine.QueryOptions) string {
	var sb strings.Builder
	sb.WriteString(" ORDER BY id")

	if options.Limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", options.Limit))
	}
	if options.Offset > 0 {
		sb.WriteString(fmt.Sprintf(" OFFSET %d", options.Offset))
	}

	return sb.String()
}

func joinInstanceStates(values []engine.InstanceState) string {
	s := make([]string, len(values))
	for i, v := range values {
		s[i] = quoteString(v.String())
	}
	return strings.Join(s, ",")
}

func joinTokenStates(values []engine.TokenState) string {
	s := make([]string, len(values))
	for i, v := range values {
		s[i] = quoteString(v.String())
	}
	return strings.Join(s, ",")
}

func joinActivityStates(values []engine.ActivityState) string {
	s := make([]string, len(values))
	for i, v := range values {
		s[i] = quoteString(v.String())
	}
	return strings.Join(s, ",")
}

func joinTaskStates(values []engine.TaskState) string {
	s := make([]string, len(values))
	for i, v := range values {
		s[i] = quoteString(v.String())
	}
	return strings.Join(s, ",")
}

// copied from https://github.com/jackc/pgx/blob/v5.5.0/internal/sanitize/sanitize.go#L90
func quoteString(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
