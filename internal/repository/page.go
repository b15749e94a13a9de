package repository

import (
	"strings"
)

// Page selects a window of a listing.
type Page struct {
	Limit  int
	Offset int
}

// placeholders returns "?,?,?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// containsPattern matches s anywhere in a column compared with
// LIKE ? ESCAPE '!'. Wildcards typed by the caller match literally.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func idArgs(ids []uint64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
