package storage

import (
	"net/url"
	"sort"
	"strings"

	"github.com/julianstephens/cadence/internal/models"
)

// SortDefinitions orders definitions by creation time, then id.
func SortDefinitions(defs []models.ActivityDefinition) {
	sort.SliceStable(defs, func(i, j int) bool {
		if !defs[i].CreatedAt.Equal(defs[j].CreatedAt) {
			return defs[i].CreatedAt.Before(defs[j].CreatedAt)
		}
		return defs[i].ID < defs[j].ID
	})
}

// IsPostgresConnString reports whether a config value addresses PostgreSQL
// rather than a SQLite file.
func IsPostgresConnString(s string) bool {
	return strings.HasPrefix(s, "postgres://") || strings.HasPrefix(s, "postgresql://") || strings.Contains(s, "host=")
}

// HasEmbeddedCredentials reports whether a PostgreSQL connection string
// carries a password, in URL or key=value form.
func HasEmbeddedCredentials(connStr string) bool {
	if u, err := url.Parse(connStr); err == nil && u.Scheme != "" {
		if _, ok := u.User.Password(); ok {
			return true
		}
		if u.Query().Get("password") != "" {
			return true
		}
	}
	for _, part := range strings.Fields(connStr) {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) == 2 && strings.EqualFold(kv[0], "password") && kv[1] != "" {
			return true
		}
	}
	return false
}
