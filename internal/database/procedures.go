package database

import (
	"context"
	"fmt"
	"strings"

	"fitsync-go/internal/fitsync"
)

// SearchLimit caps the rows returned by search_new_crew.
const SearchLimit = 20

type procedure func(ctx context.Context, s *SQLiteStore, args fitsync.Row) ([]fitsync.Row, error)

var procedures = map[string]procedure{
	fitsync.ProcSearchNewCrew: searchNewCrew,
}

// searchNewCrew matches search_term against usernames and display names,
// ignoring case. Private profiles are never returned.
func searchNewCrew(ctx context.Context, s *SQLiteStore, args fitsync.Row) ([]fitsync.Row, error) {
	term, ok := args["search_term"].(string)
	if !ok {
		return nil, &fitsync.RemoteError{
			Message: "search_new_crew requires a text search_term",
			Code:    "22023",
		}
	}
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(term))) + "%"
	stmt := fmt.Sprintf(`SELECT id, display_name, avatar_url, username FROM %s
		WHERE is_private = 0
		  AND (lower(coalesce(username, '')) LIKE ? ESCAPE '\'
		    OR lower(display_name) LIKE ? ESCAPE '\')
		ORDER BY username IS NULL, username, display_name
		LIMIT %d`, fitsync.TableProfiles, SearchLimit)
	return s.query(ctx, s.db, tables[fitsync.TableProfiles], stmt, pattern, pattern)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
