package storage

import (
	"context"
	"fmt"
)

// RecentSessions returns the n most recently observed distinct session
// identifiers, newest first. Recency is the latest claim creation time seen
// for each session, so an old session that receives a new claim counts as
// recent again.
func (s *Store) RecentSessions(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT session FROM claims
		 WHERE session != ''
		 GROUP BY session
		 ORDER BY MAX(created_at) DESC
		 LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("storage: recent sessions: %w", err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var sess string
		if err := rows.Scan(&sess); err != nil {
			return nil, fmt.Errorf("storage: scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}
