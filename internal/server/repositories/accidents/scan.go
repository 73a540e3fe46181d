package accidents

import (
	"database/sql"
	"fmt"

	"github.com/siatlite/casedesk/internal/server/casenumber"
)

// maxParsedSequence reads case numbers from rows and returns the highest
// sequence among those that parse for year.
func maxParsedSequence(rows *sql.Rows, year int) (int, error) {
	defer rows.Close()

	highest := 0
	for rows.Next() {
		var cn string
		if err := rows.Scan(&cn); err != nil {
			return 0, fmt.Errorf("db error: %w", err)
		}
		y, seq, err := casenumber.Parse(cn)
		if err != nil || y != year {
			continue
		}
		if seq > highest {
			highest = seq
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return highest, nil
}
