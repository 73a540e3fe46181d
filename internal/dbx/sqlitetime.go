package dbx

import "time"

// SQLiteTimeLayout is the fixed-width UTC layout used for TEXT timestamp
// columns in SQLite, so that string order equals time order.
const SQLiteTimeLayout = "2006-01-02T15:04:05.000000Z"

// SQLiteTime renders t for a TEXT timestamp column.
func SQLiteTime(t time.Time) string {
	return t.UTC().Format(SQLiteTimeLayout)
}

// ParseSQLiteTime is the inverse of SQLiteTime.
func ParseSQLiteTime(s string) (time.Time, error) {
	return time.ParseInLocation(SQLiteTimeLayout, s, time.UTC)
}
