package dbx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteTime_RoundTripAndOrder(t *testing.T) {
	loc := time.FixedZone("EET", 2*60*60)
	a := time.Date(2025, 1, 2, 12, 0, 0, 123456000, loc)
	b := a.Add(500 * time.Microsecond)
	c := a.Add(10 * time.Second)

	sa, sb, sc := SQLiteTime(a), SQLiteTime(b), SQLiteTime(c)
	assert.Equal(t, "2025-01-02T10:00:00.123456Z", sa)
	assert.Less(t, sa, sb)
	assert.Less(t, sb, sc)

	got, err := ParseSQLiteTime(sa)
	require.NoError(t, err)
	assert.True(t, got.Equal(a))
	assert.Equal(t, time.UTC, got.Location())
}
