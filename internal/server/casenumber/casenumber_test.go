package casenumber

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		year, seq int
		want      string
	}{
		{2025, 1, "ACC-2025-001"},
		{2025, 7, "ACC-2025-007"},
		{2025, 42, "ACC-2025-042"},
		{2025, 999, "ACC-2025-999"},
		{2025, 1000, "ACC-2025-1000"},
		{2026, 12345, "ACC-2026-12345"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.year, tt.seq))
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	year, seq, err := Parse("ACC-2025-007")
	require.NoError(t, err)
	assert.Equal(t, 2025, year)
	assert.Equal(t, 7, seq)
	assert.Equal(t, "ACC-2025-007", Format(year, seq))

	year, seq, err = Parse("ACC-2025-1000")
	require.NoError(t, err)
	assert.Equal(t, 2025, year)
	assert.Equal(t, 1000, seq)
}

func TestParse_Malformed(t *testing.T) {
	for _, s := range []string{
		"",
		"ACC-2025",
		"ACC-2025-",
		"ACC-2025-07",
		"ACC-2025-0007",
		"ACC-2025-000",
		"ACC-25-007",
		"acc-2025-007",
		"ACC-2025-00x",
		"ACC-2025-+07",
		"ACC-2025-007-1",
		"XYZ-2025-007",
		"TMP-20250101-101010-deadbeef",
	} {
		t.Run(s, func(t *testing.T) {
			_, _, err := Parse(s)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestFallback(t *testing.T) {
	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

	a := Fallback(now)
	b := Fallback(now)

	assert.Regexp(t, regexp.MustCompile(`^TMP-20250304-050607-[0-9a-f]{8}$`), a)
	assert.NotEqual(t, a, b)
	assert.True(t, IsFallback(a))
	assert.False(t, IsFallback("ACC-2025-001"))

	_, _, err := Parse(a)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "ACC-2025-%", LikePattern(2025))
}
