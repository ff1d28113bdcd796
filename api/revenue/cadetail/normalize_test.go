package cadetail

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"comma decimal", "120,50", "120.5"},
		{"period decimal", "120.50", "120.5"},
		{"thousands space", "1 234,56", "1234.56"},
		{"negative", "-45,00", "-45"},
		{"integer", "300", "300"},
		{"empty", "", "0"},
		{"whitespace only", "   ", "0"},
		{"letters", "abc", "0"},
		{"mixed garbage", "12,34,56", "0"},
		{"currency suffix", "12,50 EUR", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, err := decimal.NewFromString(tt.want)
			require.NoError(t, err)
			got := ParseAmount(tt.raw)
			assert.True(t, got.Equal(want), "ParseAmount(%q) = %s, want %s", tt.raw, got, want)
		})
	}
}

func TestParseDate(t *testing.T) {
	t.Run("four digit year", func(t *testing.T) {
		got := ParseDate("15/01/2024")
		require.NotNil(t, got)
		assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), *got)
	})

	t.Run("two digit year recent", func(t *testing.T) {
		got := ParseDate("15/01/24")
		require.NotNil(t, got)
		assert.Equal(t, 2024, got.Year())
	})

	t.Run("two digit year previous century", func(t *testing.T) {
		// 99 is more than ten years ahead of the current two-digit year,
		// so it lands in the previous century.
		got := ParseDate("31/12/99")
		require.NotNil(t, got)
		assert.Equal(t, 1999, got.Year())
	})

	t.Run("invalid calendar date", func(t *testing.T) {
		assert.Nil(t, ParseDate("31/02/2024"))
		assert.Nil(t, ParseDate("00/01/2024"))
	})

	t.Run("wrong shape", func(t *testing.T) {
		assert.Nil(t, ParseDate("2024-01-15"))
		assert.Nil(t, ParseDate("15/01"))
		assert.Nil(t, ParseDate(""))
		assert.Nil(t, ParseDate("15/01/024"))
		assert.Nil(t, ParseDate("aa/bb/cccc"))
	})

	t.Run("trims whitespace", func(t *testing.T) {
		got := ParseDate("  15/01/2024  ")
		require.NotNil(t, got)
		assert.Equal(t, 15, got.Day())
	})
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"7", "07:00"},
		{"12", "12:00"},
		{"7H", "07:00"},
		{"7h", "07:00"},
		{"7h30", "07:30"},
		{"12H45", "12:45"},
		{"7:5", "07:05"},
		{"07:30", "07:30"},
		{"23:00", "23:00"},
		{" 7h30 ", "07:30"},
		// unrecognized tokens pass through untouched
		{"midi", "midi"},
		{"7h30m", "7h30m"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTime(tt.raw))
		})
	}
}
