package cadetail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimeInWindow(t *testing.T) {
	tests := []struct {
		name  string
		t     string
		start string
		end   string
		want  bool
	}{
		{"inside plain window", "12:30", "12:00", "15:00", true},
		{"at window start", "12:00", "12:00", "15:00", true},
		{"at window end", "15:00", "12:00", "15:00", true},
		{"outside plain window", "16:00", "12:00", "15:00", false},
		{"midnight span before midnight", "23:30", "23:00", "03:00", true},
		{"midnight span after midnight", "01:30", "23:00", "03:00", true},
		{"midnight span outside", "12:00", "23:00", "03:00", false},
		{"bad time token", "midi", "12:00", "15:00", false},
		{"bad window bound", "12:30", "noon", "15:00", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TimeInWindow(tt.t, tt.start, tt.end, &ImportNotices{}))
		})
	}
}

func TestTimeInWindowNightRemap(t *testing.T) {
	// 00:30 is compared as 23:00: it falls inside the night window but
	// outside an evening window closing at 22:00.
	notices := &ImportNotices{}
	assert.True(t, TimeInWindow("00:30", "22:30", "23:30", notices))
	assert.False(t, TimeInWindow("00:30", "18:00", "22:00", notices))

	// 03:59 still remaps, 04:00 does not.
	assert.True(t, TimeInWindow("03:59", "22:30", "23:30", notices))
	assert.False(t, TimeInWindow("04:00", "22:30", "23:30", notices))
}

func TestNightRemapNoticeOncePerSession(t *testing.T) {
	notices := &ImportNotices{}
	TimeInWindow("00:30", "23:00", "03:00", notices)
	TimeInWindow("01:45", "23:00", "03:00", notices)
	TimeInWindow("02:15", "23:00", "03:00", notices)

	msgs := notices.Snapshot()
	assert.Len(t, msgs, 1)

	// a plain daytime row adds nothing
	TimeInWindow("12:00", "12:00", "15:00", notices)
	assert.Len(t, notices.Snapshot(), 1)
}
