package cadetail

import (
	"strconv"
	"strings"
)

const nightRemapMinutes = 23 * 60 // 23:00

// toMinutes converts an HH:MM string to minutes since midnight.
func toMinutes(hhmm string) (int, bool) {
	parts := strings.Split(hhmm, ":")
	if len(parts) != 2 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// TimeInWindow reports whether t (HH:MM) falls inside the [start, end]
// service window. Times between 00:00 and 03:59 belong to the previous
// night's service and are compared as 23:00; the remap is noted once per
// session on notices. Windows where end < start span midnight.
func TimeInWindow(t, start, end string, notices *ImportNotices) bool {
	tm, ok := toMinutes(t)
	if !ok {
		return false
	}
	sm, ok := toMinutes(start)
	if !ok {
		return false
	}
	em, ok := toMinutes(end)
	if !ok {
		return false
	}

	if tm/60 <= 3 {
		tm = nightRemapMinutes
		notices.noteNightRemap()
	}

	if em < sm {
		// window spans midnight, e.g. 23:00 -> 03:00
		return tm >= sm || tm <= em
	}
	return tm >= sm && tm <= em
}
