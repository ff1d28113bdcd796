package allMaster

import (
	"regexp"

	"github.com/lib/pq"
)

var heurePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// validHeure reports whether s is a zero-padded HH:MM clock time.
func validHeure(s string) bool {
	return heurePattern.MatchString(s)
}

// int64Array adapts an id slice for ANY($n) predicates through lib/pq.
func int64Array(v []int64) interface{} {
	return pq.Array(v)
}
