package cadetail

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	amountPattern    = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	hourOnlyPattern  = regexp.MustCompile(`^(\d{1,2})$`)
	hourHPattern     = regexp.MustCompile(`^(?i)(\d{1,2})h(\d{1,2})?$`)
	hourColonPattern = regexp.MustCompile(`^(\d{1,2}):(\d{1,2})$`)
)

// ParseAmount converts a locale-formatted amount ("1 234,56") to a decimal.
// Empty or unparseable input yields zero; callers cannot distinguish a
// missing amount from a real zero, which matches the import contract.
func ParseAmount(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	if !amountPattern.MatchString(s) {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseDate accepts DD/MM/YY and DD/MM/YYYY. Two-digit years more than ten
// years past the current two-digit year are placed in the previous century.
// Returns nil for anything that is not a valid calendar date.
func ParseDate(raw string) *time.Time {
	parts := strings.Split(strings.TrimSpace(raw), "/")
	if len(parts) != 3 {
		return nil
	}
	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return nil
	}
	switch len(parts[2]) {
	case 4:
	case 2:
		nowYY := time.Now().Year() % 100
		century := time.Now().Year() - nowYY
		if year > nowYY+10 {
			century -= 100
		}
		year += century
	default:
		return nil
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month || t.Year() != year {
		return nil
	}
	return &t
}

// FormatTime normalizes time tokens ("7", "7H", "7h30", "07:30") to a
// zero-padded HH:MM string. Unrecognized input passes through unchanged so
// the service-window resolution step reports it as an unmatched time.
func FormatTime(raw string) string {
	s := strings.TrimSpace(raw)
	if m := hourOnlyPattern.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		return fmt.Sprintf("%02d:00", h)
	}
	if m := hourHPattern.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mn := 0
		if m[2] != "" {
			mn, _ = strconv.Atoi(m[2])
		}
		return fmt.Sprintf("%02d:%02d", h, mn)
	}
	if m := hourColonPattern.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mn, _ := strconv.Atoi(m[2])
		return fmt.Sprintf("%02d:%02d", h, mn)
	}
	return s
}
