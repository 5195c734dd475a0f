// Package viewhelpers holds the formatting, export and animation helpers
// used when rendering pages.
package viewhelpers

import (
	"strconv"
	"strings"
	"time"

	"expensetracker/internal/core"
)

// FormatCurrency formats an amount in rupees with Indian digit grouping and
// zero to two fraction digits, e.g. "₹1,00,000", "₹12.5", "-₹0.05".
func FormatCurrency(m core.Money) string {
	neg := m.Cents < 0
	cents := uint64(m.Cents)
	if neg {
		cents = uint64(-m.Cents)
	}
	s := "₹" + groupIndian(strconv.FormatUint(cents/100, 10))
	switch rem := int64(cents % 100); {
	case rem == 0:
	case rem%10 == 0:
		s += "." + strconv.FormatInt(rem/10, 10)
	default:
		s += "." + twoDigits(rem)
	}
	if neg {
		return "-" + s
	}
	return s
}

// FormatNumber formats an integer with Indian digit grouping.
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + groupIndian(strconv.FormatUint(uint64(-n), 10))
	}
	return groupIndian(strconv.FormatInt(n, 10))
}

// groupIndian inserts separators in a run of digits: the last three digits
// form one group and the rest are grouped in pairs ("12,34,567").
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var b strings.Builder
	if lead := len(head) % 2; lead == 1 {
		b.WriteString(head[:1])
		head = head[1:]
	} else {
		b.WriteString(head[:2])
		head = head[2:]
	}
	for len(head) > 0 {
		b.WriteByte(',')
		b.WriteString(head[:2])
		head = head[2:]
	}
	b.WriteByte(',')
	b.WriteString(tail)
	return b.String()
}

func twoDigits(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

// FormatDate formats a date as "24 Sep 2024".
func FormatDate(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2 Jan 2006")
}

// FormatTime turns a 24-hour "HH:MM" into "hh:mm am|pm". Input that does not
// parse is returned unchanged.
func FormatTime(hhmm string) string {
	s := strings.TrimSpace(hhmm)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("03:04 pm")
		}
	}
	return hhmm
}
