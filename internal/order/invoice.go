package order

import (
	"fmt"
	"time"
)

// BusinessDay returns local midnight of the day t falls on in loc.
func BusinessDay(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// FormatInvoice renders PREFIX-YYYYMMDD-NNNN. Sequences above 9999 widen.
func FormatInvoice(prefix string, day time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, day.Format("20060102"), seq)
}
