package models

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

type PeriodKind string

const (
	PeriodMonth PeriodKind = "month"
	PeriodWeek  PeriodKind = "week"
)

var (
	ErrBadPeriod = errors.New("period id must be YYYY-MM or YYYY-Www")

	monthRe = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
	weekRe  = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)
)

// Period is a calendar-aligned reporting period: a month ("2025-08") or an
// ISO week ("2025-W32"). Arbitrary date ranges are not representable here,
// which is what keeps them out of the year-over-year comparator.
type Period struct {
	Kind PeriodKind
	Year int
	Num  int // month 1-12 or ISO week 1-53
}

func ParsePeriod(id string) (Period, error) {
	if m := monthRe.FindStringSubmatch(id); m != nil {
		year, _ := strconv.Atoi(m[1])
		num, _ := strconv.Atoi(m[2])
		if num < 1 || num > 12 {
			return Period{}, fmt.Errorf("%w: month %d out of range", ErrBadPeriod, num)
		}
		return Period{Kind: PeriodMonth, Year: year, Num: num}, nil
	}
	if m := weekRe.FindStringSubmatch(id); m != nil {
		year, _ := strconv.Atoi(m[1])
		num, _ := strconv.Atoi(m[2])
		if num < 1 || num > 53 {
			return Period{}, fmt.Errorf("%w: week %d out of range", ErrBadPeriod, num)
		}
		return Period{Kind: PeriodWeek, Year: year, Num: num}, nil
	}
	return Period{}, fmt.Errorf("%w: %q", ErrBadPeriod, id)
}

func (p Period) String() string {
	if p.Kind == PeriodWeek {
		return fmt.Sprintf("%04d-W%02d", p.Year, p.Num)
	}
	return fmt.Sprintf("%04d-%02d", p.Year, p.Num)
}

// PrevYear is the same calendar period one year earlier. A week 53 may not
// exist in the prior year; the comparator then simply finds no snapshot.
func (p Period) PrevYear() Period {
	return Period{Kind: p.Kind, Year: p.Year - 1, Num: p.Num}
}

// Aligned reports whether two periods cover the same slot of the calendar
// (same kind and number), which is the precondition for a YoY comparison.
func (p Period) Aligned(other Period) bool {
	return p.Kind == other.Kind && p.Num == other.Num
}
