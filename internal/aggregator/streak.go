package aggregator

import (
	"sort"
	"time"

	"github.com/tim48-robot/disgitbot/internal/domain"
)

// Streaks computes the current and longest run of consecutive calendar days
// from YYYY-MM-DD dates. Duplicates count once and unparsable dates are
// ignored. The current streak runs back from the most recent date, which
// need not be today.
func Streaks(dates []string) (current, longest int) {
	unique := map[string]time.Time{}
	for _, d := range dates {
		t, err := time.Parse(domain.DateLayout, d)
		if err != nil {
			continue
		}
		unique[d] = t
	}
	if len(unique) == 0 {
		return 0, 0
	}

	days := make([]time.Time, 0, len(unique))
	for _, t := range unique {
		days = append(days, t)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	current = 1
	for i := len(days) - 1; i > 0; i-- {
		if dayGap(days[i-1], days[i]) > 1 {
			break
		}
		current++
	}

	longest = 1
	run := 1
	for i := 1; i < len(days); i++ {
		if dayGap(days[i-1], days[i]) <= 1 {
			run++
			longest = max(longest, run)
		} else {
			run = 1
		}
	}

	return current, longest
}

func dayGap(earlier, later time.Time) int {
	return int(later.Sub(earlier).Hours() / 24)
}
