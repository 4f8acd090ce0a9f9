package service

import (
	"time"

	"github.com/aussiebroadwan/biblenation/internal/account/domain"
)

// StreakResult describes what a login did to an account's streak.
type StreakResult struct {
	Changed   bool
	Milestone bool
}

// AdvanceStreak applies one successful login at now to a. Days are compared
// as calendar dates in loc, so 23:59 followed by 00:01 is consecutive.
func AdvanceStreak(a *domain.Account, now time.Time, loc *time.Location) StreakResult {
	if loc == nil {
		loc = time.Local
	}
	today := calendarDay(now, loc)

	if a.LastLoginAt != nil {
		last := calendarDay(*a.LastLoginAt, loc)
		switch {
		case last.Equal(today):
			return StreakResult{}
		case last.Equal(today.AddDate(0, 0, -1)):
			a.Streak++
			a.LastLoginAt = &now
			return StreakResult{Changed: true, Milestone: isStreakMilestone(a.Streak)}
		}
	}

	a.Streak = 1
	a.LastLoginAt = &now
	return StreakResult{Changed: true}
}

func calendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func isStreakMilestone(n int) bool {
	return n == 7 || n == 30 || (n > 0 && n%100 == 0)
}
