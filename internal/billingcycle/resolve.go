// Package billingcycle derives canonical billing periods from an
// organization's settings. Resolution is pure: the same settings and
// reference date always yield the same cycle.
package billingcycle

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	settingsdomain "github.com/clubworks/clubledger/internal/billingsettings/domain"
)

// Cycle is one resolved billing period for one organization.
type Cycle struct {
	Key         string    `json:"key"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	DueDate     time.Time `json:"due_date"`
}

var (
	ErrInvalidCycleKey = errors.New("invalid_cycle_key")
)

// Resolve maps a reference date onto the billing period containing it.
//
// MONTHLY periods are calendar months; the due date is the due_day-th day of
// the month, clamped to the month's last day. WEEKLY and CUSTOM_WEEKS periods
// are fixed-length windows laid out from the anchor date; the due date is
// period start + (due_day - 1) days.
func Resolve(settings settingsdomain.BillingSettings, referenceDate time.Time) (Cycle, error) {
	if err := settings.Validate(); err != nil {
		return Cycle{}, err
	}

	ref := truncateToDate(referenceDate)

	switch settings.Cycle {
	case settingsdomain.CycleMonthly:
		start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0)
		due := monthlyDueDate(start, settings.DueDay)
		return newCycle(settings.OrgID, settings.Cycle, start, end, due), nil

	case settingsdomain.CycleWeekly:
		return resolveWindow(settings, ref, 7)

	case settingsdomain.CycleCustomWeeks:
		return resolveWindow(settings, ref, *settings.CycleWeeks*7)

	default:
		return Cycle{}, settingsdomain.ErrInvalidCycle
	}
}

// ParseKey rebuilds a cycle from a previously issued key, validating that the
// key belongs to the organization and matches its current cycle layout.
func ParseKey(settings settingsdomain.BillingSettings, key string) (Cycle, error) {
	if err := settings.Validate(); err != nil {
		return Cycle{}, err
	}

	parts := strings.Split(strings.TrimSpace(key), ":")
	if len(parts) != 3 {
		return Cycle{}, ErrInvalidCycleKey
	}

	orgID, err := snowflake.ParseString(parts[0])
	if err != nil || orgID != settings.OrgID {
		return Cycle{}, ErrInvalidCycleKey
	}
	if settingsdomain.CycleType(parts[1]) != settings.Cycle {
		return Cycle{}, ErrInvalidCycleKey
	}

	start, err := time.ParseInLocation("2006-01-02", parts[2], time.UTC)
	if err != nil {
		return Cycle{}, ErrInvalidCycleKey
	}

	resolved, err := Resolve(settings, start)
	if err != nil {
		return Cycle{}, err
	}
	if !resolved.PeriodStart.Equal(start) {
		// The key's start is not a period boundary under these settings.
		return Cycle{}, ErrInvalidCycleKey
	}
	return resolved, nil
}

// SessionKey derives the per-game uniqueness key for PER_SESSION charges, so
// each game in a period produces its own charge per payer.
func SessionKey(cycle Cycle, gameID snowflake.ID) string {
	return fmt.Sprintf("%s/game:%s", cycle.Key, gameID)
}

func resolveWindow(settings settingsdomain.BillingSettings, ref time.Time, windowDays int) (Cycle, error) {
	anchor := truncateToDate(settings.AnchorDate)
	offsetDays := int(ref.Sub(anchor).Hours() / 24)
	window := floorDiv(offsetDays, windowDays)

	start := anchor.AddDate(0, 0, window*windowDays)
	end := start.AddDate(0, 0, windowDays)
	due := start.AddDate(0, 0, settings.DueDay-1)
	return newCycle(settings.OrgID, settings.Cycle, start, end, due), nil
}

func newCycle(orgID snowflake.ID, cycle settingsdomain.CycleType, start, end, due time.Time) Cycle {
	return Cycle{
		Key:         fmt.Sprintf("%s:%s:%s", orgID, cycle, start.Format("2006-01-02")),
		PeriodStart: start,
		PeriodEnd:   end,
		DueDate:     due,
	}
}

func monthlyDueDate(monthStart time.Time, dueDay int) time.Time {
	lastDay := monthStart.AddDate(0, 1, -1).Day()
	day := dueDay
	if day > lastDay {
		day = lastDay
	}
	return time.Date(monthStart.Year(), monthStart.Month(), day, 0, 0, 0, 0, time.UTC)
}

func truncateToDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// floorDiv divides rounding toward negative infinity, so reference dates
// before the anchor still land in a well-defined window.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
