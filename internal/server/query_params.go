package server

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const dateOnlyLayout = "2006-01-02"

func parseOptionalTime(value string, endOfDay bool) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return &parsed, nil
	}
	if parsed, err := time.Parse(dateOnlyLayout, trimmed); err == nil {
		if endOfDay {
			parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
		}
		return &parsed, nil
	}
	return nil, ErrInvalidRequest
}

// parseDateRange reads the from/to query parameters as an inclusive date
// range: "from" snaps to the start of its day, "to" to the end.
func parseDateRange(fromRaw, toRaw string) (*time.Time, *time.Time, error) {
	from, err := parseOptionalTime(fromRaw, false)
	if err != nil {
		return nil, nil, err
	}
	to, err := parseOptionalTime(toRaw, true)
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func parseOptionalSnowflakeID(value string) (snowflake.ID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	parsed, err := snowflake.ParseString(trimmed)
	if err != nil || parsed == 0 {
		return 0, ErrInvalidRequest
	}
	return parsed, nil
}
