package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Date parses a JSON date as either date-only ("2006-01-02") or RFC3339.
// Date-only is stored as start of that day in UTC. Missing or empty is zero.
type Date struct{ t time.Time }

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		d.t = time.Time{}
		return nil
	}
	s := strings.TrimSpace(*raw)
	layouts := []string{
		"2006-01-02",
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			d.t = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("date: use YYYY-MM-DD or RFC3339 datetime")
}

// Time returns the parsed value, zero if none was sent.
func (d Date) Time() time.Time { return d.t }
