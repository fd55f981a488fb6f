package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// TimelineEntry is one scheduled activity of an event.
type TimelineEntry struct {
	Time     string `json:"time"`
	Activity string `json:"activity"`
}

// Timeline is an ordered agenda persisted as JSONB.
type Timeline []TimelineEntry

// Value implements driver.Valuer.
func (t Timeline) Value() (driver.Value, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t)
}

// Scan implements sql.Scanner.
func (t *Timeline) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*t = Timeline{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Timeline", src)
	}
	var entries Timeline
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("decode timeline: %w", err)
	}
	*t = entries
	return nil
}
