package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp is an optional instant decoded leniently from the backend.
// Decoding never fails: unparseable input is kept in Raw with Valid false.
type Timestamp struct {
	Raw   string
	Time  time.Time
	Valid bool
}

// ParseTimestamp parses raw into a UTC Timestamp. An empty string yields an absent Timestamp.
func ParseTimestamp(raw string) Timestamp {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Timestamp{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return Timestamp{Raw: raw, Time: t.UTC(), Valid: true}
		}
	}
	return Timestamp{Raw: raw}
}

// NewTimestamp wraps a known-good instant.
func NewTimestamp(t time.Time) Timestamp {
	t = t.UTC()
	return Timestamp{Raw: t.Format(time.RFC3339Nano), Time: t, Valid: true}
}

// Present reports whether the field was supplied at all, valid or not.
func (t Timestamp) Present() bool {
	return t.Raw != ""
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = Timestamp{}
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = ParseTimestamp(s)
		return nil
	}

	// Epoch milliseconds
	if ms, err := strconv.ParseInt(string(b), 10, 64); err == nil {
		*t = NewTimestamp(time.UnixMilli(ms))
		return nil
	}

	*t = Timestamp{Raw: string(b)}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.Present() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Raw)
}

// Amount is a monetary value. Missing or non-numeric input decodes to 0.
type Amount float64

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*a = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		*a = 0
		return nil
	}
	*a = Amount(v)
	return nil
}

func (a Amount) Float64() float64 {
	return float64(a)
}

// String renders the shortest decimal form, e.g. 100 -> "100", 50.2 -> "50.2".
func (a Amount) String() string {
	return decimal.NewFromFloat(float64(a)).String()
}

// PlanRef is a plan reference that the backend sends either as a bare id
// or as a populated object.
type PlanRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

func (p *PlanRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*p = PlanRef{}
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	if b[0] == '"' {
		var id string
		if err := json.Unmarshal(b, &id); err == nil {
			p.ID = id
		}
		return nil
	}

	var obj struct {
		ID      string `json:"id"`
		MongoID string `json:"_id"`
		Name    string `json:"name"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil
	}
	p.ID = obj.ID
	if p.ID == "" {
		p.ID = obj.MongoID
	}
	p.Name = obj.Name
	return nil
}
