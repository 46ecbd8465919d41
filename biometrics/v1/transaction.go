package v1

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"axiapac.com/biometrics/utils"
)

// Transaction is one punch as returned by /api/v1/transactions-async.
type Transaction struct {
	ID              FlexString `json:"id"`
	EmpCode         FlexString `json:"emp_code"`
	EmpID           FlexString `json:"emp_id"`
	TerminalSN      FlexString `json:"terminal_sn"`
	TerminalID      FlexString `json:"terminal_id"`
	TerminalAlias   string     `json:"terminal_alias"`
	AreaAlias       string     `json:"area_alias"`
	Longitude       NullFloat  `json:"longitude"`
	Latitude        NullFloat  `json:"latitude"`
	UploadTime      string     `json:"upload_time"`
	PunchTime       string     `json:"punch_time"`
	PunchTimeLocal  string     `json:"punch_time_local"`
	PunchTimeOrigin string     `json:"punch_time_origin"`

	// Raw keeps the item exactly as received.
	Raw json.RawMessage `json:"-"`
}

func (t *Transaction) UnmarshalJSON(b []byte) error {
	type alias Transaction
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*t = Transaction(a)
	t.Raw = append(json.RawMessage(nil), b...)
	return nil
}

type Pagination struct {
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	TotalItems int    `json:"totalItems"`
	TotalPages int    `json:"totalPages"`
	DateParam  string `json:"DateParam"`
}

// RequestedDate parses DateParam, falling back to the given date when absent or malformed.
func (p Pagination) RequestedDate(fallback time.Time) time.Time {
	if d, err := utils.ParseISOTime(p.DateParam); err == nil {
		return *d
	}
	return fallback.UTC()
}

type TransactionPage struct {
	Data       []Transaction `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

// FlexString accepts a JSON string, number or null.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	*s = FlexString(b)
	return nil
}

func (s FlexString) String() string {
	return string(s)
}

// NullFloat accepts a JSON number, a numeric string, an empty string or null.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

func (f *NullFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*f = NullFloat{}
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", raw, err)
	}
	f.Float64 = v
	f.Valid = true
	return nil
}

func (f NullFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Float64)
}

func (f NullFloat) Ptr() *float64 {
	if !f.Valid {
		return nil
	}
	return utils.Ptr(f.Float64)
}
