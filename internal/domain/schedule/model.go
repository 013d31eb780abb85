package schedule

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ganot/cronograma-mcp/internal/duration"
)

// ContentType is the media type of rendered schedules.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DefaultSheetName is used when the request does not name the sheet.
const DefaultSheetName = "Planilha1"

// InstructionsSheetName is the sheet reserved for usage notes in every workbook.
const InstructionsSheetName = "MCP_Instruções"

// Project is the root of a schedule.
type Project struct {
	Name  string `json:"name"`
	Owner string `json:"owner,omitempty"`
}

// MicroActivity is a leaf task carrying its own hours.
type MicroActivity struct {
	Name        string `json:"name"`
	Hours       Hours  `json:"hours"`
	Responsible string `json:"responsible,omitempty"`
}

// MacroActivity groups micro activities. A valid macro always has at least one micro.
type MacroActivity struct {
	Name        string          `json:"name"`
	Responsible string          `json:"responsible,omitempty"`
	Micros      []MicroActivity `json:"micros"`
}

// Settings are per-request overrides.
type Settings struct {
	MaxRows           *int   `json:"max_rows,omitempty"`
	IncludeProjectRow *bool  `json:"include_project_row,omitempty"`
	SheetName         string `json:"sheet_name,omitempty"`
	FormatVersion     string `json:"format_version,omitempty"`
}

// Request is a full schedule payload.
type Request struct {
	Project  *Project        `json:"project"`
	Macros   []MacroActivity `json:"macros"`
	Settings *Settings       `json:"settings,omitempty"`

	// decodeIssues are nodes Decode found with the wrong JSON type.
	decodeIssues []FieldIssue
}

// IncludesProjectRow reports whether the project row is rendered. Defaults to true.
func (r *Request) IncludesProjectRow() bool {
	if r.Settings == nil || r.Settings.IncludeProjectRow == nil {
		return true
	}
	return *r.Settings.IncludeProjectRow
}

// SheetName returns the requested sheet name or DefaultSheetName.
func (r *Request) SheetName() string {
	if r.Settings == nil || strings.TrimSpace(r.Settings.SheetName) == "" {
		return DefaultSheetName
	}
	return strings.TrimSpace(r.Settings.SheetName)
}

// FormatVersion returns the requested format version or fallback.
func (r *Request) FormatVersion(fallback string) string {
	if r.Settings == nil || strings.TrimSpace(r.Settings.FormatVersion) == "" {
		return fallback
	}
	return strings.TrimSpace(r.Settings.FormatVersion)
}

type hoursState uint8

const (
	hoursAbsent hoursState = iota
	hoursValid
	hoursInvalid
)

// Hours is a micro activity's duration in fractional hours. It decodes from a
// JSON number, a numeric string, or "H:MM:SS" text, and remembers whether the
// value was absent or malformed so validation can report it per field instead
// of failing the whole payload.
type Hours struct {
	value float64
	state hoursState
}

// NewHours returns a present, well-formed value.
func NewHours(v float64) Hours {
	return Hours{value: v, state: hoursValid}
}

// Value returns the decoded hours; zero unless Valid.
func (h Hours) Value() float64 {
	return h.value
}

// Present reports whether the field carried a non-null value.
func (h Hours) Present() bool {
	return h.state != hoursAbsent
}

// Valid reports whether the value decoded to a finite number.
func (h Hours) Valid() bool {
	return h.state == hoursValid
}

// UnmarshalJSON implements json.Unmarshaler.
func (h *Hours) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*h = Hours{}
		return nil
	}

	text := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*h = Hours{state: hoursInvalid}
			return nil
		}
		text = strings.TrimSpace(s)
		if v, err := duration.DecodeHours(text); err == nil {
			*h = NewHours(v)
			return nil
		}
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		*h = Hours{state: hoursInvalid}
		return nil
	}
	*h = NewHours(v)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (h Hours) MarshalJSON() ([]byte, error) {
	if !h.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(h.value)
}

// ArtifactEntry is a registered, downloadable artifact.
type ArtifactEntry struct {
	Token     string    `json:"-"`
	Location  string    `json:"-"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
