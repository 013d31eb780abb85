package schedule

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Decode turns raw JSON into a Request. Only an empty body, malformed JSON or
// a non-object root fail here. A node of the wrong type is left at its zero
// value and remembered as a positional issue, which Validate reports together
// with every other rule violation.
func Decode(data []byte) (*Request, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, payloadError("is required")
	}

	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, payloadError(fmt.Sprintf("is not valid JSON (offset %d)", syntaxErr.Offset))
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, payloadError(fmt.Sprintf("must be a JSON object (got %s)", typeErr.Value))
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	var d decoder
	req := &Request{}
	if fields, ok := d.object(root["project"], "project"); ok {
		req.Project = &Project{}
		d.str(fields["name"], "project.name", &req.Project.Name)
		d.str(fields["owner"], "project.owner", &req.Project.Owner)
	}

	if items, ok := d.list(root["macros"], "macros"); ok {
		req.Macros = make([]MacroActivity, len(items))
		for i, raw := range items {
			d.macro(raw, fmt.Sprintf("macros[%d]", i), &req.Macros[i])
		}
	}

	if fields, ok := d.object(root["settings"], "settings"); ok {
		s := &Settings{}
		if raw := fields["max_rows"]; !isNull(raw) {
			var n int
			if err := json.Unmarshal(raw, &n); err != nil {
				d.mistyped("settings.max_rows", "an integer", raw)
			} else {
				s.MaxRows = &n
			}
		}
		if raw := fields["include_project_row"]; !isNull(raw) {
			var b bool
			if err := json.Unmarshal(raw, &b); err != nil {
				d.mistyped("settings.include_project_row", "a boolean", raw)
			} else {
				s.IncludeProjectRow = &b
			}
		}
		d.str(fields["sheet_name"], "settings.sheet_name", &s.SheetName)
		d.str(fields["format_version"], "settings.format_version", &s.FormatVersion)
		req.Settings = s
	}

	req.decodeIssues = d.issues
	return req, nil
}

func payloadError(issue string) *ValidationError {
	return &ValidationError{
		Kind:   KindValidation,
		Issues: []FieldIssue{{Field: "payload", Issue: issue}},
	}
}

// decoder walks the payload node by node so one mistyped node does not hide
// the rest.
type decoder struct {
	issues []FieldIssue
}

func (d *decoder) macro(raw json.RawMessage, path string, out *MacroActivity) {
	fields, ok := d.object(raw, path)
	if !ok {
		return
	}
	d.str(fields["name"], path+".name", &out.Name)
	d.str(fields["responsible"], path+".responsible", &out.Responsible)

	items, ok := d.list(fields["micros"], path+".micros")
	if !ok {
		return
	}
	out.Micros = make([]MicroActivity, len(items))
	for j, item := range items {
		mp := fmt.Sprintf("%s.micros[%d]", path, j)
		mf, ok := d.object(item, mp)
		if !ok {
			continue
		}
		d.str(mf["name"], mp+".name", &out.Micros[j].Name)
		d.str(mf["responsible"], mp+".responsible", &out.Micros[j].Responsible)
		// Hours never fails to decode; bad values are judged by Validate.
		if raw := mf["hours"]; raw != nil {
			_ = out.Micros[j].Hours.UnmarshalJSON(raw)
		}
	}
}

func (d *decoder) object(raw json.RawMessage, path string) (map[string]json.RawMessage, bool) {
	if isNull(raw) {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		d.mistyped(path, "an object", raw)
		return nil, false
	}
	return fields, true
}

func (d *decoder) list(raw json.RawMessage, path string) ([]json.RawMessage, bool) {
	if isNull(raw) {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		d.mistyped(path, "a list", raw)
		return nil, false
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	return items, true
}

func (d *decoder) str(raw json.RawMessage, path string, out *string) {
	if isNull(raw) {
		return
	}
	if err := json.Unmarshal(raw, out); err != nil {
		d.mistyped(path, "a string", raw)
	}
}

func (d *decoder) mistyped(path, want string, raw json.RawMessage) {
	d.issues = append(d.issues, FieldIssue{
		Field: path,
		Issue: fmt.Sprintf("must be %s (got %s)", want, jsonKind(raw)),
	})
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func jsonKind(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "nothing"
	}
	switch raw[0] {
	case '{':
		return "object"
	case '[':
		return "list"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}
