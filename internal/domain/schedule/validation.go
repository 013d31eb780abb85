package schedule

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxSheetNameLen = 31

// RowCount returns the number of rendered rows (header excluded):
// an optional project row, then one row per macro plus one per micro.
func RowCount(req *Request) int {
	if req == nil {
		return 0
	}
	rows := 0
	if req.IncludesProjectRow() {
		rows = 1
	}
	for _, macro := range req.Macros {
		rows += 1 + len(macro.Micros)
	}
	return rows
}

// Ceiling returns the row limit for req: a positive settings.max_rows, else fallback.
func Ceiling(req *Request, fallback int) int {
	if req != nil && req.Settings != nil && req.Settings.MaxRows != nil && *req.Settings.MaxRows > 0 {
		return *req.Settings.MaxRows
	}
	return fallback
}

// Validate checks every structural and numeric rule without stopping at the
// first failure. It returns the computed row count; a non-nil error is always
// a *ValidationError.
func Validate(req *Request, defaultCeiling int) (int, error) {
	if req == nil {
		req = &Request{}
	}

	issues := append([]FieldIssue(nil), req.decodeIssues...)
	add := func(field, format string, args ...any) {
		// A mistyped node and everything below it are already reported.
		if underMistyped(req.decodeIssues, field) {
			return
		}
		issues = append(issues, FieldIssue{Field: field, Issue: fmt.Sprintf(format, args...)})
	}

	if req.Project == nil {
		add("project", "is required")
	} else if strings.TrimSpace(req.Project.Name) == "" {
		add("project.name", "project name is required")
	}

	switch {
	case req.Macros == nil:
		add("macros", "is required")
	case len(req.Macros) == 0:
		add("macros", "must contain at least 1 macro")
	}

	for i, macro := range req.Macros {
		prefix := fmt.Sprintf("macros[%d]", i)
		if strings.TrimSpace(macro.Name) == "" {
			add(prefix+".name", "macro name is required")
		}
		if len(macro.Micros) == 0 {
			// Never negotiable: a macro without micros is rejected whatever else is set.
			add(prefix+".micros", "a macro must always contain at least 1 micro")
			continue
		}
		for j, micro := range macro.Micros {
			mp := fmt.Sprintf("%s.micros[%d]", prefix, j)
			if strings.TrimSpace(micro.Name) == "" {
				add(mp+".name", "micro name is required")
			}
			switch {
			case !micro.Hours.Present():
				add(mp+".hours", "hours is required")
			case !micro.Hours.Valid():
				add(mp+".hours", "hours must be numeric")
			case micro.Hours.Value() <= 0:
				add(mp+".hours", "hours must be greater than 0")
			}
		}
	}

	if s := req.Settings; s != nil {
		if s.MaxRows != nil && *s.MaxRows <= 0 {
			add("settings.max_rows", "must be a positive integer")
		}
		if name := strings.TrimSpace(s.SheetName); name != "" {
			if utf8.RuneCountInString(name) > maxSheetNameLen {
				add("settings.sheet_name", "must be at most %d characters", maxSheetNameLen)
			}
			if strings.ContainsAny(name, `[]:*?/\`) {
				add("settings.sheet_name", `must not contain any of []:*?/\`)
			}
			if strings.HasPrefix(name, "'") || strings.HasSuffix(name, "'") {
				add("settings.sheet_name", "must not start or end with an apostrophe")
			}
			if strings.EqualFold(name, InstructionsSheetName) {
				add("settings.sheet_name", "%q is reserved for the instructions sheet", InstructionsSheetName)
			}
		}
	}

	rows := RowCount(req)
	limit := Ceiling(req, defaultCeiling)
	if rows > limit {
		add("total_rows", "total rows (%d) exceed the limit (%d)", rows, limit)
		return rows, &ValidationError{
			Kind:     KindRowLimitExceeded,
			Issues:   issues,
			RowCount: rows,
			Limit:    limit,
		}
	}

	if len(issues) > 0 {
		return rows, &ValidationError{
			Kind:     KindValidation,
			Issues:   issues,
			RowCount: rows,
			Limit:    limit,
		}
	}
	return rows, nil
}

func underMistyped(mistyped []FieldIssue, field string) bool {
	for _, m := range mistyped {
		if field == m.Field || strings.HasPrefix(field, m.Field+".") || strings.HasPrefix(field, m.Field+"[") {
			return true
		}
	}
	return false
}
