package schedule_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ganot/cronograma-mcp/internal/domain/schedule"
	"github.com/stretchr/testify/require"
)

func micro(name string, hours float64) schedule.MicroActivity {
	return schedule.MicroActivity{Name: name, Hours: schedule.NewHours(hours)}
}

func alphaRequest() *schedule.Request {
	return &schedule.Request{
		Project: &schedule.Project{Name: "Alpha"},
		Macros: []schedule.MacroActivity{
			{Name: "M1", Micros: []schedule.MicroActivity{micro("T1", 8), micro("T2", 4)}},
		},
	}
}

func ptr[T any](v T) *T { return &v }

func issueFields(t *testing.T, err error) []string {
	t.Helper()
	var verr *schedule.ValidationError
	require.True(t, errors.As(err, &verr))
	fields := make([]string, 0, len(verr.Issues))
	for _, issue := range verr.Issues {
		fields = append(fields, issue.Field)
	}
	return fields
}

func TestValidate_Valid(t *testing.T) {
	rows, err := schedule.Validate(alphaRequest(), 500)
	require.NoError(t, err)
	require.Equal(t, 4, rows)
}

func TestValidate_EmptyMicrosAlwaysRejected(t *testing.T) {
	req := alphaRequest()
	req.Macros = append(req.Macros, schedule.MacroActivity{Name: "M2", Micros: []schedule.MicroActivity{}})
	req.Settings = &schedule.Settings{MaxRows: ptr(1000), IncludeProjectRow: ptr(false)}

	_, err := schedule.Validate(req, 500)
	require.ErrorIs(t, err, schedule.ErrValidation)
	require.NotErrorIs(t, err, schedule.ErrRowLimitExceeded)
	require.Equal(t, []string{"macros[1].micros"}, issueFields(t, err))

	var verr *schedule.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, schedule.KindValidation, verr.Kind)
}

func TestValidate_NilMicrosRejected(t *testing.T) {
	req := alphaRequest()
	req.Macros[0].Micros = nil
	_, err := schedule.Validate(req, 500)
	require.Equal(t, []string{"macros[0].micros"}, issueFields(t, err))
}

func TestValidate_AccumulatesAllIssues(t *testing.T) {
	req := &schedule.Request{
		Project: &schedule.Project{Name: "  "},
		Macros: []schedule.MacroActivity{
			{Name: "", Micros: []schedule.MicroActivity{
				{Name: "", Hours: schedule.NewHours(0)},
				{Name: "ok", Hours: schedule.NewHours(-2)},
				{Name: "ok"},
			}},
			{Name: "M2"},
		},
		Settings: &schedule.Settings{MaxRows: ptr(0), SheetName: "bad/name"},
	}

	_, err := schedule.Validate(req, 500)
	require.Equal(t, []string{
		"project.name",
		"macros[0].name",
		"macros[0].micros[0].name",
		"macros[0].micros[0].hours",
		"macros[0].micros[1].hours",
		"macros[0].micros[2].hours",
		"macros[1].micros",
		"settings.max_rows",
		"settings.sheet_name",
	}, issueFields(t, err))
}

func TestValidate_MissingRoots(t *testing.T) {
	_, err := schedule.Validate(&schedule.Request{}, 500)
	require.Equal(t, []string{"project", "macros"}, issueFields(t, err))

	_, err = schedule.Validate(nil, 500)
	require.Equal(t, []string{"project", "macros"}, issueFields(t, err))

	_, err = schedule.Validate(&schedule.Request{Project: &schedule.Project{Name: "A"}, Macros: []schedule.MacroActivity{}}, 500)
	require.Equal(t, []string{"macros"}, issueFields(t, err))
}

func TestValidate_InvalidHours(t *testing.T) {
	req, err := schedule.Decode([]byte(`{"project":{"name":"A"},"macros":[{"name":"M","micros":[
		{"name":"a","hours":"abc"},
		{"name":"b","hours":null},
		{"name":"c","hours":true}
	]}]}`))
	require.NoError(t, err)

	_, err = schedule.Validate(req, 500)
	var verr *schedule.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, []schedule.FieldIssue{
		{Field: "macros[0].micros[0].hours", Issue: "hours must be numeric"},
		{Field: "macros[0].micros[1].hours", Issue: "hours is required"},
		{Field: "macros[0].micros[2].hours", Issue: "hours must be numeric"},
	}, verr.Issues)
}

func TestValidate_RowLimitExceeded(t *testing.T) {
	micros := make([]schedule.MicroActivity, 300)
	for i := range micros {
		micros[i] = micro(fmt.Sprintf("T%d", i), 1)
	}
	req := &schedule.Request{
		Project:  &schedule.Project{Name: "Big"},
		Macros:   []schedule.MacroActivity{{Name: "M1", Micros: micros}},
		Settings: &schedule.Settings{MaxRows: ptr(100)},
	}

	rows, err := schedule.Validate(req, 500)
	require.Equal(t, 302, rows)
	require.ErrorIs(t, err, schedule.ErrRowLimitExceeded)
	require.ErrorIs(t, err, schedule.ErrValidation)

	var verr *schedule.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, schedule.KindRowLimitExceeded, verr.Kind)
	require.Equal(t, 302, verr.RowCount)
	require.Equal(t, 100, verr.Limit)
	require.Equal(t, []string{"total_rows"}, issueFields(t, err))
	require.Contains(t, verr.Error(), "302")
}

func TestValidate_RowLimitKeepsStructuralIssues(t *testing.T) {
	req := alphaRequest()
	req.Project.Name = ""
	req.Settings = &schedule.Settings{MaxRows: ptr(2)}

	_, err := schedule.Validate(req, 500)
	require.ErrorIs(t, err, schedule.ErrRowLimitExceeded)
	require.Equal(t, []string{"project.name", "total_rows"}, issueFields(t, err))
}

func TestValidate_UsesDefaultCeiling(t *testing.T) {
	_, err := schedule.Validate(alphaRequest(), 3)
	require.ErrorIs(t, err, schedule.ErrRowLimitExceeded)

	_, err = schedule.Validate(alphaRequest(), 4)
	require.NoError(t, err)
}

func TestRowCount(t *testing.T) {
	req := &schedule.Request{
		Project: &schedule.Project{Name: "A"},
		Macros: []schedule.MacroActivity{
			{Name: "M1", Micros: []schedule.MicroActivity{micro("a", 1), micro("b", 1)}},
			{Name: "M2", Micros: []schedule.MicroActivity{micro("c", 1)}},
		},
	}
	require.Equal(t, 1+(1+2)+(1+1), schedule.RowCount(req))

	req.Settings = &schedule.Settings{IncludeProjectRow: ptr(false)}
	require.Equal(t, (1+2)+(1+1), schedule.RowCount(req))
	require.Equal(t, 0, schedule.RowCount(nil))
}

func TestValidate_SheetNameTooLong(t *testing.T) {
	req := alphaRequest()
	req.Settings = &schedule.Settings{SheetName: strings.Repeat("x", 32)}
	_, err := schedule.Validate(req, 500)
	require.Equal(t, []string{"settings.sheet_name"}, issueFields(t, err))

	req.Settings.SheetName = strings.Repeat("x", 31)
	_, err = schedule.Validate(req, 500)
	require.NoError(t, err)
}

func TestValidate_SheetNameRejectedByWorkbook(t *testing.T) {
	for _, name := range []string{"'x'", "'Plano", "Plano'", "mcp_instruções", "MCP_INSTRUÇÕES"} {
		req := alphaRequest()
		req.Settings = &schedule.Settings{SheetName: name}
		_, err := schedule.Validate(req, 500)
		require.Equal(t, []string{"settings.sheet_name"}, issueFields(t, err), "sheet_name=%q", name)
	}

	req := alphaRequest()
	req.Settings = &schedule.Settings{SheetName: "Plano d'obra"}
	_, err := schedule.Validate(req, 500)
	require.NoError(t, err)
}
