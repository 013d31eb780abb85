package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `cronograma-mcp turns a project schedule (project → macro activities → micro activities) into an XLSX file.

Workflow:
1) Build the payload: project.name, macros[] each with name and micros[]; each micro has name and hours (> 0).
2) Call validar to check the payload. Every problem is reported at once as details[{field, issue}].
3) Call gerar_xlsx. The response carries the file as base64 and a temporary download_url (valid until download_expires_at).

Rules:
- Never send hours for a macro or for the project: they are always the sum of their children.
- A macro must always contain at least 1 micro.
- Durations are shown as H:MM:SS and may exceed 24 hours.
- Row count = project row (optional) + macros + micros; it may not exceed settings.max_rows (default set by the server).

Docs:
- cronograma://docs/payload (payload fields and examples)
- cronograma://docs/errors (error codes)
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "cronograma://docs/payload",
		Name:        "docs_payload",
		Title:       "Schedule payload",
		Description: "Fields accepted by gerar_xlsx and validar, with an example.",
		Content: `# Schedule payload

Arguments are ` + "`{\"payload\": {...}}`" + ` or the payload object itself.

| Field | Required | Notes |
|---|---|---|
| ` + "`project.name`" + ` | yes | non-empty |
| ` + "`project.owner`" + ` | no | shown in the Responsável column of the project row |
| ` + "`macros[]`" + ` | yes | at least one |
| ` + "`macros[].name`" + ` | yes | non-empty |
| ` + "`macros[].responsible`" + ` | no | |
| ` + "`macros[].micros[]`" + ` | yes | at least one |
| ` + "`macros[].micros[].name`" + ` | yes | non-empty |
| ` + "`macros[].micros[].hours`" + ` | yes | > 0; a number, a numeric string, or ` + "`H:MM:SS`" + ` |
| ` + "`macros[].micros[].responsible`" + ` | no | |
| ` + "`settings.max_rows`" + ` | no | positive; overrides the server ceiling |
| ` + "`settings.include_project_row`" + ` | no | default true |
| ` + "`settings.sheet_name`" + ` | no | default Planilha1; max 31 chars, none of ` + "`[]:*?/\\`" + `, no leading or trailing apostrophe, not MCP_Instruções |
| ` + "`settings.format_version`" + ` | no | echoed in the response |

## Example

` + "```json" + `
{"payload": {
  "project": {"name": "Alpha", "owner": "PMO"},
  "macros": [
    {"name": "Discovery", "responsible": "Arch", "micros": [
      {"name": "Interviews", "hours": 8, "responsible": "PO"},
      {"name": "Report", "hours": "2:30:00"}
    ]}
  ]
}}
` + "```" + `

The sheet has three columns: Nome da Tarefa | Duração | Responsável.
Rows are written project, then each macro followed by its micros (indented).
`,
	},
	{
		URI:         "cronograma://docs/errors",
		Name:        "docs_errors",
		Title:       "Error codes",
		Description: "Failure responses returned by the tools and the download route.",
		Content: `# Error codes

Failures return ` + "`{\"ok\": false, \"error_code\", \"message\", \"details\": [{\"field\", \"issue\"}]}`" + `.

- ` + "`VALIDATION_ERROR`" + `: one or more field issues. Fix every listed field and retry.
- ` + "`MAX_ROWS_EXCEEDED`" + `: ` + "`row_count`" + ` is above ` + "`max_rows`" + `. Details still list any structural issue.
- ` + "`NOT_FOUND`" + `: the download token is unknown, expired, or its file is gone. Generate again.
- ` + "`INTERNAL_ERROR`" + `: rendering or storage failed. Nothing was registered; retrying is safe.

Download links can be used repeatedly until they expire.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
