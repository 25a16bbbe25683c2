package agent

import (
	"context"
	"fmt"

	"ragforge/internal/ragerr"
	"ragforge/internal/structured"
	"ragforge/internal/tools"
)

// NewReportTool exposes a ReportEditor as the finalize_report tool. Its
// op argument selects one of set/replace/append/insertAfterHeading/
// replaceSection/deleteSection/finalize; finalize renders the document
// and signals the agent loop that the report is ready.
func NewReportTool(editor *ReportEditor) tools.Tool {
	return tools.Tool{
		Name:        "finalize_report",
		Description: "Incrementally build or finalize the research report document.",
		InputSchema: []*structured.Field{
			{Name: "op", Type: structured.TypeString, Required: true, Enum: []string{
				"set", "replace", "append", "insertAfterHeading", "replaceSection", "deleteSection", "finalize",
			}},
			{Name: "target", Type: structured.TypeString},
			{Name: "heading", Type: structured.TypeString},
			{Name: "body", Type: structured.TypeString},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			op, _ := args["op"].(string)
			target, _ := args["target"].(string)
			heading, _ := args["heading"].(string)
			body, _ := args["body"].(string)

			switch op {
			case "set":
				editor.Set(heading, body)
			case "append":
				editor.Append(heading, body)
			case "replace":
				editor.Replace(target, body)
			case "insertAfterHeading":
				editor.InsertAfterHeading(target, heading, body)
			case "replaceSection":
				editor.ReplaceSection(target, heading, body)
			case "deleteSection":
				editor.DeleteSection(target)
			case "finalize":
				return map[string]any{"report": editor.Finalize(), "finalized": true}, nil
			default:
				return nil, ragerr.New(ragerr.ToolArgsInvalid, "finalize_report", fmt.Errorf("unknown op %q", op))
			}
			return map[string]any{"finalized": false}, nil
		},
	}
}
