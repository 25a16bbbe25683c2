// Package structured is the 4.D structured executor: it wraps a
// completion.Provider to render schema-driven prompts, parse and
// validate XML/JSON output, and run bounded tool-call loops.
package structured

// FieldType enumerates the typed-variant leaves of an output schema
// tree (object/array/primitive), per §9's "dynamic schemas -> typed
// variants" design note.
type FieldType string

const (
	TypeObject  FieldType = "object"
	TypeArray   FieldType = "array"
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
)

// Field is one node of an output schema tree.
type Field struct {
	Name        string
	Type        FieldType
	Description string
	Required    bool
	Enum        []string
	// Properties is populated when Type == TypeObject.
	Properties []*Field
	// Items describes the element type when Type == TypeArray.
	Items *Field
}

// OutputFormat selects how a structured response is serialised.
type OutputFormat string

const (
	FormatXML  OutputFormat = "xml"
	FormatJSON OutputFormat = "json"
)

// describe renders a human-readable schema description for the prompt,
// one line per field with its type, required flag, and description.
func describe(fields []*Field, indent string) string {
	var out string
	for _, f := range fields {
		req := "optional"
		if f.Required {
			req = "required"
		}
		out += indent + "- " + f.Name + " (" + string(f.Type) + ", " + req + ")"
		if f.Description != "" {
			out += ": " + f.Description
		}
		out += "\n"
		switch f.Type {
		case TypeObject:
			out += describe(f.Properties, indent+"  ")
		case TypeArray:
			if f.Items != nil && f.Items.Type == TypeObject {
				out += describe(f.Items.Properties, indent+"  ")
			}
		}
	}
	return out
}

// requiredFieldsPresent validates that every required field (recursively
// for nested objects) is present and non-empty in the parsed output.
func requiredFieldsPresent(fields []*Field, data map[string]any) bool {
	for _, f := range fields {
		v, ok := data[f.Name]
		if f.Required && (!ok || isEmptyValue(v)) {
			return false
		}
		if !ok {
			continue
		}
		if f.Type == TypeObject {
			nested, ok := v.(map[string]any)
			if ok && !requiredFieldsPresent(f.Properties, nested) {
				return false
			}
		}
	}
	return true
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	default:
		return false
	}
}

// pruneUnknown discards keys not declared in the schema, per §9 "unknown
// fields are discarded on parse".
func pruneUnknown(fields []*Field, data map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	byName := make(map[string]*Field, len(fields))
	for _, f := range fields {
		byName[f.Name] = f
	}
	for k, v := range data {
		if k == "tool_calls" {
			// The tool-loop protocol key lives outside the caller's output
			// schema; always pass it through so extractToolCalls sees it.
			out[k] = v
			continue
		}
		f, ok := byName[k]
		if !ok {
			continue
		}
		if f.Type == TypeObject {
			if nested, ok := v.(map[string]any); ok {
				out[k] = pruneUnknown(f.Properties, nested)
				continue
			}
		}
		if f.Type == TypeArray && f.Items != nil && f.Items.Type == TypeObject {
			if arr, ok := v.([]any); ok {
				items := make([]any, 0, len(arr))
				for _, el := range arr {
					if nested, ok := el.(map[string]any); ok {
						items = append(items, pruneUnknown(f.Items.Properties, nested))
					} else {
						items = append(items, el)
					}
				}
				out[k] = items
				continue
			}
		}
		out[k] = v
	}
	return out
}
