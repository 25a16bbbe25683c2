package structured

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"
)

// parseOutput parses raw model text per the configured format into a
// generic map, then prunes unknown fields. Returns an error the caller
// should treat as GenOutputMalformed.
func parseOutput(format OutputFormat, raw string, fields []*Field) (map[string]any, error) {
	raw = extractPayload(format, raw)

	var data map[string]any
	var err error
	switch format {
	case FormatJSON:
		data, err = parseJSON(raw)
	case FormatXML:
		data, err = parseXML(raw, fields)
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return nil, err
	}

	pruned := pruneUnknown(fields, data)
	return pruned, nil
}

// extractPayload strips common wrapping the model adds around structured
// output (markdown code fences), a defensive step every teacher-style
// completion wrapper needs since models rarely emit bare JSON/XML.
func extractPayload(format OutputFormat, raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```xml")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

func parseJSON(raw string) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("parse json output: %w", err)
	}
	return data, nil
}

// xmlNode is a generic XML tree; encoding/xml can't unmarshal directly
// into map[string]any, so the structured executor walks a generic node
// first and converts it against the schema afterward.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Content  string     `xml:",chardata"`
	Children []xmlNode  `xml:",any"`
}

func parseXML(raw string, fields []*Field) (map[string]any, error) {
	var root xmlNode
	if err := xml.Unmarshal([]byte("<root>"+raw+"</root>"), &root); err != nil {
		return nil, fmt.Errorf("parse xml output: %w", err)
	}
	return xmlNodeToMap(root, fields), nil
}

// xmlNodeToMap converts root's children into a map following the schema
// shape: object fields become nested maps, array fields collect all
// same-named children, everything else becomes trimmed text.
func xmlNodeToMap(root xmlNode, fields []*Field) map[string]any {
	byName := make(map[string]*Field, len(fields))
	for _, f := range fields {
		byName[f.Name] = f
	}

	out := map[string]any{}
	arrayBuf := map[string][]any{}

	for _, child := range root.Children {
		name := child.XMLName.Local
		f, known := byName[name]
		if !known {
			continue
		}
		switch f.Type {
		case TypeObject:
			out[name] = xmlNodeToMap(child, f.Properties)
		case TypeArray:
			var el any
			if f.Items != nil && f.Items.Type == TypeObject {
				el = xmlNodeToMap(child, f.Items.Properties)
			} else {
				el = strings.TrimSpace(child.Content)
			}
			arrayBuf[name] = append(arrayBuf[name], el)
		case TypeBoolean:
			out[name] = strings.TrimSpace(child.Content) == "true"
		default:
			out[name] = strings.TrimSpace(child.Content)
		}
	}
	for name, items := range arrayBuf {
		out[name] = items
	}
	return out
}
