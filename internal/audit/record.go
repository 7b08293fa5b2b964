package audit

import (
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"
)

// UnknownClient is used when a record carries no client name.
const UnknownClient = "Unknown Client"

// ClientField is the field holding the client's display name.
const ClientField = "Client"

// Attachment is a remote or local file reference held in a record field.
type Attachment struct {
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
}

// Record is one audit entry, normalized once at ingestion.
//
// Field values are one of string, float64, bool or []Attachment.
type Record struct {
	ID     string         `json:"id"`
	Client string         `json:"client"`
	Fields map[string]any `json:"fields"`
}

// Normalize builds a Record from an id and a raw field map as decoded from
// JSON. Attachment lists are converted to []Attachment.
func Normalize(id string, fields map[string]any) Record {
	r := Record{ID: id, Fields: make(map[string]any, len(fields))}
	for k, v := range fields {
		if nv, ok := normalizeValue(v); ok {
			r.Fields[k] = nv
		}
	}
	r.Client = clientName(r.Fields[ClientField])
	return r
}

// fromFlat builds a Record from the flat shape {id, ...fields}. A nested
// "fields" object, when present, takes precedence over top-level keys. The
// derived "client" key is not a field.
func fromFlat(raw map[string]any) Record {
	id, _ := raw["id"].(string)
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "id" || k == "client" || k == "fields" {
			continue
		}
		fields[k] = v
	}
	if nested, ok := raw["fields"].(map[string]any); ok {
		for k, v := range nested {
			fields[k] = v
		}
	}
	return Normalize(id, fields)
}

// UnmarshalJSON accepts both the {id, client, fields} shape Record marshals
// to and the flat {id, ...fields} shape, and restores attachment lists.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = fromFlat(raw)
	return nil
}

// HasData reports whether the record carries any field values.
func (r Record) HasData() bool {
	return len(r.Fields) > 0
}

// String returns the field as text. Numbers are formatted without trailing
// zeros; attachment lists are joined by comma.
func (r Record) String(name string) string {
	switch v := r.Fields[name].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case []Attachment:
		urls := make([]string, len(v))
		for i, a := range v {
			urls[i] = a.URL
		}
		return strings.Join(urls, ", ")
	default:
		return ""
	}
}

// FirstString returns the first non-blank text among the named fields.
func (r Record) FirstString(names ...string) (string, bool) {
	for _, name := range names {
		if s := r.String(name); strings.TrimSpace(s) != "" {
			return s, true
		}
	}
	return "", false
}

// Int parses the field as an integer the way a lenient form input would be
// read: numbers are truncated, strings contribute their leading digits.
func (r Record) Int(name string) (int, bool) {
	switch v := r.Fields[name].(type) {
	case float64:
		return int(v), true
	case string:
		return leadingInt(v)
	default:
		return 0, false
	}
}

// Attachments parses an image-bearing field. Both a list of attachments and
// a comma-joined string of URLs or paths are accepted.
func (r Record) Attachments(name string) []Attachment {
	return ParseAttachments(r.Fields[name])
}

// ParseAttachments parses a field value into attachments in original order.
func ParseAttachments(value any) []Attachment {
	switch v := value.(type) {
	case []Attachment:
		out := make([]Attachment, 0, len(v))
		for _, a := range v {
			if a.URL == "" {
				continue
			}
			if a.Filename == "" {
				a.Filename = "Screenshot"
			}
			out = append(out, a)
		}
		return out
	case string:
		var out []Attachment
		for _, part := range strings.Split(v, ",") {
			u := strings.TrimSpace(part)
			if u == "" {
				continue
			}
			out = append(out, Attachment{URL: u, Filename: filenameFromURL(u)})
		}
		return out
	default:
		return nil
	}
}

// WithField returns a copy of the record with one field replaced.
func (r Record) WithField(name string, value any) Record {
	fields := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		fields[k] = v
	}
	fields[name] = value
	r.Fields = fields
	return r
}

func clientName(v any) string {
	s, _ := v.(string)
	s = strings.TrimSpace(s)
	if s == "" {
		return UnknownClient
	}
	return s
}

func normalizeValue(v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case string, float64, bool:
		return t, true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return t.String(), true
		}
		return f, true
	case []Attachment:
		return t, true
	case []any:
		if atts, ok := attachmentList(t); ok {
			return atts, true
		}
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", "), true
	case map[string]any:
		// Airtable AI/text objects carry their text under "value".
		if s, ok := t["value"].(string); ok {
			return s, true
		}
		return nil, false
	default:
		return fmt.Sprint(t), true
	}
}

func attachmentList(items []any) ([]Attachment, bool) {
	if len(items) == 0 {
		return nil, false
	}
	out := make([]Attachment, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		u, ok := m["url"].(string)
		if !ok {
			return nil, false
		}
		name, _ := m["filename"].(string)
		out = append(out, Attachment{URL: u, Filename: name})
	}
	return out, true
}

func filenameFromURL(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	base := path.Base(u)
	if base == "." || base == "/" || base == "" {
		return "Screenshot"
	}
	return base
}

func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
