// Package parser extracts the leading metadata block from post sources.
//
// A source file starts with YAML key/value lines; the first blank line ends
// the block and everything after it is the Markdown body.
package parser

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/bloggen/internal/apperr"
)

// Recognized field names.
const (
	FieldDate      = "date"
	FieldTitle     = "title"
	FieldSubtitle  = "subtitle"
	FieldPublished = "published"
)

// dateLayouts are tried in order for string-valued dates that YAML did not
// resolve as timestamps.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Metadata is the decoded metadata block.
type Metadata struct {
	Date      time.Time
	Title     string
	Subtitle  string
	Published bool
	// Fields holds every decoded key, recognized ones included.
	Fields map[string]any
}

// Result holds the output of parsing a source file.
type Result struct {
	Meta Metadata
	// BodyOffset is the byte offset just past the terminating blank line.
	BodyOffset int
}

// Body returns the part of data following the metadata block.
func (r *Result) Body(data []byte) []byte {
	if r.BodyOffset >= len(data) {
		return nil
	}
	return data[r.BodyOffset:]
}

// Parse decodes the metadata block at the start of data.
func Parse(data []byte) (*Result, error) {
	block, offset, err := splitBlock(data)
	if err != nil {
		return nil, err
	}
	fields, err := decodeBlock(block)
	if err != nil {
		return nil, err
	}
	meta, err := recognize(fields)
	if err != nil {
		return nil, err
	}
	return &Result{Meta: meta, BodyOffset: offset}, nil
}

// Split returns the body of data with the metadata block removed.
func Split(data []byte) ([]byte, error) {
	_, offset, err := splitBlock(data)
	if err != nil {
		return nil, err
	}
	return data[offset:], nil
}

// splitBlock returns the lines before the first blank line and the offset
// of the byte following that blank line.
func splitBlock(data []byte) ([]byte, int, error) {
	start := 0
	for start < len(data) {
		end := bytes.IndexByte(data[start:], '\n')
		next := len(data)
		line := data[start:]
		if end >= 0 {
			line = data[start : start+end]
			next = start + end + 1
		}
		if len(bytes.TrimSpace(line)) == 0 {
			return data[:start], next, nil
		}
		start = next
	}
	return nil, 0, fmt.Errorf("%w: no blank line terminates the metadata block", apperr.ErrMalformedMetadata)
}

func decodeBlock(block []byte) (map[string]any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(block, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrMalformedMetadata, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: block is not a key/value mapping", apperr.ErrMalformedMetadata)
	}
	mapping := doc.Content[0]

	out := make(map[string]any, len(mapping.Content)/2)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key, val := mapping.Content[i], mapping.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: line %d: key is not a scalar", apperr.ErrMalformedMetadata, key.Line)
		}
		if _, dup := out[key.Value]; dup {
			return nil, fmt.Errorf("%w: line %d: duplicate key %q", apperr.ErrMalformedMetadata, key.Line, key.Value)
		}
		if val.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: line %d: value of %q is not a scalar", apperr.ErrMalformedMetadata, val.Line, key.Value)
		}
		v, err := scalarValue(val)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %q: %v", apperr.ErrMalformedMetadata, val.Line, key.Value, err)
		}
		out[key.Value] = v
	}
	return out, nil
}

func scalarValue(n *yaml.Node) (any, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		err := n.Decode(&b)
		return b, err
	case "!!int":
		var i int
		err := n.Decode(&i)
		return i, err
	case "!!float":
		var f float64
		err := n.Decode(&f)
		return f, err
	case "!!timestamp":
		var t time.Time
		err := n.Decode(&t)
		return t, err
	default:
		return n.Value, nil
	}
}

func recognize(fields map[string]any) (Metadata, error) {
	meta := Metadata{Fields: fields}

	raw, ok := fields[FieldDate]
	if !ok || raw == nil {
		return Metadata{}, fmt.Errorf("%w: missing %q field", apperr.ErrMalformedMetadata, FieldDate)
	}
	date, err := toTime(raw)
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: %q: %v", apperr.ErrMalformedMetadata, FieldDate, err)
	}
	meta.Date = date
	fields[FieldDate] = date

	if meta.Title, err = optionalString(fields, FieldTitle); err != nil {
		return Metadata{}, err
	}
	if meta.Subtitle, err = optionalString(fields, FieldSubtitle); err != nil {
		return Metadata{}, err
	}

	switch v := fields[FieldPublished].(type) {
	case nil:
		meta.Published = false
	case bool:
		meta.Published = v
	default:
		return Metadata{}, fmt.Errorf("%w: %q must be a boolean, got %T", apperr.ErrMalformedMetadata, FieldPublished, v)
	}
	fields[FieldPublished] = meta.Published

	return meta, nil
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized date %q", t)
	default:
		return time.Time{}, fmt.Errorf("expected a date, got %T", v)
	}
}

// optionalString accepts any scalar and renders it as text, so a title like
// `2013` or `true` still reads as written.
func optionalString(fields map[string]any, key string) (string, error) {
	switch v := fields[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("%w: %q must be text, got %T", apperr.ErrMalformedMetadata, key, v)
	}
}
