package parser

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Encode renders meta as a metadata block terminated by a blank line.
// Recognized fields come first; the remaining entries of Fields follow in
// key order.
func Encode(meta Metadata) ([]byte, error) {
	mapping := &yaml.Node{Kind: yaml.MappingNode}

	add := func(key string, val *yaml.Node) {
		mapping.Content = append(mapping.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, val)
	}

	add(FieldDate, dateNode(meta.Date))
	if meta.Title != "" {
		add(FieldTitle, stringNode(meta.Title))
	}
	if meta.Subtitle != "" {
		add(FieldSubtitle, stringNode(meta.Subtitle))
	}
	add(FieldPublished, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: fmt.Sprint(meta.Published)})

	extra := make([]string, 0, len(meta.Fields))
	for k := range meta.Fields {
		switch k {
		case FieldDate, FieldTitle, FieldSubtitle, FieldPublished:
			continue
		}
		extra = append(extra, k)
	}
	sort.Strings(extra)
	for _, k := range extra {
		val, err := valueNode(meta.Fields[k])
		if err != nil {
			return nil, fmt.Errorf("parser: encode %q: %w", k, err)
		}
		add(k, val)
	}

	out, err := yaml.Marshal(mapping)
	if err != nil {
		return nil, fmt.Errorf("parser: encode: %w", err)
	}
	return append(out, '\n'), nil
}

func dateNode(t time.Time) *yaml.Node {
	value := t.Format(time.RFC3339Nano)
	if t.Location() == time.UTC && t.Equal(t.Truncate(24*time.Hour)) {
		value = t.Format("2006-01-02")
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!timestamp", Value: value}
}

func stringNode(s string) *yaml.Node {
	n := &yaml.Node{}
	_ = n.Encode(s)
	if strings.ContainsAny(s, "\r\n") {
		n.Style = yaml.DoubleQuotedStyle
	}
	return n
}

func valueNode(v any) (*yaml.Node, error) {
	switch t := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case string:
		return stringNode(t), nil
	case time.Time:
		return dateNode(t), nil
	case bool, int, int64, float64:
		n := &yaml.Node{}
		if err := n.Encode(t); err != nil {
			return nil, err
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}
