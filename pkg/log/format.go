package log

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// TextFormatter renders entries as human-readable single lines:
//
//	2006-01-02T15:04:05Z INFO  flush complete component=pipeline events=3
type TextFormatter struct {
	// TimeFormat overrides the timestamp layout; defaults to RFC3339.
	TimeFormat string
}

// Format renders the entry as a single text line.
func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	layout := f.TimeFormat
	if layout == "" {
		layout = time.RFC3339
	}
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.WriteString(ts.Format(layout))
	b.WriteByte(' ')
	b.WriteString(fmt.Sprintf("%-5s", entry.Level.String()))
	b.WriteByte(' ')
	b.WriteString(entry.Message)

	if len(entry.Fields) > 0 {
		keys := make([]string, 0, len(entry.Fields))
		for k := range entry.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteByte(' ')
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(formatValue(entry.Fields[k]))
		}
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "<nil>"
	case string:
		if strings.ContainsAny(t, " \t\"=") {
			return fmt.Sprintf("%q", t)
		}
		return t
	case error:
		return fmt.Sprintf("%q", t.Error())
	default:
		return fmt.Sprintf("%v", t)
	}
}

// JSONFormatter renders entries as one JSON object per line.
type JSONFormatter struct{}

// Format renders the entry as a JSON line.
func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	obj := map[string]interface{}{
		"ts":    ts.Format(time.RFC3339Nano),
		"level": entry.Level.String(),
		"msg":   entry.Message,
	}
	for k, v := range entry.Fields {
		if _, reserved := obj[k]; reserved {
			continue
		}
		obj[k] = v
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
