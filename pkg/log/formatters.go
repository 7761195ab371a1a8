package log

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// JSONFormatter renders an Entry as a single-line JSON object.
type JSONFormatter struct{}

// Format implements Formatter.
func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	m := make(map[string]interface{}, len(entry.Fields)+4)
	for k, v := range entry.Fields {
		m[k] = v
	}
	m["level"] = entry.Level.String()
	m["msg"] = entry.Message
	m["time"] = entry.Timestamp.Format(timeLayout)
	if entry.Caller != "" {
		m["caller"] = entry.Caller
	}
	if entry.Error != nil {
		m["error"] = entry.Error.Error()
	}
	out, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// TextFormatter renders an Entry as "time level msg key=value ...".
type TextFormatter struct{}

// Format implements Formatter.
func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %-5s %s", entry.Timestamp.Format(timeLayout), entry.Level.String(), entry.Message)

	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&buf, " %s=%v", k, entry.Fields[k])
	}
	if entry.Error != nil {
		fmt.Fprintf(&buf, " error=%q", entry.Error.Error())
	}
	if entry.Caller != "" {
		fmt.Fprintf(&buf, " caller=%s", entry.Caller)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
