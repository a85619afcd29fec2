package model

import (
	"fmt"
	"strings"
)

// ServerTimestampKey is the one field the collector stamps onto every
// stored entry at ingestion time.
const ServerTimestampKey = "server_timestamp"

// DefaultType is assumed when an entry carries no "type" field.
const DefaultType = "log"

// Entry is one debug log entry submitted by a browser client.
// Clients send arbitrary JSON objects and no schema is enforced beyond
// that, so the entry stays the decoded map it arrived as.
type Entry map[string]any

// Display is the console projection of an entry. Fields the client did
// not send fall back to the defaults the browser-side logger relies on.
type Display struct {
	Timestamp string // client-side timestamp, "Unknown" if absent
	Type      string // upper-cased severity, e.g. LOG, ERROR, WARN, INFO
	Message   string
	URL       string // page URL the event came from, empty if absent
}

// Display extracts the printable fields. Values of unexpected types are
// rendered with their default formatting rather than rejected; clients
// are free to put anything in these fields.
func (e Entry) Display() Display {
	return Display{
		Timestamp: e.stringField("timestamp", "Unknown"),
		Type:      strings.ToUpper(e.stringField("type", DefaultType)),
		Message:   e.stringField("message", ""),
		URL:       e.stringField("url", ""),
	}
}

func (e Entry) stringField(key, fallback string) string {
	v, ok := e[key]
	if !ok || v == nil {
		return fallback
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
