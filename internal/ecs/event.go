// Package ecs defines the canonical event record emitted for every parsed log line.
//
// Field names follow the Elastic Common Schema. Records are plain structs so the
// JSON field order is fixed and the same input always serializes to the same bytes.
package ecs

import (
	"time"

	"github.com/google/uuid"
)

// Version is the schema version marker carried by every record.
// Bump it whenever the mapping from raw lines to fields changes.
const Version = "8.11.0"

// TimestampLayout renders @timestamp as ISO-8601 with an explicit UTC offset.
const TimestampLayout = "2006-01-02T15:04:05-07:00"

// Event categories used by the built-in parsers.
const (
	CategoryWeb     = "web"
	CategoryProcess = "process"
	KindEvent       = "event"
)

// idNamespace seeds the name-based UUIDs used for event.id.
var idNamespace = uuid.MustParse("5b0f2c2e-8f2a-4a8e-9d4c-1f7e0e6c9a31")

// Event is one normalized log record.
type Event struct {
	Timestamp string     `json:"@timestamp"`
	ECS       ECS        `json:"ecs"`
	Event     EventInfo  `json:"event"`
	Source    *Source    `json:"source,omitempty"`
	HTTP      *HTTP      `json:"http,omitempty"`
	URL       *URL       `json:"url,omitempty"`
	UserAgent *UserAgent `json:"user_agent,omitempty"`
	Host      *Host      `json:"host,omitempty"`
	Process   *Process   `json:"process,omitempty"`
	Log       *Log       `json:"log,omitempty"`
	Message   string     `json:"message,omitempty"`
}

type ECS struct {
	Version string `json:"version"`
}

type EventInfo struct {
	ID       string   `json:"id"`
	Category []string `json:"category"`
	Kind     string   `json:"kind"`
	Dataset  string   `json:"dataset"`
}

type Source struct {
	IP string `json:"ip"`
}

type HTTP struct {
	Version  string       `json:"version,omitempty"`
	Request  HTTPRequest  `json:"request"`
	Response HTTPResponse `json:"response"`
}

type HTTPRequest struct {
	Method   string `json:"method"`
	Referrer string `json:"referrer,omitempty"`
}

type HTTPResponse struct {
	StatusCode int       `json:"status_code"`
	Body       *HTTPBody `json:"body,omitempty"`
}

type HTTPBody struct {
	Bytes int64 `json:"bytes"`
}

type URL struct {
	Original string `json:"original"`
}

// UserAgent is always emitted for web events; Original is empty when the line has none.
type UserAgent struct {
	Original string `json:"original"`
}

type Host struct {
	Hostname string `json:"hostname"`
}

type Process struct {
	Name string `json:"name"`
}

// Log carries the level placeholder and, for syslog, the verbatim line.
type Log struct {
	Level  string  `json:"level"`
	Syslog *Syslog `json:"syslog,omitempty"`
}

type Syslog struct {
	Original string `json:"original"`
}

// FormatTimestamp converts t to UTC and renders it with TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// NewEvent returns a record with the fields every dataset shares filled in.
// The id is derived from dataset and raw, so reparsing a line reproduces it.
func NewEvent(ts time.Time, dataset, category, raw string) *Event {
	return &Event{
		Timestamp: FormatTimestamp(ts),
		ECS:       ECS{Version: Version},
		Event: EventInfo{
			ID:       EventID(dataset, raw),
			Category: []string{category},
			Kind:     KindEvent,
			Dataset:  dataset,
		},
	}
}

// EventID returns the name-based UUID for a raw line of the given dataset.
func EventID(dataset, raw string) string {
	return uuid.NewSHA1(idNamespace, []byte(dataset+"\x00"+raw)).String()
}
