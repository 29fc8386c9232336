package parser

import (
	"errors"
	"time"

	"github.com/cyra/ecsify/internal/ecs"
)

// Type labels understood by New.
const (
	TypeApacheAccess = "apache_access"
	TypeNginxAccess  = "nginx_access"
	TypeSyslog       = "syslog"
	TypeCaddyJSON    = "caddy_json"
	TypeTraefikJSON  = "traefik_json"
)

var (
	// ErrUnknownParser is returned when an unsupported type label is requested.
	ErrUnknownParser = errors.New("unknown parser")

	// ErrNoMatch means the line does not have the structure of the parser's format.
	// It is not a failure: the line is simply not a record of this type.
	ErrNoMatch = errors.New("line does not match expected format")

	// ErrTimestamp means the line matched structurally but its timestamp is invalid.
	ErrTimestamp = errors.New("invalid timestamp")
)

// Parser converts a single raw line into a canonical event.
// Implementations are stateless; calling Parse twice with the same line
// yields identical records.
type Parser interface {
	Parse(line string) (*ecs.Event, error)
}

// Option configures parser construction.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithReferenceTime pins the instant used to infer the year of year-less
// timestamps (syslog). Without it the wall clock at construction is used.
func WithReferenceTime(t time.Time) Option {
	return func(o *options) { o.now = func() time.Time { return t } }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New returns a parser implementation by type label.
func New(name string, opts ...Option) (Parser, error) {
	o := buildOptions(opts)
	switch name {
	case TypeApacheAccess, TypeNginxAccess:
		return newAccessParser(name), nil
	case TypeSyslog:
		return newSyslogParser(o.now().UTC().Year()), nil
	case TypeCaddyJSON:
		return newCaddyParser(), nil
	case TypeTraefikJSON:
		return newTraefikParser(), nil
	default:
		return nil, ErrUnknownParser
	}
}

// Set is a dispatch table from type label to parser.
type Set map[string]Parser

// NewSet builds a Set holding every built-in parser.
func NewSet(opts ...Option) Set {
	s := make(Set)
	for _, name := range Types() {
		p, err := New(name, opts...)
		if err != nil {
			continue
		}
		s[name] = p
	}
	return s
}

// Lookup returns the parser bound to a type label, if any.
func (s Set) Lookup(typ string) (Parser, bool) {
	p, ok := s[typ]
	return p, ok
}

// Types lists the built-in type labels.
func Types() []string {
	return []string{TypeApacheAccess, TypeNginxAccess, TypeSyslog, TypeCaddyJSON, TypeTraefikJSON}
}
