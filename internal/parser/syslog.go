package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/cyra/ecsify/internal/ecs"
)

// BSD syslog example (no year, no severity token):
// Jan  5 03:22:10 host01 sshd[123]: Failed login

var (
	syslogRe      = regexp.MustCompile(`^([A-Z][a-z]{2})\s+(\d{1,2})\s+(\d{2}:\d{2}:\d{2})\s+(\S+)\s+([\w\-/]+)(?:\[\d+\])?:\s+(.*)$`)
	syslogTimeFmt = "Jan 2 15:04:05 2006"
)

const (
	syslogMonth = iota + 1
	syslogDay
	syslogClock
	syslogHost
	syslogProc
	syslogMsg
)

// syslogParser assumes every line belongs to year and is recorded in UTC.
// Lines written in December and processed in January are misdated by a year.
type syslogParser struct {
	year int
}

func newSyslogParser(year int) *syslogParser {
	return &syslogParser{year: year}
}

func (p *syslogParser) Parse(line string) (*ecs.Event, error) {
	m := syslogRe.FindStringSubmatch(line)
	if m == nil {
		return nil, ErrNoMatch
	}

	day, err := strconv.Atoi(m[syslogDay])
	if err != nil {
		return nil, ErrNoMatch
	}
	raw := fmt.Sprintf("%s %d %s %d", m[syslogMonth], day, m[syslogClock], p.year)
	ts, err := time.Parse(syslogTimeFmt, raw)
	if err != nil {
		return nil, fmt.Errorf("syslog parser: %w: %q", ErrTimestamp, raw)
	}

	ev := ecs.NewEvent(ts, TypeSyslog, ecs.CategoryProcess, line)
	ev.Host = &ecs.Host{Hostname: m[syslogHost]}
	ev.Process = &ecs.Process{Name: m[syslogProc]}
	ev.Log = &ecs.Log{Syslog: &ecs.Syslog{Original: line}}
	ev.Message = m[syslogMsg]
	return ev, nil
}
