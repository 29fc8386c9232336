package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cyra/ecsify/internal/ecs"
)

// Apache common/combined log format example:
// 127.0.0.1 - frank [10/Oct/2000:13:55:36 -0700] "GET /apache_pb.gif HTTP/1.0" 200 2326
// 127.0.0.1 - - [10/Oct/2000:13:55:36 -0700] "GET /apache_pb.gif HTTP/1.0" 200 2326 "http://example.com/start.html" "Mozilla/4.08"
//
// nginx's default "combined" format is the same line shape.

var (
	accessRe = regexp.MustCompile(`^(\S+)\s+\S+\s+\S+\s+\[([^\]]+)\]\s+"(\S+)\s+(\S+)\s+([^"]+)"\s+(\d{3})\s+(\d+)(?:\s+"([^"]*)")?(?:\s+"([^"]*)")?`)

	// Single-digit days are accepted as well as zero-padded ones.
	accessTimeFmt = "2/Jan/2006:15:04:05 -0700"
)

const (
	accessIP = iota + 1
	accessTime
	accessMethod
	accessURL
	accessProto
	accessStatus
	accessSize
	accessReferrer
	accessUserAgent
)

type accessParser struct {
	dataset string
}

func newAccessParser(dataset string) *accessParser {
	return &accessParser{dataset: dataset}
}

func (p *accessParser) Parse(line string) (*ecs.Event, error) {
	m := accessRe.FindStringSubmatch(line)
	if m == nil {
		return nil, ErrNoMatch
	}

	ts, err := time.Parse(accessTimeFmt, m[accessTime])
	if err != nil {
		return nil, fmt.Errorf("%s parser: %w: %q", p.dataset, ErrTimestamp, m[accessTime])
	}

	status, err := strconv.Atoi(m[accessStatus])
	if err != nil {
		return nil, ErrNoMatch
	}

	// A byte count too large for int64 leaves body unset; the line is still a record.
	var body *ecs.HTTPBody
	if size, err := strconv.ParseInt(m[accessSize], 10, 64); err == nil {
		body = &ecs.HTTPBody{Bytes: size}
	}

	ev := ecs.NewEvent(ts, p.dataset, ecs.CategoryWeb, line)
	ev.Source = &ecs.Source{IP: m[accessIP]}
	ev.HTTP = &ecs.HTTP{
		Version: httpVersion(m[accessProto]),
		Request: ecs.HTTPRequest{
			Method:   m[accessMethod],
			Referrer: referrer(m[accessReferrer]),
		},
		Response: ecs.HTTPResponse{
			StatusCode: status,
			Body:       body,
		},
	}
	ev.URL = &ecs.URL{Original: m[accessURL]}
	ev.UserAgent = &ecs.UserAgent{Original: m[accessUserAgent]}
	return ev, nil
}

// httpVersion extracts "1.1" from "HTTP/1.1"; other protocol tokens yield "".
func httpVersion(proto string) string {
	v, ok := strings.CutPrefix(strings.TrimSpace(proto), "HTTP/")
	if !ok {
		return ""
	}
	return v
}

// referrer maps the log's "no referrer" placeholder to an absent field.
func referrer(s string) string {
	if s == "-" {
		return ""
	}
	return s
}
