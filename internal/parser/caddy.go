package parser

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cyra/ecsify/internal/ecs"
)

// Caddy v2 access logs are JSON with fields like:
// {"ts":1696946136.123,"request":{"remote_ip":"127.0.0.1","proto":"HTTP/1.1","method":"GET","uri":"/","headers":{"User-Agent":["curl/8.0"]}},"status":200,"size":512}

type caddyLog struct {
	Request struct {
		RemoteIP string              `json:"remote_ip"`
		Proto    string              `json:"proto"`
		Method   string              `json:"method"`
		URI      string              `json:"uri"`
		Headers  map[string][]string `json:"headers"`
	} `json:"request"`
	Status int             `json:"status"`
	Size   int64           `json:"size"`
	TS     json.RawMessage `json:"ts"`
}

type caddyParser struct{}

func newCaddyParser() *caddyParser {
	return &caddyParser{}
}

func (p *caddyParser) Parse(line string) (*ecs.Event, error) {
	var cl caddyLog
	if err := json.Unmarshal([]byte(line), &cl); err != nil {
		return nil, ErrNoMatch
	}
	if cl.Request.Method == "" {
		return nil, ErrNoMatch
	}

	ts, err := caddyTime(cl.TS)
	if err != nil {
		return nil, fmt.Errorf("caddy parser: %w: %v", ErrTimestamp, err)
	}

	ev := ecs.NewEvent(ts, TypeCaddyJSON, ecs.CategoryWeb, line)
	ev.Source = &ecs.Source{IP: cl.Request.RemoteIP}
	ev.HTTP = &ecs.HTTP{
		Version: httpVersion(cl.Request.Proto),
		Request: ecs.HTTPRequest{
			Method:   cl.Request.Method,
			Referrer: referrer(firstHeader(cl.Request.Headers, "Referer")),
		},
		Response: ecs.HTTPResponse{
			StatusCode: cl.Status,
			Body:       &ecs.HTTPBody{Bytes: cl.Size},
		},
	}
	ev.URL = &ecs.URL{Original: cl.Request.URI}
	ev.UserAgent = &ecs.UserAgent{Original: firstHeader(cl.Request.Headers, "User-Agent")}
	return ev, nil
}

// caddyTime accepts both the default float unix-seconds encoding and the
// iso8601/rfc3339 time_format options.
func caddyTime(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, fmt.Errorf("missing ts")
	}

	var secs float64
	if err := json.Unmarshal(raw, &secs); err == nil {
		whole, frac := math.Modf(secs)
		return time.Unix(int64(whole), int64(math.Round(frac*1e3))*int64(time.Millisecond)), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, fmt.Errorf("unsupported ts %s", raw)
	}
	return time.Parse(time.RFC3339Nano, s)
}

func firstHeader(h map[string][]string, name string) string {
	for k, v := range h {
		if strings.EqualFold(k, name) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}
