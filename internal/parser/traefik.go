package parser

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/cyra/ecsify/internal/ecs"
)

// Traefik access logs in JSON (common pattern):
// {"ClientAddr":"127.0.0.1:54321","ClientHost":"127.0.0.1","DownstreamStatus":200,"RequestMethod":"GET","RequestPath":"/","StartUTC":"2020-10-10T13:55:36.123Z"}

type traefikLog struct {
	ClientAddr            string `json:"ClientAddr"`
	ClientHost            string `json:"ClientHost"`
	DownstreamStatus      int    `json:"DownstreamStatus"`
	DownstreamContentSize int64  `json:"DownstreamContentSize"`
	RequestMethod         string `json:"RequestMethod"`
	RequestPath           string `json:"RequestPath"`
	RequestProtocol       string `json:"RequestProtocol"`
	StartUTC              string `json:"StartUTC"`
	UserAgent             string `json:"request_User-Agent"`
	Referer               string `json:"request_Referer"`
}

type traefikParser struct{}

func newTraefikParser() *traefikParser {
	return &traefikParser{}
}

func (p *traefikParser) Parse(line string) (*ecs.Event, error) {
	var tl traefikLog
	if err := json.Unmarshal([]byte(line), &tl); err != nil {
		return nil, ErrNoMatch
	}
	if tl.RequestMethod == "" {
		return nil, ErrNoMatch
	}

	ts, err := time.Parse(time.RFC3339Nano, tl.StartUTC)
	if err != nil {
		return nil, fmt.Errorf("traefik parser: %w: %q", ErrTimestamp, tl.StartUTC)
	}

	ip := tl.ClientHost
	if ip == "" && tl.ClientAddr != "" {
		// ClientAddr is "ip:port"; SplitHostPort handles bracketed IPv6.
		host, _, err := net.SplitHostPort(tl.ClientAddr)
		if err == nil {
			ip = host
		} else {
			ip = tl.ClientAddr
		}
	}

	ev := ecs.NewEvent(ts, TypeTraefikJSON, ecs.CategoryWeb, line)
	ev.Source = &ecs.Source{IP: ip}
	ev.HTTP = &ecs.HTTP{
		Version: httpVersion(tl.RequestProtocol),
		Request: ecs.HTTPRequest{
			Method:   tl.RequestMethod,
			Referrer: referrer(tl.Referer),
		},
		Response: ecs.HTTPResponse{
			StatusCode: tl.DownstreamStatus,
			Body:       &ecs.HTTPBody{Bytes: tl.DownstreamContentSize},
		},
	}
	ev.URL = &ecs.URL{Original: tl.RequestPath}
	ev.UserAgent = &ecs.UserAgent{Original: tl.UserAgent}
	return ev, nil
}
