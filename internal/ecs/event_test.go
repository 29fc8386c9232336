package ecs

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimestampConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("", -7*3600)
	ts := time.Date(2023, 10, 10, 13, 55, 36, 0, loc)

	assert.Equal(t, "2023-10-10T20:55:36+00:00", FormatTimestamp(ts))
}

func TestNewEventSharedFields(t *testing.T) {
	ev := NewEvent(time.Date(2024, 1, 5, 3, 22, 10, 0, time.UTC), "syslog", CategoryProcess, "raw line")

	assert.Equal(t, Version, ev.ECS.Version)
	assert.Equal(t, []string{"process"}, ev.Event.Category)
	assert.Equal(t, "event", ev.Event.Kind)
	assert.Equal(t, "syslog", ev.Event.Dataset)
	assert.NotEmpty(t, ev.Event.ID)
}

func TestEventIDIsDeterministic(t *testing.T) {
	a := EventID("apache_access", "line")
	b := EventID("apache_access", "line")
	c := EventID("syslog", "line")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestEventJSONShape(t *testing.T) {
	ev := NewEvent(time.Date(2023, 10, 10, 20, 55, 36, 0, time.UTC), "apache_access", CategoryWeb, "x")
	ev.Source = &Source{IP: "127.0.0.1"}
	ev.HTTP = &HTTP{
		Request:  HTTPRequest{Method: "GET"},
		Response: HTTPResponse{StatusCode: 200},
	}
	ev.URL = &URL{Original: "/x"}
	ev.UserAgent = &UserAgent{}

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "2023-10-10T20:55:36+00:00", doc["@timestamp"])
	assert.Equal(t, map[string]any{"version": "8.11.0"}, doc["ecs"])

	httpDoc := doc["http"].(map[string]any)
	req := httpDoc["request"].(map[string]any)
	_, hasReferrer := req["referrer"]
	assert.False(t, hasReferrer)
	assert.NotContains(t, httpDoc, "version")

	ua := doc["user_agent"].(map[string]any)
	assert.Equal(t, "", ua["original"])

	for _, absent := range []string{"host", "process", "log", "message"} {
		assert.NotContains(t, doc, absent)
	}
}

func TestSyslogLogLevelAlwaysPresent(t *testing.T) {
	ev := NewEvent(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), "syslog", CategoryProcess, "x")
	ev.Log = &Log{Syslog: &Syslog{Original: "x"}}

	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"log":{"level":"","syslog":{"original":"x"}}`)
}
