package event

import (
	"encoding/json"
	"testing"

	"github.com/nsevent/nsevent/internal/event/topic"
)

func withSource(source string) Event {
	return Event{Topic: "test.event", Metadata: Metadata{Source: source}}
}

func TestFilterBySource(t *testing.T) {
	filter := FilterBySource("test-source")

	tests := []struct {
		name  string
		event Event
		want  bool
	}{
		{"matching source", withSource("test-source"), true},
		{"non-matching source", withSource("other-source"), false},
		{"no source", withSource(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := filter(tt.event); got != tt.want {
				t.Errorf("FilterBySource() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterBySourcePrefix(t *testing.T) {
	filter := FilterBySourcePrefix("plugin.")

	tests := []struct {
		name  string
		event Event
		want  bool
	}{
		{"matching prefix", withSource("plugin.custom"), true},
		{"non-matching prefix", withSource("core.engine"), false},
		{"empty source", withSource(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := filter(tt.event); got != tt.want {
				t.Errorf("FilterBySourcePrefix() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterExcludeSource(t *testing.T) {
	filter := FilterExcludeSource("noisy")

	if filter(withSource("noisy")) {
		t.Error("expected excluded source to be blocked")
	}
	if !filter(withSource("quiet")) {
		t.Error("expected other source to pass")
	}
	if !filter(withSource("")) {
		t.Error("expected missing source to pass")
	}
}

func TestFilterByTopic(t *testing.T) {
	filter := FilterByTopic("user.login")

	tests := []struct {
		name  string
		event Event
		want  bool
	}{
		{"direct emit", Event{Topic: "user.login", Key: "user.login"}, true},
		{"ancestor emit", Event{Topic: "user", Key: "user.login"}, false},
		{"other", Event{Topic: "user.logout"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := filter(tt.event); got != tt.want {
				t.Errorf("FilterByTopic() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterByTopicPrefix(t *testing.T) {
	filter := FilterByTopicPrefix("user")

	tests := []struct {
		topic topic.Topic
		want  bool
	}{
		{"user", true},
		{"user.login", true},
		{"username", false},
		{"admin", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.topic), func(t *testing.T) {
			e := Event{Topic: tt.topic}
			if got := filter(e); got != tt.want {
				t.Errorf("FilterByTopicPrefix(%q) = %v, want %v", tt.topic, got, tt.want)
			}
		})
	}
}

func TestFilterData(t *testing.T) {
	type login struct {
		User  string
		Admin bool
	}

	filter := FilterData(func(l login) bool { return l.Admin })

	tests := []struct {
		name string
		data any
		want bool
	}{
		{"admin", login{User: "root", Admin: true}, true},
		{"not admin", login{User: "bob"}, false},
		{"wrong type", "root", false},
		{"nil data", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := filter(Event{Data: tt.data}); got != tt.want {
				t.Errorf("FilterData() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterJSON(t *testing.T) {
	type order struct {
		ID     int    `json:"id"`
		Status string `json:"status"`
	}

	tests := []struct {
		name string
		path string
		want any
		data any
		ok   bool
	}{
		{"string in json text", "status", "paid", `{"status":"paid"}`, true},
		{"string mismatch", "status", "paid", `{"status":"open"}`, false},
		{"number from bytes", "id", 7, []byte(`{"id":7}`), true},
		{"float", "amount", 9.5, `{"amount":9.5}`, true},
		{"bool", "flags.rush", true, `{"flags":{"rush":true}}`, true},
		{"null", "note", nil, `{"note":null}`, true},
		{"struct payload", "status", "paid", order{ID: 1, Status: "paid"}, true},
		{"map payload", "id", 3, map[string]any{"id": 3}, true},
		{"raw message", "status", "paid", json.RawMessage(`{"status":"paid"}`), true},
		{"number is not string", "id", "7", `{"id":7}`, false},
		{"missing path", "missing", "x", `{"status":"paid"}`, false},
		{"invalid json", "status", "paid", `{status:`, false},
		{"nil payload", "status", "paid", nil, false},
		{"composite want", "tags", []string{"a", "b"}, `{"tags":["a","b"]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter := FilterJSON(tt.path, tt.want)
			if got := filter(Event{Data: tt.data}); got != tt.ok {
				t.Errorf("FilterJSON(%q, %v) = %v, want %v", tt.path, tt.want, got, tt.ok)
			}
		})
	}
}

func TestFilterJSONExists(t *testing.T) {
	filter := FilterJSONExists("user.name")

	if !filter(Event{Data: `{"user":{"name":"alice"}}`}) {
		t.Error("expected existing path to pass")
	}
	if filter(Event{Data: `{"user":{}}`}) {
		t.Error("expected missing path to be blocked")
	}
	if filter(Event{Data: 42}) {
		t.Error("expected scalar payload to be blocked")
	}
}

func TestFilterAnd(t *testing.T) {
	filter := FilterAnd(FilterBySource("a"), FilterByTopic("x"))

	if !filter(Event{Topic: "x", Metadata: Metadata{Source: "a"}}) {
		t.Error("expected both filters to pass")
	}
	if filter(Event{Topic: "y", Metadata: Metadata{Source: "a"}}) {
		t.Error("expected topic filter to block")
	}
	if !FilterAnd()(Event{}) {
		t.Error("expected empty AND to pass")
	}
}

func TestFilterOr(t *testing.T) {
	filter := FilterOr(FilterBySource("a"), FilterBySource("b"))

	if !filter(withSource("a")) || !filter(withSource("b")) {
		t.Error("expected either source to pass")
	}
	if filter(withSource("c")) {
		t.Error("expected other source to be blocked")
	}
	if FilterOr()(Event{}) {
		t.Error("expected empty OR to block")
	}
}

func TestFilterNot(t *testing.T) {
	filter := FilterNot(FilterBySource("a"))

	if filter(withSource("a")) {
		t.Error("expected negated match to be blocked")
	}
	if !filter(withSource("b")) {
		t.Error("expected negated mismatch to pass")
	}
}

func TestFilterAllNone(t *testing.T) {
	if !FilterAll()(Event{}) {
		t.Error("FilterAll should pass")
	}
	if FilterNone()(Event{}) {
		t.Error("FilterNone should block")
	}
}
