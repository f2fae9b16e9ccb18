package event

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/nsevent/nsevent/internal/event/topic"
)

// Common filter predicates for WithFilter.

// FilterBySource creates a filter that only allows events emitted with
// WithSource(source).
func FilterBySource(source string) FilterFunc {
	return func(e Event) bool {
		return e.Metadata.Source == source
	}
}

// FilterBySourcePrefix creates a filter that only allows events from sources starting with prefix.
func FilterBySourcePrefix(prefix string) FilterFunc {
	return func(e Event) bool {
		return e.Metadata.Source != "" && strings.HasPrefix(e.Metadata.Source, prefix)
	}
}

// FilterExcludeSource creates a filter that excludes events from the specified source.
func FilterExcludeSource(source string) FilterFunc {
	return func(e Event) bool {
		return e.Metadata.Source != source
	}
}

// FilterByTopic only allows events whose emitted type is exactly t.
//
// A handler registered under "a" in namespace mode is reached by emits of
// "a" and of any ancestor; FilterByTopic("a") keeps only the direct ones.
func FilterByTopic(t topic.Topic) FilterFunc {
	return func(e Event) bool {
		return e.Topic == t
	}
}

// FilterByTopicPrefix only allows events whose emitted type is pattern or
// nested below it.
func FilterByTopicPrefix(pattern topic.Topic) FilterFunc {
	return func(e Event) bool {
		return e.Topic.HasPrefix(pattern)
	}
}

// FilterData creates a filter based on the payload.
// Events whose payload is not a T are rejected.
func FilterData[T any](predicate func(data T) bool) FilterFunc {
	return func(e Event) bool {
		data, ok := e.Data.(T)
		if !ok {
			return false
		}
		return predicate(data)
	}
}

// FilterJSON allows events whose payload, viewed as JSON, holds want at the
// gjson path. Numbers compare by value and strings by text.
func FilterJSON(path string, want any) FilterFunc {
	return func(e Event) bool {
		res, ok := jsonLookup(e.Data, path)
		if !ok {
			return false
		}
		return jsonEquals(res, want)
	}
}

// FilterJSONExists allows events whose payload has a value at the gjson path.
func FilterJSONExists(path string) FilterFunc {
	return func(e Event) bool {
		_, ok := jsonLookup(e.Data, path)
		return ok
	}
}

// jsonLookup resolves path against data. JSON text in a string, []byte or
// json.RawMessage is queried as is; anything else is marshalled first.
func jsonLookup(data any, path string) (gjson.Result, bool) {
	var doc []byte
	switch v := data.(type) {
	case nil:
		return gjson.Result{}, false
	case string:
		doc = []byte(v)
	case []byte:
		doc = v
	case json.RawMessage:
		doc = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return gjson.Result{}, false
		}
		doc = b
	}

	if !gjson.ValidBytes(doc) {
		return gjson.Result{}, false
	}
	res := gjson.GetBytes(doc, path)
	return res, res.Exists()
}

func jsonEquals(res gjson.Result, want any) bool {
	switch w := want.(type) {
	case nil:
		return res.Type == gjson.Null
	case string:
		return res.Type == gjson.String && res.Str == w
	case bool:
		return res.IsBool() && res.Bool() == w
	case int:
		return res.Type == gjson.Number && res.Num == float64(w)
	case int64:
		return res.Type == gjson.Number && res.Num == float64(w)
	case float64:
		return res.Type == gjson.Number && res.Num == w
	default:
		b, err := json.Marshal(w)
		if err != nil {
			return false
		}
		return gjson.ParseBytes(b).Raw == res.Raw
	}
}

// FilterAnd combines multiple filters with AND logic.
// All filters must pass for the event to be delivered.
func FilterAnd(filters ...FilterFunc) FilterFunc {
	return func(e Event) bool {
		for _, f := range filters {
			if !f(e) {
				return false
			}
		}
		return true
	}
}

// FilterOr combines multiple filters with OR logic.
// At least one filter must pass for the event to be delivered.
func FilterOr(filters ...FilterFunc) FilterFunc {
	return func(e Event) bool {
		for _, f := range filters {
			if f(e) {
				return true
			}
		}
		return false
	}
}

// FilterNot negates a filter.
func FilterNot(filter FilterFunc) FilterFunc {
	return func(e Event) bool {
		return !filter(e)
	}
}

// FilterAll allows all events.
func FilterAll() FilterFunc {
	return func(Event) bool { return true }
}

// FilterNone blocks all events.
func FilterNone() FilterFunc {
	return func(Event) bool { return false }
}
