package topic

import "strings"

// Topic is a dot-delimited event type.
// Examples: "namespace.myevent", "namespace.myevent.action", "plugin.my-plugin.loaded"
type Topic string

// Separator is the only character with special meaning in a topic.
const Separator = "."

// String returns the topic as a string.
func (t Topic) String() string {
	return string(t)
}

// Segments returns the topic split by the separator.
// Empty segments are preserved so that "a..b" yields ["a", "", "b"].
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), Separator)
}

// SegmentCount returns the number of segments in the topic.
func (t Topic) SegmentCount() int {
	if t == "" {
		return 0
	}
	return strings.Count(string(t), Separator) + 1
}

// Parent returns the enclosing namespace by removing the last segment.
// Returns an empty topic if there is no parent.
//
// Example: "namespace.myevent.action" -> "namespace.myevent"
func (t Topic) Parent() Topic {
	s := string(t)
	idx := strings.LastIndex(s, Separator)
	if idx < 0 {
		return ""
	}
	return Topic(s[:idx])
}

// Child returns a child topic by appending a segment.
//
// Example: "namespace".Child("myevent") -> "namespace.myevent"
func (t Topic) Child(segment string) Topic {
	if t == "" {
		return Topic(segment)
	}
	return Topic(string(t) + Separator + segment)
}

// Base returns the last segment of the topic.
//
// Example: "namespace.myevent.action" -> "action"
func (t Topic) Base() string {
	s := string(t)
	idx := strings.LastIndex(s, Separator)
	if idx < 0 {
		return s
	}
	return s[idx+1:]
}

// HasPrefix returns true if the topic equals prefix or lies inside the
// namespace named by prefix. Matching is on whole segments only:
// "namespace.myevent" has prefix "namespace" but not "name".
func (t Topic) HasPrefix(prefix Topic) bool {
	if prefix == "" {
		return true
	}
	s := string(t)
	p := string(prefix)
	if !strings.HasPrefix(s, p) {
		return false
	}
	if len(s) == len(p) {
		return true
	}
	return s[len(p)] == '.'
}

// Matches reports whether a handler registered under t is reached by an
// emit of query.
//
// In exact mode the two topics must be identical. Otherwise t must equal
// query or start with query + ".". A query never reaches a registration by
// suffix or from the middle of its path: "myevent.action" does not match
// "namespace.myevent.action".
func (t Topic) Matches(query Topic, exact bool) bool {
	if exact {
		return t == query
	}
	return t == query || strings.HasPrefix(string(t), string(query)+Separator)
}

// IsValid returns true if the topic is well formed:
//   - Is not empty
//   - Does not start or end with a separator
//   - Does not contain empty segments
//
// The emitter accepts any non-empty topic; IsValid is advisory for callers
// that want to reject malformed names early.
func (t Topic) IsValid() bool {
	if t == "" {
		return false
	}
	for _, seg := range t.Segments() {
		if seg == "" {
			return false
		}
	}
	return true
}

// Join joins multiple segments into a topic.
func Join(segments ...string) Topic {
	return Topic(strings.Join(segments, Separator))
}

// Split splits a topic string into segments.
// This is a convenience function that doesn't require creating a Topic first.
func Split(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, Separator)
}
