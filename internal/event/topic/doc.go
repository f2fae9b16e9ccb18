// Package topic provides dot-delimited event types and namespace matching
// for the event emitter.
//
// # Topic Format
//
// Topics use dot-notation to create hierarchical namespaces:
//
//	namespace.myevent
//	namespace.myevent.action
//	plugin.my-plugin.loaded
//
// Only "." is a separator. Every other character, including "-", "[" or "*",
// is part of a segment and compares literally.
//
// # Namespace Matching
//
// Emitting a query reaches every registration equal to the query or nested
// below it at a segment boundary:
//
//	query "namespace"           reaches namespace.myevent, namespace.myevent.action
//	query "namespace.myevent"   reaches namespace.myevent, namespace.myevent.action
//	query "myevent.action"      does not reach namespace.myevent.action
//	query "namespac"            does not reach namespace.myevent
//
// Exact matching bypasses the namespace rule and compares the whole string.
//
// # Usage
//
//	tr := topic.NewTrie()
//	tr.Insert(topic.Topic("namespace.myevent"))
//	tr.Insert(topic.Topic("namespace.myevent.action"))
//
//	keys := tr.Within(topic.Topic("namespace"))
//	// keys contains both topics
package topic
