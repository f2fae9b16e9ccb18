package event

import (
	"sort"
	"sync"

	"github.com/nsevent/nsevent/internal/event/topic"
)

// Registry maps event types to their ordered handler entries.
// It is thread-safe for concurrent access.
//
// A type's entry list keeps registration order. A type is created on its
// first registration and deleted as soon as its list becomes empty, so the
// trie and the map only ever hold types with live handlers.
type Registry struct {
	mu    sync.RWMutex
	subs  map[topic.Topic][]*subscription
	byID  map[string]*subscription
	order map[topic.Topic]uint64 // creation sequence of each type
	seq   uint64
	trie  *topic.Trie
}

// NewRegistry creates a new, empty registry.
func NewRegistry() *Registry {
	return &Registry{
		subs:  make(map[topic.Topic][]*subscription),
		byID:  make(map[string]*subscription),
		order: make(map[topic.Topic]uint64),
		trie:  topic.NewTrie(),
	}
}

// Add appends a subscription to the end of its type's list.
func (r *Registry) Add(sub *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := sub.Topic()

	if _, exists := r.subs[key]; !exists {
		r.seq++
		r.order[key] = r.seq
		r.trie.Insert(key)
	}

	r.subs[key] = append(r.subs[key], sub)
	r.byID[sub.ID()] = sub
}

// Remove removes a single subscription by ID.
func (r *Registry) Remove(subID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, exists := r.byID[subID]
	if !exists {
		return false
	}

	r.removeFromKey(sub.Topic(), func(s *subscription) bool { return s == sub })
	return true
}

// RemoveMatching removes every subscription under a type matching query
// for which pred returns true. A nil pred removes them all.
// The removed subscriptions are returned in dispatch order.
func (r *Registry) RemoveMatching(query topic.Topic, exact bool, pred func(*subscription) bool) []*subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []*subscription
	for _, key := range r.keys(query, exact) {
		removed = append(removed, r.removeFromKey(key, pred)...)
	}
	return removed
}

// removeFromKey drops the matching entries of one type and deletes the type
// when nothing is left. Callers hold the write lock.
//
// The list is rebuilt rather than edited in place so that slices handed out
// earlier never observe the change.
func (r *Registry) removeFromKey(key topic.Topic, pred func(*subscription) bool) []*subscription {
	subs := r.subs[key]
	if len(subs) == 0 {
		return nil
	}

	kept := make([]*subscription, 0, len(subs))
	var removed []*subscription
	for _, s := range subs {
		if pred == nil || pred(s) {
			removed = append(removed, s)
			delete(r.byID, s.ID())
			continue
		}
		kept = append(kept, s)
	}

	if len(kept) == 0 {
		delete(r.subs, key)
		delete(r.order, key)
		r.trie.Delete(key)
	} else {
		r.subs[key] = kept
	}
	return removed
}

// Match returns a snapshot of every subscription whose type matches query.
// Types are ordered by when they were created, entries within a type by
// registration order.
func (r *Registry) Match(query topic.Topic, exact bool) []*subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*subscription
	for _, key := range r.keys(query, exact) {
		result = append(result, r.subs[key]...)
	}
	return result
}

// Has reports whether any type matches query.
func (r *Registry) Has(query topic.Topic, exact bool) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.keys(query, exact)) > 0
}

// keys returns the registered types matching query in creation order.
// Callers hold the lock.
func (r *Registry) keys(query topic.Topic, exact bool) []topic.Topic {
	if query == "" {
		return nil
	}

	if exact {
		if r.trie.Contains(query) {
			return []topic.Topic{query}
		}
		return nil
	}

	keys := r.trie.Within(query)
	r.sortKeys(keys)
	return keys
}

func (r *Registry) sortKeys(keys []topic.Topic) {
	sort.Slice(keys, func(i, j int) bool {
		return r.order[keys[i]] < r.order[keys[j]]
	})
}

// Count returns the total number of subscriptions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byID)
}

// CountByTopic returns the number of subscriptions registered under exactly key.
func (r *Registry) CountByTopic(key topic.Topic) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.subs[key])
}

// Topics returns all registered types in creation order.
func (r *Registry) Topics() []topic.Topic {
	r.mu.RLock()
	defer r.mu.RUnlock()

	topics := r.trie.All()
	if len(topics) == 0 {
		return nil
	}
	r.sortKeys(topics)
	return topics
}

// TopicCount returns the number of registered types.
func (r *Registry) TopicCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.trie.Size()
}

// Clear removes all subscriptions and returns them.
func (r *Registry) Clear() []*subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]*subscription, 0, len(r.byID))
	for _, s := range r.byID {
		all = append(all, s)
	}

	r.subs = make(map[topic.Topic][]*subscription)
	r.byID = make(map[string]*subscription)
	r.order = make(map[topic.Topic]uint64)
	r.trie.Clear()
	return all
}
