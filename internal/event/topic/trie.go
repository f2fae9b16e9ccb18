package topic

import "sync"

// Trie is a thread-safe trie of registered topics keyed by segment.
// It answers namespace queries in O(k + m) where k is the number of query
// segments and m is the number of topics below the query.
type Trie struct {
	mu   sync.RWMutex
	root *trieNode
}

// trieNode represents a node in the topic trie.
type trieNode struct {
	children map[string]*trieNode
	terminal bool // a registered topic ends at this node
	topic    Topic
}

// newTrieNode creates a new trie node.
func newTrieNode() *trieNode {
	return &trieNode{
		children: make(map[string]*trieNode),
	}
}

// isEmpty returns true if the node has no children and no topic.
func (n *trieNode) isEmpty() bool {
	return len(n.children) == 0 && !n.terminal
}

// NewTrie creates a new topic trie.
func NewTrie() *Trie {
	return &Trie{
		root: newTrieNode(),
	}
}

// Insert adds a topic to the trie.
// Returns true if the topic was added, false if it already existed.
func (t *Trie) Insert(key Topic) bool {
	if key == "" {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Initialize root if zero-value Trie is used
	if t.root == nil {
		t.root = newTrieNode()
	}

	node := t.root
	for _, seg := range key.Segments() {
		if node.children[seg] == nil {
			node.children[seg] = newTrieNode()
		}
		node = node.children[seg]
	}

	if node.terminal {
		return false
	}
	node.terminal = true
	node.topic = key
	return true
}

// pathEntry tracks a node and the key used to reach it during traversal.
type pathEntry struct {
	node *trieNode
	key  string // the segment key used to reach this node from parent
}

// Delete removes a topic from the trie and prunes empty nodes.
// Returns true if the topic was removed, false if it didn't exist.
func (t *Trie) Delete(key Topic) bool {
	if key == "" {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.root == nil {
		return false
	}

	segments := key.Segments()

	path := make([]pathEntry, 0, len(segments)+1)
	path = append(path, pathEntry{node: t.root})

	node := t.root
	for _, seg := range segments {
		child := node.children[seg]
		if child == nil {
			return false
		}
		path = append(path, pathEntry{node: child, key: seg})
		node = child
	}

	if !node.terminal {
		return false
	}
	node.terminal = false
	node.topic = ""

	// Prune empty nodes from leaf back to root
	for i := len(path) - 1; i > 0; i-- {
		if !path[i].node.isEmpty() {
			break
		}
		delete(path[i-1].node.children, path[i].key)
	}

	return true
}

// Contains returns true if the exact topic exists in the trie.
func (t *Trie) Contains(key Topic) bool {
	if key == "" {
		return false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	node := t.find(key)
	return node != nil && node.terminal
}

// Within returns every stored topic equal to query or nested below it.
// Order is unspecified.
func (t *Trie) Within(query Topic) []Topic {
	if query == "" {
		return nil
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	node := t.find(query)
	if node == nil {
		return nil
	}

	var topics []Topic
	collectTopics(node, &topics)
	return topics
}

// find walks to the node for key. Callers hold the lock.
func (t *Trie) find(key Topic) *trieNode {
	if t.root == nil {
		return nil
	}
	node := t.root
	for _, seg := range key.Segments() {
		node = node.children[seg]
		if node == nil {
			return nil
		}
	}
	return node
}

// All returns all topics stored in the trie.
func (t *Trie) All() []Topic {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var topics []Topic
	collectTopics(t.root, &topics)
	return topics
}

// collectTopics recursively collects all topics below node.
func collectTopics(node *trieNode, topics *[]Topic) {
	if node == nil {
		return
	}

	if node.terminal {
		*topics = append(*topics, node.topic)
	}

	for _, child := range node.children {
		collectTopics(child, topics)
	}
}

// Size returns the number of topics in the trie.
func (t *Trie) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	count := 0
	countTopics(t.root, &count)
	return count
}

// countTopics recursively counts topics in the trie.
func countTopics(node *trieNode, count *int) {
	if node == nil {
		return
	}

	if node.terminal {
		*count++
	}

	for _, child := range node.children {
		countTopics(child, count)
	}
}

// Clear removes all topics from the trie.
func (t *Trie) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.root = newTrieNode()
}

// nodeCount returns the total number of nodes in the trie.
func (t *Trie) nodeCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	count := 0
	countNodes(t.root, &count)
	return count
}

// countNodes recursively counts nodes in the trie.
func countNodes(node *trieNode, count *int) {
	if node == nil {
		return
	}

	*count++

	for _, child := range node.children {
		countNodes(child, count)
	}
}
