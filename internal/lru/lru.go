// Package lru provides an intrusive doubly-linked recency list.
//
// The list does not own a lookup map; callers keep the returned *Node next
// to their own value so removal and promotion stay O(1). The list is not
// thread-safe; callers must handle synchronization.
package lru

// Node is an entry in a List. It stores the value so the oldest entry can
// be reported without a reverse lookup.
type Node[V any] struct {
	Value V
	prev  *Node[V]
	next  *Node[V]
	list  *List[V]
}

// List orders nodes by recency. The head is the most recently used, the
// tail is the least recently used.
type List[V any] struct {
	head *Node[V]
	tail *Node[V]
	len  int
}

// New creates an empty list.
func New[V any]() *List[V] {
	return &List[V]{}
}

// Len returns the number of nodes in the list.
func (l *List[V]) Len() int {
	return l.len
}

// PushFront adds a new node at the front (most recently used).
// Returns the created node for later access.
func (l *List[V]) PushFront(v V) *Node[V] {
	node := &Node[V]{Value: v, list: l}
	l.linkFront(node)
	return node
}

// MoveToFront moves an existing node to the front (most recently used).
// Nodes that belong to another list, or were removed, are ignored.
func (l *List[V]) MoveToFront(node *Node[V]) {
	if node == nil || node.list != l || node == l.head {
		return
	}
	l.unlink(node)
	l.linkFront(node)
}

// Remove removes a node from the list. Removing a node twice is a no-op.
func (l *List[V]) Remove(node *Node[V]) {
	if node == nil || node.list != l {
		return
	}
	l.unlink(node)
	node.list = nil
}

// RemoveOldest removes and returns the value of the least recently used node.
// Returns zero value and false if list is empty.
func (l *List[V]) RemoveOldest() (V, bool) {
	if l.tail == nil {
		var zero V
		return zero, false
	}
	node := l.tail
	l.Remove(node)
	return node.Value, true
}

// Oldest returns the value of the least recently used node without removing it.
// Returns zero value and false if list is empty.
func (l *List[V]) Oldest() (V, bool) {
	if l.tail == nil {
		var zero V
		return zero, false
	}
	return l.tail.Value, true
}

// Clear removes all nodes from the list.
func (l *List[V]) Clear() {
	for n := l.head; n != nil; {
		next := n.next
		n.prev, n.next, n.list = nil, nil, nil
		n = next
	}
	l.head = nil
	l.tail = nil
	l.len = 0
}

func (l *List[V]) linkFront(node *Node[V]) {
	node.prev = nil
	node.next = l.head
	if l.head != nil {
		l.head.prev = node
	}
	l.head = node
	if l.tail == nil {
		l.tail = node
	}
	l.len++
}

// unlink removes a node from the list without clearing its list pointer.
func (l *List[V]) unlink(node *Node[V]) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}

	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}

	node.prev = nil
	node.next = nil
	l.len--
}
