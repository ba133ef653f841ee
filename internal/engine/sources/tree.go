package sources

// Node is a position inside a decoded ytInitialData document.
//
// YouTube changes the shape of this JSON between UI revisions, so every lookup is
// optional: asking an absent or mistyped node for a key, an index or a string
// yields another absent node (or ok=false) instead of panicking. Readers chain
// lookups and check once at the end.
type Node struct {
	v  any
	ok bool
}

// NewNode wraps a value produced by encoding/json.
func NewNode(v any) Node { return Node{v: v, ok: true} }

// Exists reports whether the lookup chain that produced n found a value.
func (n Node) Exists() bool { return n.ok }

// Key returns the member k of an object node.
func (n Node) Key(k string) Node {
	m, ok := n.v.(map[string]any)
	if !n.ok || !ok {
		return Node{}
	}
	v, ok := m[k]
	if !ok {
		return Node{}
	}
	return Node{v: v, ok: true}
}

// Path follows keys in order.
func (n Node) Path(keys ...string) Node {
	for _, k := range keys {
		n = n.Key(k)
	}
	return n
}

// Has reports whether an object node carries member k.
func (n Node) Has(k string) bool { return n.Key(k).Exists() }

// Index returns element i of an array node.
func (n Node) Index(i int) Node {
	arr, ok := n.v.([]any)
	if !n.ok || !ok || i < 0 || i >= len(arr) {
		return Node{}
	}
	return Node{v: arr[i], ok: true}
}

// Items returns the elements of an array node, or nil for anything else.
func (n Node) Items() []Node {
	arr, ok := n.v.([]any)
	if !n.ok || !ok {
		return nil
	}
	out := make([]Node, len(arr))
	for i, v := range arr {
		out[i] = Node{v: v, ok: true}
	}
	return out
}

// Str returns the value of a string node.
func (n Node) Str() (string, bool) {
	s, ok := n.v.(string)
	if !n.ok || !ok {
		return "", false
	}
	return s, true
}

// StrOr returns the string value or def.
func (n Node) StrOr(def string) string {
	if s, ok := n.Str(); ok {
		return s
	}
	return def
}
