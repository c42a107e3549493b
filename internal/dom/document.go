package dom

// Mutation describes one structural or textual change to the document.
type Mutation struct {
	// Target is the parent of a structural change, or the node whose text
	// changed.
	Target  *Node
	Added   []*Node
	Removed []*Node
	// Text is set when the change was a text update rather than a
	// child-list change.
	Text bool
}

// Subscription is an active observer registration.
type Subscription struct {
	doc    *Document
	target *Node
	fn     func(Mutation)
	done   bool
}

// Cancel tears down the subscription. Further mutations are not delivered.
// Cancelling twice is a no-op.
func (s *Subscription) Cancel() {
	if s == nil || s.done {
		return
	}
	s.done = true
	subs := s.doc.subs[:0]
	for _, other := range s.doc.subs {
		if other != s {
			subs = append(subs, other)
		}
	}
	s.doc.subs = subs
}

// Document owns a node tree and delivers mutation notifications in the
// order the mutations occurred.
type Document struct {
	root *Node
	subs []*Subscription
}

// NewDocument creates an empty document with a root element.
func NewDocument() *Document {
	return &Document{root: NewElement("main")}
}

// Root returns the document root.
func (d *Document) Root() *Node { return d.root }

// Query returns the first node in document order matching pred, or nil.
func (d *Document) Query(pred func(*Node) bool) *Node {
	if d == nil || d.root == nil {
		return nil
	}
	if pred(d.root) {
		return d.root
	}
	return d.root.Find(pred)
}

// QueryAll returns all nodes in document order matching pred.
func (d *Document) QueryAll(pred func(*Node) bool) []*Node {
	if d == nil || d.root == nil {
		return nil
	}
	var out []*Node
	if pred(d.root) {
		out = append(out, d.root)
	}
	return append(out, d.root.FindAll(pred)...)
}

// Count returns the number of nodes matching pred.
func (d *Document) Count(pred func(*Node) bool) int {
	return len(d.QueryAll(pred))
}

// Observe registers fn for mutations occurring at or under target.
// Delivery is synchronous and in mutation order.
func (d *Document) Observe(target *Node, fn func(Mutation)) *Subscription {
	if target == nil {
		target = d.root
	}
	sub := &Subscription{doc: d, target: target, fn: fn}
	d.subs = append(d.subs, sub)
	return sub
}

// AppendChild attaches child (possibly a detached subtree) under parent and
// notifies observers.
func (d *Document) AppendChild(parent, child *Node) {
	if parent == nil || child == nil {
		return
	}
	parent.Append(child)
	d.notify(Mutation{Target: parent, Added: []*Node{child}})
}

// RemoveChild detaches child from parent and notifies observers. Unrelated
// nodes are ignored.
func (d *Document) RemoveChild(parent, child *Node) {
	if parent == nil || child == nil || child.parent != parent {
		return
	}
	kids := parent.children[:0]
	for _, c := range parent.children {
		if c != child {
			kids = append(kids, c)
		}
	}
	parent.children = kids
	child.parent = nil
	d.notify(Mutation{Target: parent, Removed: []*Node{child}})
}

// SetText replaces the text of a text node and notifies observers.
func (d *Document) SetText(n *Node, text string) {
	if n == nil || n.Type != TextNode {
		return
	}
	n.text = text
	d.notify(Mutation{Target: n, Text: true})
}

// AppendText appends to the last text-node child of n, creating one if
// needed, and notifies observers. This is the streaming-delta entry point.
func (d *Document) AppendText(n *Node, text string) {
	if n == nil || text == "" {
		return
	}
	if len(n.children) > 0 {
		if last := n.children[len(n.children)-1]; last.Type == TextNode {
			last.text += text
			d.notify(Mutation{Target: last, Text: true})
			return
		}
	}
	t := NewText(text)
	n.Append(t)
	d.notify(Mutation{Target: n, Added: []*Node{t}})
}

func (d *Document) notify(m Mutation) {
	// Snapshot: a callback may cancel subscriptions mid-delivery.
	subs := make([]*Subscription, len(d.subs))
	copy(subs, d.subs)
	for _, s := range subs {
		if s.done {
			continue
		}
		if s.target.Contains(m.Target) {
			s.fn(m)
		}
	}
}
