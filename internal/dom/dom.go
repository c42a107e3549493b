// Package dom holds the mutable conversation document tree that the TOC
// mirrors. It is deliberately small: attribute-tagged element and text
// nodes, document-order queries, and subtree-scoped change notification.
// It is not a general HTML DOM.
package dom

import (
	"strconv"
	"strings"
)

// NodeType discriminates element and text nodes.
type NodeType int

const (
	ElementNode NodeType = iota
	TextNode
)

// Node is one node in the document tree. Nodes are owned by the document
// they are attached to; detached subtrees may be assembled freely before
// being appended.
type Node struct {
	Type NodeType
	Tag  string

	parent   *Node
	children []*Node
	attrs    map[string]string
	text     string
}

// NewElement creates a detached element node. Attribute name/value pairs
// may be supplied inline.
func NewElement(tag string, attrPairs ...string) *Node {
	n := &Node{Type: ElementNode, Tag: tag}
	for i := 0; i+1 < len(attrPairs); i += 2 {
		n.SetAttr(attrPairs[i], attrPairs[i+1])
	}
	return n
}

// NewText creates a detached text node.
func NewText(text string) *Node {
	return &Node{Type: TextNode, text: text}
}

// Parent returns the node's parent, or nil for a root or detached node.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the node's children in order. The slice is shared; do
// not mutate it.
func (n *Node) Children() []*Node { return n.children }

// Attr returns the value of the named attribute, or "".
func (n *Node) Attr(name string) string {
	if n == nil || n.attrs == nil {
		return ""
	}
	return n.attrs[name]
}

// HasAttr reports whether the attribute is present, even if empty.
func (n *Node) HasAttr(name string) bool {
	if n == nil || n.attrs == nil {
		return false
	}
	_, ok := n.attrs[name]
	return ok
}

// SetAttr sets an attribute. Attribute writes do not notify observers;
// only structural and text changes do.
func (n *Node) SetAttr(name, value string) {
	if n.attrs == nil {
		n.attrs = make(map[string]string)
	}
	n.attrs[name] = value
}

// ID returns the node's element identifier ("id" attribute).
func (n *Node) ID() string { return n.Attr("id") }

// SetID sets the node's element identifier.
func (n *Node) SetID(id string) { n.SetAttr("id", id) }

// Append attaches children to a detached subtree without notification.
// Use Document.AppendChild for live mutations.
func (n *Node) Append(children ...*Node) {
	for _, c := range children {
		if c == nil {
			continue
		}
		c.parent = n
		n.children = append(n.children, c)
	}
}

// Contains reports whether other is n or a descendant of n.
func (n *Node) Contains(other *Node) bool {
	for cur := other; cur != nil; cur = cur.parent {
		if cur == n {
			return true
		}
	}
	return false
}

// Closest walks from n up through its ancestors and returns the first node
// matching pred, or nil.
func (n *Node) Closest(pred func(*Node) bool) *Node {
	for cur := n; cur != nil; cur = cur.parent {
		if pred(cur) {
			return cur
		}
	}
	return nil
}

// Find returns the first descendant of n (excluding n itself) matching
// pred, in document order.
func (n *Node) Find(pred func(*Node) bool) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.children {
		if pred(c) {
			return c
		}
		if hit := c.Find(pred); hit != nil {
			return hit
		}
	}
	return nil
}

// FindAll returns all descendants of n (excluding n itself) matching pred,
// in document order.
func (n *Node) FindAll(pred func(*Node) bool) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.children {
		if pred(c) {
			out = append(out, c)
		}
		out = append(out, c.FindAll(pred)...)
	}
	return out
}

// Text returns the concatenated text content of the subtree, trimmed.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	n.writeText(&sb)
	return strings.TrimSpace(sb.String())
}

func (n *Node) writeText(sb *strings.Builder) {
	if n.Type == TextNode {
		sb.WriteString(n.text)
		return
	}
	for _, c := range n.children {
		c.writeText(sb)
	}
}

// VisibleText collects trimmed, non-empty text runs in the subtree, joined
// by single spaces, skipping the exclude subtree when non-nil.
func (n *Node) VisibleText(exclude *Node) string {
	if n == nil {
		return ""
	}
	var parts []string
	var walk func(*Node)
	walk = func(cur *Node) {
		if exclude != nil && cur == exclude {
			return
		}
		if cur.Type == TextNode {
			if t := strings.TrimSpace(cur.text); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for _, c := range cur.children {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}

// Bounds returns the node's declared width and height in pixels, parsed
// from its "width"/"height" attributes. Missing or unparsable dimensions
// are reported as zero.
func (n *Node) Bounds() (w, h int) {
	w, _ = strconv.Atoi(n.Attr("width"))
	h, _ = strconv.Atoi(n.Attr("height"))
	return w, h
}

// WithTag matches element nodes with any of the given tags.
func WithTag(tags ...string) func(*Node) bool {
	return func(n *Node) bool {
		if n.Type != ElementNode {
			return false
		}
		for _, t := range tags {
			if n.Tag == t {
				return true
			}
		}
		return false
	}
}

// WithAttr matches element nodes carrying the exact attribute value.
func WithAttr(name, value string) func(*Node) bool {
	return func(n *Node) bool {
		return n.Type == ElementNode && n.Attr(name) == value
	}
}
