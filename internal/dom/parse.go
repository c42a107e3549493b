package dom

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse reads an HTML document and returns a Document whose root holds the
// converted contents of the page body.
func Parse(r io.Reader) (*Document, error) {
	hn, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	doc := NewDocument()
	if body := findHTMLNode(hn, atom.Body); body != nil {
		for c := body.FirstChild; c != nil; c = c.NextSibling {
			if n := convert(c); n != nil {
				doc.root.Append(n)
			}
		}
	}
	return doc, nil
}

// ParseFragment converts an HTML fragment (body context) into detached
// nodes.
func ParseFragment(markup string) ([]*Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	parsed, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return nil, err
	}
	var out []*Node
	for _, hn := range parsed {
		if n := convert(hn); n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}

func findHTMLNode(hn *html.Node, a atom.Atom) *html.Node {
	if hn.Type == html.ElementNode && hn.DataAtom == a {
		return hn
	}
	for c := hn.FirstChild; c != nil; c = c.NextSibling {
		if hit := findHTMLNode(c, a); hit != nil {
			return hit
		}
	}
	return nil
}

func convert(hn *html.Node) *Node {
	switch hn.Type {
	case html.TextNode:
		return NewText(hn.Data)
	case html.ElementNode:
		n := NewElement(hn.Data)
		for _, a := range hn.Attr {
			n.SetAttr(a.Key, a.Val)
		}
		for c := hn.FirstChild; c != nil; c = c.NextSibling {
			if child := convert(c); child != nil {
				n.Append(child)
			}
		}
		return n
	default:
		// Comments, doctypes and the like carry nothing the TOC reads.
		return nil
	}
}
