package dom

import (
	"strings"
	"testing"
)

func TestQueryDocumentOrder(t *testing.T) {
	doc := NewDocument()
	a := NewElement("div", "k", "1")
	b := NewElement("div", "k", "2")
	inner := NewElement("span", "k", "3")
	a.Append(inner)
	doc.AppendChild(doc.Root(), a)
	doc.AppendChild(doc.Root(), b)

	all := doc.QueryAll(func(n *Node) bool { return n.HasAttr("k") })
	if len(all) != 3 {
		t.Fatalf("Expected 3 matches, got %d", len(all))
	}
	want := []string{"1", "3", "2"}
	for i, n := range all {
		if n.Attr("k") != want[i] {
			t.Errorf("Position %d = %q, want %q", i, n.Attr("k"), want[i])
		}
	}

	first := doc.Query(WithTag("span"))
	if first != inner {
		t.Error("Query did not return the nested span")
	}
}

func TestObserveScopedToSubtree(t *testing.T) {
	doc := NewDocument()
	watched := NewElement("section")
	other := NewElement("section")
	doc.AppendChild(doc.Root(), watched)
	doc.AppendChild(doc.Root(), other)

	var got []Mutation
	doc.Observe(watched, func(m Mutation) { got = append(got, m) })

	doc.AppendChild(watched, NewElement("p"))
	doc.AppendChild(other, NewElement("p"))

	if len(got) != 1 {
		t.Fatalf("Expected 1 delivery, got %d", len(got))
	}
	if got[0].Target != watched || len(got[0].Added) != 1 {
		t.Errorf("Unexpected mutation: %+v", got[0])
	}
}

func TestObserveCancel(t *testing.T) {
	doc := NewDocument()
	calls := 0
	sub := doc.Observe(doc.Root(), func(Mutation) { calls++ })

	doc.AppendChild(doc.Root(), NewElement("p"))
	sub.Cancel()
	doc.AppendChild(doc.Root(), NewElement("p"))
	sub.Cancel() // second cancel is a no-op

	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestAppendTextNotifiesAndCoalesces(t *testing.T) {
	doc := NewDocument()
	p := NewElement("p")
	doc.AppendChild(doc.Root(), p)

	textMutations := 0
	doc.Observe(p, func(m Mutation) {
		if m.Text {
			textMutations++
		}
	})

	doc.AppendText(p, "hello")
	doc.AppendText(p, " world")

	if p.Text() != "hello world" {
		t.Errorf("Text = %q", p.Text())
	}
	// The second append extends the existing text node.
	if len(p.Children()) != 1 {
		t.Errorf("Expected 1 text child, got %d", len(p.Children()))
	}
	if textMutations != 1 {
		t.Errorf("Expected 1 text mutation, got %d", textMutations)
	}
}

func TestRemoveChild(t *testing.T) {
	doc := NewDocument()
	child := NewElement("div")
	doc.AppendChild(doc.Root(), child)

	var removed []*Node
	doc.Observe(doc.Root(), func(m Mutation) { removed = append(removed, m.Removed...) })

	doc.RemoveChild(doc.Root(), child)
	if child.Parent() != nil {
		t.Error("Removed child still has a parent")
	}
	if len(removed) != 1 || removed[0] != child {
		t.Errorf("Unexpected removal notification: %v", removed)
	}

	// Removing an unrelated node is ignored.
	doc.RemoveChild(doc.Root(), NewElement("div"))
}

func TestVisibleTextSkipsExcluded(t *testing.T) {
	root := NewElement("div")
	user := NewElement("span")
	user.Append(NewText("  report.pdf  "))
	reply := NewElement("span")
	reply.Append(NewText("here is the summary"))
	root.Append(user, reply)

	got := root.VisibleText(reply)
	if got != "report.pdf" {
		t.Errorf("VisibleText = %q", got)
	}
	if full := root.VisibleText(nil); full != "report.pdf here is the summary" {
		t.Errorf("Unexcluded VisibleText = %q", full)
	}
}

func TestClosestAndContains(t *testing.T) {
	article := NewElement("article")
	div := NewElement("div")
	span := NewElement("span")
	div.Append(span)
	article.Append(div)

	if span.Closest(WithTag("article")) != article {
		t.Error("Closest did not find the article ancestor")
	}
	if !article.Contains(span) {
		t.Error("Contains missed a descendant")
	}
	if span.Contains(article) {
		t.Error("Contains inverted")
	}
}

func TestBounds(t *testing.T) {
	img := NewElement("img", "width", "48", "height", "32")
	if w, h := img.Bounds(); w != 48 || h != 32 {
		t.Errorf("Bounds = %dx%d", w, h)
	}
	if w, h := NewElement("img").Bounds(); w != 0 || h != 0 {
		t.Errorf("Undeclared bounds = %dx%d", w, h)
	}
}

func TestParseDocument(t *testing.T) {
	markup := `<html><body>
		<article data-testid="conversation-turn">
			<div data-message-author-role="user">hello <b>there</b></div>
		</article>
		<!-- a comment -->
	</body></html>`

	doc, err := Parse(strings.NewReader(markup))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	article := doc.Query(WithAttr("data-testid", "conversation-turn"))
	if article == nil {
		t.Fatal("Turn container not found")
	}
	user := article.Find(WithAttr("data-message-author-role", "user"))
	if user == nil {
		t.Fatal("User node not found")
	}
	if user.Text() != "hello there" {
		t.Errorf("Text = %q", user.Text())
	}
}

func TestParseFragment(t *testing.T) {
	nodes, err := ParseFragment(`<p>one</p><p>two</p>`)
	if err != nil {
		t.Fatalf("ParseFragment failed: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("Expected 2 nodes, got %d", len(nodes))
	}
	if nodes[1].Text() != "two" {
		t.Errorf("Second node text = %q", nodes[1].Text())
	}
}
