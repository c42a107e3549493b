package toc

import (
	"fmt"
	"strings"
	"testing"

	"github.com/metcalfc/chattoc/internal/dom"
	"github.com/metcalfc/chattoc/internal/timing"
)

func turnMarkup(n int) string {
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, `
			<div data-testid="conversation-turn">
				<div data-message-author-role="user">question %d</div>
				<div data-message-author-role="assistant"><div class="markdown"><p>answer %d</p></div></div>
			</div>`, i, i)
	}
	return sb.String()
}

func newTestSession(t *testing.T, doc *dom.Document, opts Options) (*Session, *timing.Fake) {
	t.Helper()
	clock := timing.NewFake()
	opts.Clock = clock
	sess := NewSession(doc, opts)
	t.Cleanup(sess.Close)
	return sess, clock
}

func TestZeroOptionsKeepAssistantPreview(t *testing.T) {
	doc := parseDoc(t, turnMarkup(1))
	sess, _ := newTestSession(t, doc, Options{})
	sess.Rebuild(true)

	// The zero Options value must behave like DefaultOptions: summary
	// rows populated and the streaming watch installed.
	if got := sess.Items()[0].Summary; got != "answer 1" {
		t.Errorf("Summary = %q, want %q", got, "answer 1")
	}
	if sess.stream == nil {
		t.Error("Streaming watch not installed under zero options")
	}
}

func TestDisableAssistantPreview(t *testing.T) {
	doc := parseDoc(t, turnMarkup(1))
	sess, _ := newTestSession(t, doc, Options{DisableAssistantPreview: true})
	sess.Rebuild(true)

	if got := sess.Items()[0].Summary; got != "" {
		t.Errorf("Summary = %q, want empty with preview disabled", got)
	}
	if sess.stream != nil {
		t.Error("Streaming watch installed despite disabled preview")
	}
}

func TestRebuildGatedOnUserCount(t *testing.T) {
	doc := parseDoc(t, turnMarkup(2))
	sess, _ := newTestSession(t, doc, Options{})

	if !sess.Rebuild(false) {
		t.Fatal("First rebuild should run")
	}
	if len(sess.Items()) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(sess.Items()))
	}

	// Nothing changed the user count; a plain rebuild is skipped.
	if sess.Rebuild(false) {
		t.Error("Rebuild should be skipped when the user count is unchanged")
	}
	if !sess.Rebuild(true) {
		t.Error("Forced rebuild should always run")
	}

	// A new turn changes the count and unlocks the next rebuild.
	turn := dom.NewElement("div", "data-testid", "conversation-turn")
	user := dom.NewElement("div", "data-message-author-role", "user")
	user.Append(dom.NewText("question 3"))
	turn.Append(user)
	doc.AppendChild(doc.Root(), turn)

	if !sess.Rebuild(false) {
		t.Error("Rebuild should run after a new user message")
	}
	if len(sess.Items()) != 3 {
		t.Errorf("Expected 3 items, got %d", len(sess.Items()))
	}
}

func TestRebuildPreservesIdentity(t *testing.T) {
	doc := parseDoc(t, turnMarkup(2))
	sess, _ := newTestSession(t, doc, Options{})

	sess.Rebuild(true)
	first := make([]string, 0, 2)
	for _, it := range sess.Items() {
		first = append(first, it.TargetID)
	}

	sess.Rebuild(true)
	for i, it := range sess.Items() {
		if it.TargetID != first[i] {
			t.Errorf("Item %d changed id across rebuilds: %s != %s", i, it.TargetID, first[i])
		}
	}
}

func TestRebuildWindowKeepsTrueOrdinals(t *testing.T) {
	doc := parseDoc(t, turnMarkup(5))
	sess, _ := newTestSession(t, doc, Options{MaxItems: 2})

	sess.Rebuild(true)
	items := sess.Items()
	if len(items) != 2 {
		t.Fatalf("Expected 2 windowed items, got %d", len(items))
	}
	// The window holds the newest turns with their transcript ordinals.
	if items[0].Ordinal != 3 || items[1].Ordinal != 4 {
		t.Errorf("Ordinals = %d,%d, want 3,4", items[0].Ordinal, items[1].Ordinal)
	}
	if !strings.Contains(items[1].Title, "question 5") {
		t.Errorf("Last item title = %q", items[1].Title)
	}
}

func TestAssistantSummary(t *testing.T) {
	doc := parseDoc(t, `
		<div data-testid="conversation-turn">
			<div data-message-author-role="user">q</div>
			<div data-message-author-role="assistant">
				<div class="markdown">
					<p>First paragraph of the reply.</p>
					<p>Second paragraph that should not appear.</p>
				</div>
			</div>
		</div>`)
	sess, _ := newTestSession(t, doc, Options{})
	sess.Rebuild(true)

	got := sess.Items()[0].Summary
	if got != "First paragraph of the reply." {
		t.Errorf("Summary = %q", got)
	}
}

func TestSetFilter(t *testing.T) {
	doc := parseDoc(t, turnMarkup(3))
	sess, _ := newTestSession(t, doc, Options{})
	sess.Rebuild(true)

	sess.SetFilter("QUESTION 2")
	visible := 0
	for _, it := range sess.Items() {
		if it.Visible {
			visible++
		}
	}
	if visible != 1 {
		t.Errorf("Expected 1 visible item, got %d", visible)
	}

	// Filter matches summaries too.
	sess.SetFilter("answer 3")
	if !sess.Items()[2].Visible {
		t.Error("Summary text should be searchable")
	}

	sess.SetFilter("  ")
	for i, it := range sess.Items() {
		if !it.Visible {
			t.Errorf("Item %d hidden under empty filter", i)
		}
	}
}

func TestActivate(t *testing.T) {
	doc := parseDoc(t, turnMarkup(2))
	var scrolled *dom.Node
	sess, _ := newTestSession(t, doc, Options{
		ScrollTo: func(n *dom.Node) { scrolled = n },
	})
	sess.Rebuild(true)

	first := sess.Items()[0]
	sess.Activate(first.TargetID)
	if scrolled == nil {
		t.Fatal("Activate did not scroll")
	}
	if scrolled.Attr("data-toc-id") != first.TargetID {
		t.Error("Scrolled to the wrong node")
	}

	// A stale id is silently ignored.
	scrolled = nil
	sess.Activate("toc-doesnotexist")
	if scrolled != nil {
		t.Error("Stale id should be a no-op")
	}
	sess.Activate("")
	if scrolled != nil {
		t.Error("Empty id should be a no-op")
	}
}
