package toc

import (
	"strings"
	"time"

	"github.com/metcalfc/chattoc/internal/dom"
	"github.com/metcalfc/chattoc/internal/timing"
)

// Options configure a Session.
type Options struct {
	// MaxItems bounds the rendered window to the most recent turns.
	// Ordinals always reflect true transcript position, not window
	// position.
	MaxItems int

	// DisableAssistantPreview turns off the per-item assistant summary row
	// and the streaming watch on the last turn. Inverted so the zero
	// Options value leaves the preview enabled.
	DisableAssistantPreview bool

	// StreamIdle is the quiet gap required after a mutation burst before
	// the last item's summary is recomputed.
	StreamIdle time.Duration

	Clock timing.Clock

	// ScrollTo receives the resolved turn root when an item is activated.
	ScrollTo func(*dom.Node)

	// OnStreamIdle, when set, is invoked instead of patching inline once
	// the streaming idle gap elapses; the owner then calls
	// ApplyStreamPatch from its own loop. Timer callbacks may run on a
	// timer goroutine with a real clock, so event-loop owners should
	// always set this.
	OnStreamIdle func()
}

// DefaultOptions returns the standard session configuration.
func DefaultOptions() Options {
	return Options{
		MaxItems:   250,
		StreamIdle: 600 * time.Millisecond,
		Clock:      timing.Real(),
	}
}

// Item is the rendered projection of one turn.
type Item struct {
	TargetID string
	Ordinal  int // zero-based true position in the transcript
	Title    string
	Thumbs   []string
	Summary  string // assistant preview
	Visible  bool   // current search filter verdict

	search string // lower-cased title + summary
}

// SearchText returns the item's cached searchable text.
func (it *Item) SearchText() string { return it.search }

// Session owns the synchronized item list for one conversation document.
// All methods must be called from a single goroutine; timer callbacks are
// routed back through OnStreamIdle.
type Session struct {
	doc  *dom.Document
	opts Options

	lastBuiltUserCount int
	lastTargetID       string
	items              []*Item
	filter             string

	stream *streamWatch
}

// NewSession creates a session over doc. Zero-value option fields fall
// back to defaults.
func NewSession(doc *dom.Document, opts Options) *Session {
	def := DefaultOptions()
	if opts.MaxItems <= 0 {
		opts.MaxItems = def.MaxItems
	}
	if opts.StreamIdle <= 0 {
		opts.StreamIdle = def.StreamIdle
	}
	if opts.Clock == nil {
		opts.Clock = def.Clock
	}
	return &Session{
		doc:                doc,
		opts:               opts,
		lastBuiltUserCount: -1,
	}
}

// UserTurnCount returns the current user-authored message count.
func (s *Session) UserTurnCount() int { return UserTurnCount(s.doc) }

// Items returns the rendered items, oldest first. Filtered-out items have
// Visible unset.
func (s *Session) Items() []*Item { return s.items }

// LastTargetID returns the stable id of the most recently rendered turn.
func (s *Session) LastTargetID() string { return s.lastTargetID }

// Rebuild re-renders the item list from the document. Unless forced, it
// runs only when the user-turn count changed since the last build; purely
// cosmetic mutations are skipped. Reports whether a rebuild ran.
func (s *Session) Rebuild(force bool) bool {
	count := s.UserTurnCount()
	if !force && count == s.lastBuiltUserCount {
		return false
	}
	s.lastBuiltUserCount = count

	all := Locate(s.doc)
	start := 0
	if len(all) > s.opts.MaxItems {
		start = len(all) - s.opts.MaxItems
	}
	turns := all[start:]

	s.items = make([]*Item, 0, len(turns))
	s.lastTargetID = ""
	var last *Turn

	for i := range turns {
		t := turns[i]
		if t.Root == nil {
			continue
		}
		ordinal := start + i
		d := Classify(t)
		id := AssignID(t, ordinal, d.Title)

		summary := ""
		if !s.opts.DisableAssistantPreview && t.Assistant != nil {
			summary = assistantSummary(t.Assistant)
		}

		it := &Item{
			TargetID: id,
			Ordinal:  ordinal,
			Title:    d.Title,
			Thumbs:   d.Thumbs,
			Summary:  summary,
		}
		it.search = searchText(d.Title, summary)
		s.items = append(s.items, it)
		s.lastTargetID = id
		last = &turns[i]
	}

	s.applyFilter()
	if !s.opts.DisableAssistantPreview {
		s.watchStreaming(last)
	}
	return true
}

// SetFilter applies a live case-insensitive substring filter over the
// cached search text. An empty filter shows everything.
func (s *Session) SetFilter(q string) {
	s.filter = strings.ToLower(strings.TrimSpace(q))
	s.applyFilter()
}

func (s *Session) applyFilter() {
	for _, it := range s.items {
		it.Visible = s.filter == "" || strings.Contains(it.search, s.filter)
	}
}

// Activate resolves an item's stable id back to its turn node and requests
// a scroll. A stale id that no longer resolves is a no-op.
func (s *Session) Activate(id string) {
	if id == "" || s.opts.ScrollTo == nil {
		return
	}
	if n := s.resolve(id); n != nil {
		s.opts.ScrollTo(n)
	}
}

// Close tears down the streaming watch and drops rendered state.
func (s *Session) Close() {
	s.unwatchStreaming()
	s.items = nil
	s.lastTargetID = ""
	s.lastBuiltUserCount = -1
}

// resolve finds the node carrying id, by element identifier first, then by
// the persisted attribute.
func (s *Session) resolve(id string) *dom.Node {
	if n := s.doc.Query(func(n *dom.Node) bool { return n.ID() == id }); n != nil {
		return n
	}
	return s.doc.Query(dom.WithAttr(attrTurnID, id))
}

func (s *Session) itemByTarget(id string) *Item {
	for _, it := range s.items {
		if it.TargetID == id {
			return it
		}
	}
	return nil
}

func searchText(title, summary string) string {
	if summary == "" {
		return strings.ToLower(title)
	}
	return strings.ToLower(title + " " + summary)
}

// assistantSummary summarizes the first meaningful block of the reply so a
// huge answer is not summarized wholesale.
func assistantSummary(assistant *dom.Node) string {
	if assistant == nil {
		return ""
	}
	md := assistant.Find(markdownBlock)
	if md == nil {
		md = assistant
	}
	first := md.Find(dom.WithTag("p", "li", "h1", "h2", "h3", "pre", "code"))
	if first == nil {
		first = md
	}
	return Summarize(first.Text(), FileNameLen)
}

func markdownBlock(n *dom.Node) bool {
	return n.Type == dom.ElementNode &&
		strings.Contains(n.Attr("class"), "markdown")
}
