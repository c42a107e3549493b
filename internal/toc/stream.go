package toc

import (
	"strings"
	"sync"

	"github.com/metcalfc/chattoc/internal/dom"
	"github.com/metcalfc/chattoc/internal/timing"
)

// streamWatch is the single active subscription on the last turn's
// assistant subtree. At most one exists at a time.
type streamWatch struct {
	target *dom.Node // the assistant node identity the watch was keyed on
	sub    *dom.Subscription

	mu    sync.Mutex
	timer timing.Timer
}

// watchStreaming installs the streaming watch on the last rendered turn's
// assistant subtree. Re-installing against the same assistant node is a
// no-op; a different node tears the previous watch down first.
func (s *Session) watchStreaming(last *Turn) {
	if last == nil || last.Assistant == nil {
		return
	}
	assistant := last.Assistant
	if s.stream != nil && s.stream.target == assistant {
		return
	}
	s.unwatchStreaming()

	// Observe the markdown body when present; streaming token updates
	// land there.
	observed := assistant
	if md := assistant.Find(markdownBlock); md != nil {
		observed = md
	}

	w := &streamWatch{target: assistant}
	w.sub = s.doc.Observe(observed, func(dom.Mutation) {
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.timer = s.opts.Clock.AfterFunc(s.opts.StreamIdle, s.streamIdle)
		w.mu.Unlock()
	})
	s.stream = w

	// Reflect whatever reply content already exists.
	s.ApplyStreamPatch()
}

// unwatchStreaming cancels the subscription and any pending idle timer.
// Leaking either would misdirect patches at a stale turn.
func (s *Session) unwatchStreaming() {
	w := s.stream
	if w == nil {
		return
	}
	w.sub.Cancel()
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
	s.stream = nil
}

func (s *Session) streamIdle() {
	if s.opts.OnStreamIdle != nil {
		s.opts.OnStreamIdle()
		return
	}
	s.ApplyStreamPatch()
}

// ApplyStreamPatch recomputes only the last rendered item's assistant
// summary and search cache, in place. Other items are untouched and no
// rebuild is triggered.
func (s *Session) ApplyStreamPatch() {
	if s.opts.DisableAssistantPreview || s.lastTargetID == "" {
		return
	}
	it := s.itemByTarget(s.lastTargetID)
	if it == nil {
		return
	}
	root := s.resolve(s.lastTargetID)
	if root == nil {
		return
	}
	assistant := root.Find(isAssistantNode)
	if assistant == nil {
		return
	}

	it.Summary = assistantSummary(assistant)
	it.search = searchText(it.Title, it.Summary)
	it.Visible = s.filter == "" || strings.Contains(it.search, s.filter)
}
