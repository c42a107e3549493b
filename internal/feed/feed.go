// Package feed mutates the conversation document from a transcript event
// stream, playing the role of the host page: it appends turns as messages
// arrive and streams reply text into the last assistant node.
package feed

import (
	"encoding/json"
	"fmt"

	"github.com/metcalfc/chattoc/internal/dom"
)

// Event is one transcript line.
type Event struct {
	// Type is "message" for a new message or "delta" for streamed reply
	// text.
	Type string `json:"type"`
	// Role tags a message as "user" or "assistant".
	Role string `json:"role,omitempty"`
	// HTML is the message body markup.
	HTML string `json:"html,omitempty"`
	// Text is the appended reply text for a delta.
	Text string `json:"text,omitempty"`
}

// Feed applies transcript events to a document.
type Feed struct {
	doc *dom.Document

	// lastBody is the markdown body of the most recent assistant message;
	// deltas stream into it.
	lastBody *dom.Node
}

// New creates a feed over doc.
func New(doc *dom.Document) *Feed {
	return &Feed{doc: doc}
}

// Apply parses one JSONL transcript line and mutates the document
// accordingly. Unknown event types are ignored.
func (f *Feed) Apply(line []byte) error {
	if len(line) == 0 {
		return nil
	}
	var ev Event
	if err := json.Unmarshal(line, &ev); err != nil {
		return fmt.Errorf("bad transcript line: %w", err)
	}
	switch ev.Type {
	case "message":
		return f.appendMessage(ev)
	case "delta":
		f.appendDelta(ev.Text)
		return nil
	default:
		return nil
	}
}

func (f *Feed) appendMessage(ev Event) error {
	body, err := dom.ParseFragment(ev.HTML)
	if err != nil {
		return fmt.Errorf("bad message markup: %w", err)
	}

	msg := dom.NewElement("div", "data-message-author-role", ev.Role)

	switch ev.Role {
	case "assistant":
		md := dom.NewElement("div", "class", "markdown")
		md.Append(body...)
		if md.Find(dom.WithTag("p")) == nil {
			// Keep a block for deltas to stream into.
			md.Append(dom.NewElement("p"))
		}
		msg.Append(md)
		f.lastBody = md

		// The reply joins the newest turn container when one is open.
		if turn := f.lastTurn(); turn != nil && turn.Find(isAssistant) == nil {
			f.doc.AppendChild(turn, msg)
			return nil
		}
		f.doc.AppendChild(f.doc.Root(), msg)
		return nil

	default: // user and anything unrecognized starts a fresh turn
		msg.Append(body...)
		turn := dom.NewElement("article", "data-testid", "conversation-turn")
		turn.Append(msg)
		f.lastBody = nil
		f.doc.AppendChild(f.doc.Root(), turn)
		return nil
	}
}

// appendDelta streams text into the last assistant body. Deltas arriving
// before any reply exists are dropped.
func (f *Feed) appendDelta(text string) {
	if f.lastBody == nil || text == "" {
		return
	}
	target := f.lastBody
	if p := lastBlock(f.lastBody); p != nil {
		target = p
	}
	f.doc.AppendText(target, text)
}

func (f *Feed) lastTurn() *dom.Node {
	turns := f.doc.QueryAll(func(n *dom.Node) bool {
		return n.Attr("data-testid") == "conversation-turn"
	})
	if len(turns) == 0 {
		return nil
	}
	return turns[len(turns)-1]
}

func isAssistant(n *dom.Node) bool {
	return n.Attr("data-message-author-role") == "assistant"
}

func lastBlock(md *dom.Node) *dom.Node {
	blocks := md.FindAll(dom.WithTag("p", "pre", "li"))
	if len(blocks) == 0 {
		return nil
	}
	return blocks[len(blocks)-1]
}
