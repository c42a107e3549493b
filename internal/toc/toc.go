// Package toc discovers conversation turns in a live chat document,
// assigns them stable identifiers, summarizes and classifies their
// content, and keeps a rendered table-of-contents item list synchronized
// with the document as it is mutated.
package toc

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

const (
	// attrTurnID is the attribute that persists a turn's stable id on its
	// root node.
	attrTurnID = "data-toc-id"

	attrTestID = "data-testid"
	turnMarker = "conversation-turn"

	attrRole      = "data-message-author-role"
	roleUser      = "user"
	roleAssistant = "assistant"
)

// hashID derives a short base-36 identifier from the low 32 bits of the
// string's xxhash. Deterministic; rare collisions are acceptable because
// the id only needs to relocate a node already tagged with it.
func hashID(s string) string {
	h := uint32(xxhash.Sum64String(s))
	return "toc-" + strconv.FormatUint(uint64(h), 36)
}
