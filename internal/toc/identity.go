package toc

import "strconv"

// AssignID returns the turn's stable identifier, computing and persisting
// one on first sight. An identifier already present on the root node wins
// unconditionally: stability beats determinism-by-content, so a turn whose
// title later changes keeps its original id. The id is also set as the
// node's element identifier when it has none, letting scroll-to-turn
// resolve without a rescan.
func AssignID(t Turn, ordinal int, title string) string {
	if t.Root == nil {
		return ""
	}
	if existing := t.Root.Attr(attrTurnID); existing != "" {
		return existing
	}
	id := hashID(strconv.Itoa(ordinal) + ":" + title)
	t.Root.SetAttr(attrTurnID, id)
	if t.Root.ID() == "" {
		t.Root.SetID(id)
	}
	return id
}
