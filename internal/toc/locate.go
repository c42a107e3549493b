package toc

import "github.com/metcalfc/chattoc/internal/dom"

// Turn is one user message and, when present, the assistant reply paired
// with it. Node lifetimes are owned by the document; a Turn holds no
// owning references.
type Turn struct {
	Root      *dom.Node
	User      *dom.Node
	Assistant *dom.Node
}

func isUserNode(n *dom.Node) bool      { return n.Attr(attrRole) == roleUser }
func isAssistantNode(n *dom.Node) bool { return n.Attr(attrRole) == roleAssistant }
func isTurnContainer(n *dom.Node) bool { return n.Attr(attrTestID) == turnMarker }

func isRoleNode(n *dom.Node) bool {
	role := n.Attr(attrRole)
	return role == roleUser || role == roleAssistant
}

// Locate scans the document for turns and returns them in transcript
// order, oldest first. Two document shapes are supported: explicit turn
// containers, and a legacy flat sequence of role-tagged nodes where a user
// node starts a turn and an immediately following assistant node completes
// it. A missing or empty document yields an empty result, never an error.
func Locate(doc *dom.Document) []Turn {
	if doc == nil {
		return nil
	}

	containers := doc.QueryAll(isTurnContainer)
	if len(containers) > 0 {
		turns := make([]Turn, 0, len(containers))
		for _, root := range containers {
			turns = append(turns, Turn{
				Root:      root,
				User:      root.Find(isUserNode),
				Assistant: root.Find(isAssistantNode),
			})
		}
		return turns
	}

	// Legacy shape: pair each user node with the next assistant node.
	roles := doc.QueryAll(isRoleNode)
	var turns []Turn
	for i := 0; i < len(roles); i++ {
		n := roles[i]
		if !isUserNode(n) {
			continue
		}
		var assistant *dom.Node
		if i+1 < len(roles) && isAssistantNode(roles[i+1]) {
			assistant = roles[i+1]
			i++
		}
		root := n.Closest(dom.WithTag("article"))
		if root == nil {
			root = n.Parent()
		}
		if root == nil {
			root = n
		}
		turns = append(turns, Turn{Root: root, User: n, Assistant: assistant})
	}
	return turns
}

// UserTurnCount counts user-authored messages in the document. It is the
// cheap change proxy used to decide whether a rebuild is warranted.
func UserTurnCount(doc *dom.Document) int {
	if doc == nil {
		return 0
	}
	return doc.Count(isUserNode)
}
