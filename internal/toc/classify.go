package toc

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/metcalfc/chattoc/internal/dom"
)

// Display describes how a turn's user side appears in the panel list.
// Derived per scan, never persisted.
type Display struct {
	Title      string
	Thumbs     []string // capped at maxThumbs
	FileCount  int
	ImageCount int
	FileNames  []string
}

const (
	maxThumbs   = 3
	genericFile = "File"

	nonTextLabel = "(non-text message)"

	// iconSize is the dimension at or below which an image is treated as
	// an icon rather than an attached photo.
	iconSize = 60
)

var (
	fileSizeRe = regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s*(KB|MB|GB)\b`)
	downloadRe = regexp.MustCompile(`(?i)download|下载`)
	fileHintRe = regexp.MustCompile(`(?i)file|attachment|附件|文件`)
	fileLinkRe = regexp.MustCompile(`(?i)/files/|file-|blob:|oaiusercontent|backend-api/files`)

	// fileExtRe matches filename-shaped tokens with recognized extensions.
	fileExtRe = regexp.MustCompile(`(?i)\b[\w][\w\- .]{0,80}\.(pdf|docx?|pptx?|xlsx?|csv|txt|zip|rar|7z|png|jpe?g|gif|webp|mp4|mov|webm)\b`)
)

func matchFileNames(s string) []string {
	if s == "" {
		return nil
	}
	return fileExtRe.FindAllString(s, -1)
}

// fileCandidate matches interactive or attribute-bearing elements worth
// inspecting for attachments.
func fileCandidate(n *dom.Node) bool {
	if n.Type != dom.ElementNode {
		return false
	}
	switch n.Tag {
	case "a", "button":
		return true
	}
	return n.Attr("role") == "button" ||
		n.HasAttr("download") ||
		n.HasAttr("aria-label") ||
		n.HasAttr("title") ||
		n.HasAttr(attrTestID)
}

// FileNames extracts attachment names within scope, excluding the
// assistant subtree. Explicit filenames with recognized extensions are
// strong signals and always kept; heuristic-only matches contribute a
// single generic "File" placeholder, which is dropped whenever any strong
// name exists anywhere in scope.
func FileNames(scope, assistant *dom.Node) []string {
	if scope == nil {
		return nil
	}
	inAssistant := func(n *dom.Node) bool {
		return assistant != nil && assistant.Contains(n)
	}

	var names []string
	for _, el := range scope.FindAll(fileCandidate) {
		if inAssistant(el) {
			continue
		}
		download := el.Attr("download")
		title := el.Attr("title")
		aria := el.Attr("aria-label")
		text := strings.TrimSpace(el.Text())
		href := el.Attr("href")
		testid := el.Attr(attrTestID)

		for _, v := range []string{download, title, aria, text} {
			names = append(names, matchFileNames(v)...)
		}

		looksLikeFileLink := href != "" && fileLinkRe.MatchString(href)
		looksLikeHint := fileHintRe.MatchString(testid) ||
			downloadRe.MatchString(aria) ||
			downloadRe.MatchString(title) ||
			fileSizeRe.MatchString(text)
		if (looksLikeFileLink || looksLikeHint) && len(names) == 0 {
			names = append(names, genericFile)
		}
	}

	// Fallback: filename-shaped tokens in visible text outside the reply.
	names = append(names, matchFileNames(scope.VisibleText(assistant))...)

	cleaned := uniq(names)
	for i, n := range cleaned {
		cleaned[i] = strings.TrimSpace(n)
	}
	hasRealName := false
	for _, n := range cleaned {
		if n != genericFile {
			hasRealName = true
			break
		}
	}
	if !hasRealName {
		return cleaned
	}
	kept := cleaned[:0]
	for _, n := range cleaned {
		if n != genericFile {
			kept = append(kept, n)
		}
	}
	return kept
}

// insideFileCard reports whether the image sits in an element recognizable
// as a file/attachment card, where it is an icon rather than a photo.
func insideFileCard(img *dom.Node) bool {
	return img.Closest(func(n *dom.Node) bool {
		tid := strings.ToLower(n.Attr(attrTestID))
		return strings.Contains(tid, "file") || strings.Contains(tid, "attachment")
	}) != nil
}

// ImageSources collects attached image URLs within scope, excluding the
// assistant subtree, inline SVG placeholders, file-card icons, and images
// declared at icon size or below. Deduplicated by source URL.
func ImageSources(scope, assistant *dom.Node) []string {
	if scope == nil {
		return nil
	}
	inAssistant := func(n *dom.Node) bool {
		return assistant != nil && assistant.Contains(n)
	}

	var srcs []string
	for _, img := range scope.FindAll(dom.WithTag("img")) {
		src := img.Attr("src")
		if src == "" || strings.HasPrefix(src, "data:image/svg+xml") {
			continue
		}
		if inAssistant(img) || insideFileCard(img) {
			continue
		}
		if w, h := img.Bounds(); w > 0 && h > 0 && w <= iconSize && h <= iconSize {
			continue
		}
		srcs = append(srcs, src)
	}
	return uniq(srcs)
}

// Classify derives the display record for a turn. Title precedence: user
// text with count badges, then files, then images, then a fixed non-text
// label.
func Classify(t Turn) Display {
	scope := t.Root
	if scope == nil {
		scope = t.User
	}

	userText := ""
	if t.User != nil {
		userText = strings.TrimSpace(t.User.Text())
	}

	files := FileNames(scope, t.Assistant)
	imgs := ImageSources(scope, t.Assistant)

	d := Display{
		FileCount:  len(files),
		ImageCount: len(imgs),
		FileNames:  files,
	}

	switch {
	case userText != "":
		title := Summarize(userText, SummaryLen)
		if d.FileCount > 0 {
			title += fmt.Sprintf("  📎%d", d.FileCount)
		}
		if d.ImageCount > 0 {
			title += fmt.Sprintf("  📷%d", d.ImageCount)
		}
		d.Title = title
		d.Thumbs = capThumbs(imgs)

	case d.FileCount > 0:
		label := fmt.Sprintf("%d files", d.FileCount)
		if d.FileCount == 1 {
			label = Summarize(files[0], FileNameLen)
		}
		d.Title = "📎 " + label

	case d.ImageCount > 0:
		plural := "image"
		if d.ImageCount > 1 {
			plural = "images"
		}
		d.Title = fmt.Sprintf("📷 %d %s", d.ImageCount, plural)
		d.Thumbs = capThumbs(imgs)

	default:
		d.Title = nonTextLabel
	}
	return d
}

func capThumbs(srcs []string) []string {
	if len(srcs) > maxThumbs {
		return srcs[:maxThumbs]
	}
	return srcs
}

func uniq(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
