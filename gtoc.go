//go:build gui

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/metcalfc/chattoc/internal/dom"
	"github.com/metcalfc/chattoc/internal/feed"
	"github.com/metcalfc/chattoc/internal/state"
	"github.com/metcalfc/chattoc/internal/toc"
)

// Version info (injected via ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	maxItems := flag.Int("n", 250, "Maximum rendered TOC items (default: 250)")
	seedPath := flag.String("seed", "", "HTML transcript export to preload")
	showVersion := flag.Bool("v", false, "Show version information")
	showVersionLong := flag.Bool("version", false, "Show version information")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Gtoc - GUI Conversation Table of Contents\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  gtoc [options] transcript.jsonl\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  gtoc chat.jsonl                 Follow a live transcript\n")
		fmt.Fprintf(os.Stderr, "  gtoc -seed chat.html chat.jsonl Preload an HTML export\n")
	}
	flag.Parse()

	if *showVersion || *showVersionLong {
		fmt.Printf("gtoc %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: No transcript provided.")
		fmt.Fprintln(os.Stderr, "Try: gtoc -h")
		os.Exit(1)
	}
	transcript := flag.Arg(0)

	var doc *dom.Document
	if *seedPath != "" {
		f, err := os.Open(*seedPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to read seed '%s': %v\n", *seedPath, err)
			os.Exit(1)
		}
		parsed, err := dom.Parse(f)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to parse seed '%s': %v\n", *seedPath, err)
			os.Exit(1)
		}
		doc = parsed
	} else {
		doc = dom.NewDocument()
	}

	fd := feed.New(doc)
	store := state.NewStore()

	a := app.New()
	w := a.NewWindow("gtoc - Conversation TOC")

	// Transcript pane.
	transcriptLabel := widget.NewLabel("")
	transcriptLabel.Wrapping = fyne.TextWrapWord
	transcriptScroll := container.NewScroll(transcriptLabel)

	renderTranscript := func() {
		var sb strings.Builder
		for i, t := range toc.Locate(doc) {
			user := ""
			if t.User != nil {
				user = t.User.Text()
			}
			fmt.Fprintf(&sb, "#%d You: %s\n", i+1, user)
			if t.Assistant != nil {
				fmt.Fprintf(&sb, "%s\n", t.Assistant.Text())
			}
			sb.WriteString("\n")
		}
		transcriptLabel.SetText(sb.String())
	}

	// TOC panel.
	var visible []*toc.Item
	var sess *toc.Session

	tocList := widget.NewList(
		func() int { return len(visible) },
		func() fyne.CanvasObject {
			return container.NewVBox(
				widget.NewLabel("Title"),
				widget.NewLabel("Preview"),
			)
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id >= len(visible) {
				return
			}
			it := visible[id]
			vbox := obj.(*fyne.Container)
			titleLabel := vbox.Objects[0].(*widget.Label)
			previewLabel := vbox.Objects[1].(*widget.Label)

			titleLabel.SetText(fmt.Sprintf("%d. %s", it.Ordinal+1, it.Title))
			titleLabel.TextStyle.Bold = true
			previewLabel.SetText(it.Summary)
		},
	)

	refreshList := func() {
		visible = visible[:0]
		for _, it := range sess.Items() {
			if it.Visible {
				visible = append(visible, it)
			}
		}
		tocList.Refresh()
	}

	opts := toc.DefaultOptions()
	if *maxItems > 0 {
		opts.MaxItems = *maxItems
	}
	opts.ScrollTo = func(n *dom.Node) {
		// The label has no per-turn geometry; jump to the top and let the
		// numbered heading carry the reader. Good enough for a desktop
		// window where the whole transcript is searchable.
		transcriptScroll.ScrollToTop()
	}
	opts.OnStreamIdle = func() {
		fyne.Do(func() {
			sess.ApplyStreamPatch()
			refreshList()
		})
	}
	sess = toc.NewSession(doc, opts)

	var sched *toc.Scheduler
	sched = toc.NewScheduler(toc.SchedulerConfig{
		Delay: 600 * time.Millisecond,
		Count: sess.UserTurnCount,
		Sync: func() {
			sess.Rebuild(false)
			refreshList()
			renderTranscript()
		},
		Handoff: func() {
			fyne.Do(sched.RunDueCheck)
		},
	})
	doc.Observe(doc.Root(), sched.Notify)

	tocList.OnSelected = func(id widget.ListItemID) {
		if id < len(visible) {
			sess.Activate(visible[id].TargetID)
		}
		tocList.UnselectAll()
	}

	search := widget.NewEntry()
	search.SetPlaceHolder("Search in TOC…")
	search.OnChanged = func(q string) {
		sess.SetFilter(q)
		refreshList()
	}

	refreshBtn := widget.NewButton("⟳", func() {
		sess.Rebuild(true)
		refreshList()
		renderTranscript()
	})

	tocPanel := container.NewBorder(
		container.NewBorder(nil, nil, nil, refreshBtn, search),
		widget.NewLabel("Click to jump"),
		nil, nil,
		tocList,
	)

	split := container.NewHSplit(tocPanel, transcriptScroll)
	split.Offset = 0.33

	// Restore the persisted minimized preference; position is managed by
	// the window system in the GUI.
	if st, err := store.Load(); err == nil && st.Minimized {
		split.Offset = 0
	}

	minBtn := widget.NewButton("Toggle TOC", func() {
		if split.Offset > 0.05 {
			split.SetOffset(0)
			store.Save(state.MinPatch(true))
		} else {
			split.SetOffset(0.33)
			store.Save(state.MinPatch(false))
		}
	})

	w.SetContent(container.NewBorder(nil, minBtn, nil, nil, split))
	w.Resize(fyne.NewSize(900, 640))

	lines, stopWatch, err := feed.Watch(transcript)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to watch '%s': %v\n", transcript, err)
		os.Exit(1)
	}

	go func() {
		for line := range lines {
			l := line
			fyne.Do(func() {
				fd.Apply(l)
				renderTranscript()
			})
		}
	}()

	w.SetOnClosed(func() {
		stopWatch()
		sess.Close()
		sched.Stop()
	})

	// Initial pass.
	sess.Rebuild(false)
	refreshList()
	renderTranscript()
	sched.Kick()

	w.ShowAndRun()
}
