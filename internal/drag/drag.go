// Package drag turns a handle region into a draggable proxy for a floating
// element, with a movement threshold that disambiguates click from drag
// and viewport clamping on placement.
package drag

import (
	"sync"
	"time"

	"github.com/metcalfc/chattoc/internal/timing"
)

const (
	// Threshold is the cumulative displacement (|dx|+|dy|) below which a
	// press-release sequence counts as a plain click.
	Threshold = 4

	// Margin keeps placed elements this far inside the viewport on all
	// sides.
	Margin = 8

	// cooldown is how long a target stays "recently moved" after a drag
	// release, letting click handlers suppress the release click.
	cooldown = 200 * time.Millisecond
)

// Rect is an axis-aligned region. Zero-size rects contain nothing.
type Rect struct {
	X, Y, W, H int
}

// Contains reports whether the point falls inside the rect. Right and
// bottom edges are exclusive.
func (r Rect) Contains(x, y int) bool {
	return r.W > 0 && r.H > 0 &&
		x >= r.X && x < r.X+r.W &&
		y >= r.Y && y < r.Y+r.H
}

// Clamp returns the nearest position to (left, top) that keeps a w×h
// element fully inside a vw×vh viewport with Margin on all sides.
func Clamp(left, top, w, h, vw, vh int) (int, int) {
	maxLeft := vw - w - Margin
	if maxLeft < Margin {
		maxLeft = Margin
	}
	maxTop := vh - h - Margin
	if maxTop < Margin {
		maxTop = Margin
	}
	return bound(left, Margin, maxLeft), bound(top, Margin, maxTop)
}

func bound(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Config wires a Controller to its target.
type Config struct {
	Clock timing.Clock

	// Size returns the target's current dimensions.
	Size func() (w, h int)

	// Viewport returns the current viewport dimensions.
	Viewport func() (w, h int)

	// Place repositions the target. Coordinates are pre-clamped.
	Place func(left, top int)

	// OnDragEnd fires after a release that followed an actual drag, never
	// after a plain click.
	OnDragEnd func()
}

// Controller interprets pointer events for one (target, handle) pair.
type Controller struct {
	cfg Config

	down     bool
	dragging bool
	startX   int
	startY   int
	origLeft int
	origTop  int

	mu       sync.Mutex
	moved    bool
	moveTick timing.Timer
}

// New creates a controller.
func New(cfg Config) *Controller {
	if cfg.Clock == nil {
		cfg.Clock = timing.Real()
	}
	return &Controller{cfg: cfg}
}

// PointerDown begins a potential drag. Presses with a non-primary button,
// or landing on an interactive control nested in the handle, are ignored
// entirely so real controls keep working. targetLeft/targetTop is the
// target's position at press time.
func (c *Controller) PointerDown(x, y int, primary, onControl bool, targetLeft, targetTop int) {
	if !primary || onControl {
		return
	}
	c.down = true
	c.dragging = false
	c.startX, c.startY = x, y
	c.origLeft, c.origTop = targetLeft, targetTop
}

// PointerMove updates an in-progress press. Movement below Threshold does
// not start a drag; once past it, the target follows the pointer, clamped
// to the viewport.
func (c *Controller) PointerMove(x, y int) {
	if !c.down {
		return
	}
	dx := x - c.startX
	dy := y - c.startY

	if !c.dragging {
		if abs(dx)+abs(dy) < Threshold {
			return
		}
		c.dragging = true
	}

	w, h := c.cfg.Size()
	vw, vh := c.cfg.Viewport()
	left, top := Clamp(c.origLeft+dx, c.origTop+dy, w, h, vw, vh)
	if c.cfg.Place != nil {
		c.cfg.Place(left, top)
	}
}

// PointerUp ends the press. After an actual drag the target is marked
// recently moved for a short cooldown and OnDragEnd fires; a sub-threshold
// release is a plain click with no side effects.
func (c *Controller) PointerUp() {
	if !c.down {
		return
	}
	c.down = false

	if !c.dragging {
		return
	}
	c.dragging = false

	c.mu.Lock()
	c.moved = true
	if c.moveTick != nil {
		c.moveTick.Stop()
	}
	c.moveTick = c.cfg.Clock.AfterFunc(cooldown, func() {
		c.mu.Lock()
		c.moved = false
		c.mu.Unlock()
	})
	c.mu.Unlock()

	if c.cfg.OnDragEnd != nil {
		c.cfg.OnDragEnd()
	}
}

// Dragging reports whether a drag is in progress.
func (c *Controller) Dragging() bool { return c.dragging }

// MovedRecently reports whether a drag ended within the click-suppression
// cooldown.
func (c *Controller) MovedRecently() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.moved
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
