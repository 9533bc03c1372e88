/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package canvas turns pointer and keyboard events into template store
// actions. It is toolkit agnostic: adapters translate their native events
// into the small vocabulary in events.go.
package canvas

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"sheetdesigner/internal/domain"
	applog "sheetdesigner/internal/log"
	"sheetdesigner/internal/store"
	"sheetdesigner/internal/vector"
)

// Options tunes the controller. Zero values pick the editor defaults.
type Options struct {
	MinDrawSize    float64
	MinScale       float64
	MaxScale       float64
	MoveThrottle   time.Duration
	ZoomStep       float64
	NudgeStep      float64
	NudgeStepLarge float64
	Snap           vector.SnapOptions
	Logger         *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.MinDrawSize <= 0 {
		o.MinDrawSize = 10
	}
	if o.MinScale <= 0 {
		o.MinScale = 0.1
	}
	if o.MaxScale <= 0 {
		o.MaxScale = 5
	}
	if o.MoveThrottle == 0 {
		o.MoveThrottle = 16 * time.Millisecond
	}
	if o.ZoomStep <= 1 {
		o.ZoomStep = 1.1
	}
	if o.NudgeStep <= 0 {
		o.NudgeStep = 1
	}
	if o.NudgeStepLarge <= 0 {
		o.NudgeStepLarge = 10
	}
	if !o.Snap.SnapToEdges && !o.Snap.SnapToCenters {
		o.Snap.SnapToEdges = true
		o.Snap.SnapToCenters = true
	}
	if o.Logger == nil {
		o.Logger = applog.WithComponent("canvas")
	}
	return o
}

// ViewState is the ephemeral editing state exposed to renderers.
type ViewState struct {
	Scale             float64
	Position          vector.Pt
	ToolMode          ToolMode
	SelectedRegionIDs []string
	IsDrawing         bool
	DrawingStart      *vector.Pt
	DrawPreview       *vector.Rect
	GridSize          float64
	SnapToGrid        bool
	SelectionBox      *vector.Rect
	DragOffset        vector.Pt
	Guides            []vector.GuideLine
	Cursor            vector.Pt
}

type gesture int

const (
	gestureNone gesture = iota
	gestureDraw
	gestureBox
	gestureDrag
	gesturePan
)

// Controller is the tool-mode state machine. It is not safe for concurrent
// use; drive it from a single event loop.
type Controller struct {
	st    *store.Store
	opts  Options
	log   *slog.Logger
	unsub func()

	view     View
	tool     ToolMode
	selected []string

	gesture  gesture
	start    vector.Pt // world point of pointer-down
	current  vector.Pt // latest world point applied
	additive bool

	// drag-move
	dragIDs    []string
	dragBounds vector.Rect
	dragOffset vector.Pt
	guides     []vector.GuideLine
	// a click on an already selected region narrows the selection on release
	narrowTo string

	// pan
	panScreen vector.Pt
	panOrigin vector.Pt

	lastMove    time.Time
	pendingMove *PointerMove
	cursor      vector.Pt
}

// New attaches a controller to s.
func New(s *store.Store, opts Options) *Controller {
	opts = opts.withDefaults()
	c := &Controller{
		st:   s,
		opts: opts,
		log:  opts.Logger,
		view: NewView(opts.MinScale, opts.MaxScale),
		tool: ToolSelect,
	}
	c.unsub = s.Subscribe(c.onStoreChange)
	return c
}

// Close detaches the controller from its store.
func (c *Controller) Close() {
	if c.unsub != nil {
		c.unsub()
		c.unsub = nil
	}
}

func (c *Controller) onStoreChange(ch store.Change) {
	if ch.Kind == store.ChangeReplace {
		c.resetSession()
		return
	}
	c.selected = c.liveIDs(c.selected)
}

// resetSession clears all ephemeral state after a template load or reset.
func (c *Controller) resetSession() {
	c.view = NewView(c.opts.MinScale, c.opts.MaxScale)
	c.tool = ToolSelect
	c.selected = nil
	c.cancelGesture()
}

func (c *Controller) cancelGesture() {
	c.gesture = gestureNone
	c.dragIDs = nil
	c.dragOffset = vector.Pt{}
	c.guides = nil
	c.narrowTo = ""
	c.pendingMove = nil
}

// liveIDs filters ids down to regions that still exist.
func (c *Controller) liveIDs(ids []string) []string {
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := c.st.Region(id); ok {
			out = append(out, id)
		}
	}
	return out
}

// View returns the current view transform.
func (c *Controller) View() View { return c.view }

func (c *Controller) ScreenToWorld(p vector.Pt) vector.Pt { return c.view.ScreenToWorld(p) }
func (c *Controller) WorldToScreen(p vector.Pt) vector.Pt { return c.view.WorldToScreen(p) }

// Tool returns the active tool mode.
func (c *Controller) Tool() ToolMode { return c.tool }

// SetTool switches tools from any state; an unfinished gesture is dropped.
func (c *Controller) SetTool(t ToolMode) {
	if t == c.tool {
		return
	}
	c.cancelGesture()
	c.log.Debug("tool changed", slog.String("from", string(c.tool)), slog.String("to", string(t)))
	c.tool = t
}

// Selection returns the selected region ids in selection order.
func (c *Controller) Selection() []string {
	c.selected = c.liveIDs(c.selected)
	return append([]string(nil), c.selected...)
}

// IsSelected reports whether id is selected.
func (c *Controller) IsSelected(id string) bool {
	for _, s := range c.selected {
		if s == id {
			return true
		}
	}
	return false
}

// Select replaces the selection with the existing ids among ids.
func (c *Controller) Select(ids ...string) {
	c.selected = c.liveIDs(dedupe(ids))
}

// AddToSelection appends ids that are not selected yet.
func (c *Controller) AddToSelection(ids ...string) {
	c.Select(append(append([]string(nil), c.selected...), ids...)...)
}

// ToggleSelection flips the selection state of id.
func (c *Controller) ToggleSelection(id string) {
	if c.IsSelected(id) {
		out := make([]string, 0, len(c.selected))
		for _, s := range c.selected {
			if s != id {
				out = append(out, s)
			}
		}
		c.selected = out
		return
	}
	c.AddToSelection(id)
}

func (c *Controller) ClearSelection() { c.selected = nil }

// SelectAll selects every region in z-order.
func (c *Controller) SelectAll() {
	regs := c.st.Regions()
	ids := make([]string, len(regs))
	for i, r := range regs {
		ids[i] = r.ID
	}
	c.selected = ids
}

// ZoomAt zooms by factor around screen point p.
func (c *Controller) ZoomAt(p vector.Pt, factor float64) { c.view.ZoomBy(p, factor) }

// SetScale zooms around the screen point p to an absolute scale.
func (c *Controller) SetScale(p vector.Pt, scale float64) { c.view.ZoomAt(p, scale) }

// FitToViewport centers the canvas in a w x h viewport.
func (c *Controller) FitToViewport(w, h float64) {
	c.view.Fit(c.st.Template().Canvas.Bounds(), w, h, 20)
}

// State snapshots the view state for rendering.
func (c *Controller) State() ViewState {
	canvas := c.st.Template().Canvas
	vs := ViewState{
		Scale:             c.view.Scale,
		Position:          c.view.Position,
		ToolMode:          c.tool,
		SelectedRegionIDs: c.Selection(),
		GridSize:          canvas.GridSize,
		SnapToGrid:        canvas.SnapToGrid,
		Cursor:            c.cursor,
	}
	switch c.gesture {
	case gestureDraw:
		start := c.start
		preview := vector.FromCorners(c.start, c.current)
		vs.IsDrawing = true
		vs.DrawingStart = &start
		vs.DrawPreview = &preview
	case gestureBox:
		box := vector.FromCorners(c.start, c.current)
		vs.SelectionBox = &box
	case gestureDrag:
		vs.DragOffset = c.dragOffset
		vs.Guides = append([]vector.GuideLine(nil), c.guides...)
	}
	return vs
}

// Handle interprets ev under the current tool. It reports whether the view
// state changed and the canvas should be repainted.
func (c *Controller) Handle(ev Event) bool {
	switch e := ev.(type) {
	case PointerDown:
		return c.pointerDown(e)
	case PointerMove:
		return c.pointerMove(e)
	case PointerUp:
		return c.pointerUp(e)
	case Wheel:
		return c.wheel(e)
	case KeyDown:
		return c.keyDown(e)
	}
	return false
}

// Flush applies a pointer move held back by the throttle.
func (c *Controller) Flush() bool {
	if c.pendingMove == nil {
		return false
	}
	e := *c.pendingMove
	c.pendingMove = nil
	c.applyMove(e)
	return true
}

func (c *Controller) pointerDown(e PointerDown) bool {
	w := c.view.ScreenToWorld(e.Pos)
	c.cursor = w
	c.pendingMove = nil
	c.lastMove = e.Time

	if e.Button == ButtonMiddle || c.tool == ToolPan {
		c.gesture = gesturePan
		c.panScreen = e.Pos
		c.panOrigin = c.view.Position
		return false
	}
	if e.Button != ButtonPrimary {
		return false
	}

	if c.tool.IsDrawing() {
		c.gesture = gestureDraw
		c.start, c.current = w, w
		return true
	}

	// select tool
	if hit, ok := c.hitTest(w); ok {
		switch {
		case e.Mods.Additive():
			c.ToggleSelection(hit.ID)
		case c.IsSelected(hit.ID):
			c.narrowTo = hit.ID
		default:
			c.selected = []string{hit.ID}
		}
		c.beginDrag(w)
		return true
	}
	c.gesture = gestureBox
	c.additive = e.Mods.Additive()
	c.start, c.current = w, w
	return true
}

func (c *Controller) beginDrag(w vector.Pt) {
	c.gesture = gestureDrag
	c.start, c.current = w, w
	c.dragIDs = nil
	c.dragOffset = vector.Pt{}
	c.guides = nil
	first := true
	for _, id := range c.selected {
		r, ok := c.st.Region(id)
		if !ok || r.Locked {
			continue
		}
		c.dragIDs = append(c.dragIDs, id)
		if first {
			c.dragBounds = r.Bounds()
			first = false
		} else {
			c.dragBounds = c.dragBounds.Union(r.Bounds())
		}
	}
}

func (c *Controller) pointerMove(e PointerMove) bool {
	c.cursor = c.view.ScreenToWorld(e.Pos)
	if c.gesture == gestureNone {
		return false
	}
	if !e.Time.IsZero() && !c.lastMove.IsZero() && e.Time.Sub(c.lastMove) < c.opts.MoveThrottle {
		ev := e
		c.pendingMove = &ev
		return false
	}
	c.pendingMove = nil
	c.lastMove = e.Time
	c.applyMove(e)
	return true
}

func (c *Controller) applyMove(e PointerMove) {
	switch c.gesture {
	case gesturePan:
		c.view.Position = c.panOrigin.Add(e.Pos.Sub(c.panScreen))
	case gestureDraw, gestureBox:
		c.current = c.view.ScreenToWorld(e.Pos)
	case gestureDrag:
		c.current = c.view.ScreenToWorld(e.Pos)
		c.dragOffset, c.guides = c.snapDrag(c.current.Sub(c.start))
	}
}

// snapDrag adjusts a raw drag delta by grid or smart-guide snapping.
func (c *Controller) snapDrag(d vector.Pt) (vector.Pt, []vector.GuideLine) {
	if len(c.dragIDs) == 0 {
		return vector.Pt{}, nil
	}
	tpl := c.st.Template()
	moved := c.dragBounds.Translate(d)
	if tpl.Canvas.SnapToGrid && tpl.Canvas.GridSize > 0 {
		x := vector.SnapTo(moved.X, tpl.Canvas.GridSize)
		y := vector.SnapTo(moved.Y, tpl.Canvas.GridSize)
		return vector.Pt{X: x - c.dragBounds.X, Y: y - c.dragBounds.Y}, nil
	}
	dragging := make(map[string]bool, len(c.dragIDs))
	for _, id := range c.dragIDs {
		dragging[id] = true
	}
	targets := []vector.Target{{Rect: tpl.Canvas.Bounds(), Weight: 2}}
	for _, r := range tpl.Regions {
		if !dragging[r.ID] && r.Visible {
			targets = append(targets, vector.Target{Rect: r.Bounds(), Weight: 1})
		}
	}
	snap := c.opts.Snap
	if snap.Threshold <= 0 {
		snap.Threshold = 6
	}
	// threshold is in screen pixels
	snap.Threshold /= c.view.Scale
	snapped, guides := vector.ComputeSmartGuides(moved, targets, snap)
	return vector.Pt{X: snapped.X - c.dragBounds.X, Y: snapped.Y - c.dragBounds.Y}, guides
}

func (c *Controller) pointerUp(e PointerUp) bool {
	w := c.view.ScreenToWorld(e.Pos)
	c.cursor = w
	c.pendingMove = nil
	g := c.gesture
	c.gesture = gestureNone
	switch g {
	case gesturePan:
		c.view.Position = c.panOrigin.Add(e.Pos.Sub(c.panScreen))
	case gestureDraw:
		c.finishDraw(w)
	case gestureBox:
		c.finishBox(vector.FromCorners(c.start, w))
	case gestureDrag:
		c.finishDrag(w)
	default:
		return false
	}
	return true
}

func (c *Controller) finishDraw(end vector.Pt) {
	kind, ok := c.tool.RegionType()
	if !ok {
		return
	}
	rect := vector.FromCorners(c.start, end)
	if rect.W <= c.opts.MinDrawSize || rect.H <= c.opts.MinDrawSize {
		c.log.Debug("draw discarded", slog.Float64("w", rect.W), slog.Float64("h", rect.H))
		return
	}
	canvas := c.st.Template().Canvas
	if canvas.SnapToGrid && canvas.GridSize > 0 {
		rect = vector.SnapRect(rect, canvas.GridSize)
		rect.W = math.Max(rect.W, canvas.GridSize)
		rect.H = math.Max(rect.H, canvas.GridSize)
	}
	r, err := domain.NewRegion(kind, c.st.NewID(), rect)
	if err != nil {
		c.log.Error("new region", slog.Any("err", err))
		return
	}
	r.Name = fmt.Sprintf("%s %d", kind.Label(), c.countOf(kind)+1)
	added, err := c.st.AddRegion(r)
	if err != nil {
		c.log.Error("add region", slog.Any("err", err))
		return
	}
	c.selected = []string{added.ID}
	c.SetTool(ToolSelect)
}

func (c *Controller) countOf(kind domain.RegionType) int {
	n := 0
	for _, r := range c.st.Regions() {
		if r.Type() == kind {
			n++
		}
	}
	return n
}

func (c *Controller) finishBox(box vector.Rect) {
	var hits []string
	for _, r := range c.st.Regions() {
		if r.Visible && r.Bounds().Intersects(box) {
			hits = append(hits, r.ID)
		}
	}
	if c.additive {
		c.AddToSelection(hits...)
	} else {
		c.selected = hits
	}
	c.additive = false
}

func (c *Controller) finishDrag(end vector.Pt) {
	var offset vector.Pt
	// a click without movement never snaps
	if raw := end.Sub(c.start); raw != (vector.Pt{}) {
		offset, _ = c.snapDrag(raw)
	}
	ids := c.dragIDs
	narrow := c.narrowTo
	c.dragIDs, c.guides, c.dragOffset, c.narrowTo = nil, nil, vector.Pt{}, ""

	if offset.X == 0 && offset.Y == 0 {
		if narrow != "" {
			c.selected = []string{narrow}
		}
		return
	}
	c.st.MoveRegions(ids, offset.X, offset.Y)
}

func (c *Controller) wheel(e Wheel) bool {
	if e.DeltaY == 0 {
		return false
	}
	f := c.opts.ZoomStep
	if e.DeltaY > 0 {
		f = 1 / f
	}
	c.view.ZoomBy(e.Pos, f)
	return true
}

func (c *Controller) keyDown(e KeyDown) bool {
	if e.Mods.Command() {
		switch e.Key {
		case "z", "Z":
			if e.Mods.Shift() {
				return c.st.Redo()
			}
			return c.st.Undo()
		case "y", "Y":
			return c.st.Redo()
		case "a", "A":
			c.SelectAll()
			return true
		case "d", "D":
			return c.duplicateSelection()
		}
		return false
	}

	switch e.Key {
	case KeyDelete, KeyBackspace:
		sel := c.Selection()
		if len(sel) == 0 {
			return false
		}
		c.st.DeleteRegions(sel)
		c.selected = nil
		return true
	case KeyEscape:
		c.cancelGesture()
		c.selected = nil
		c.tool = ToolSelect
		return true
	case KeyArrowLeft, KeyArrowRight, KeyArrowUp, KeyArrowDown:
		return c.nudge(e.Key, e.Mods.Shift())
	}
	if t, ok := hotkeys[e.Key]; ok && e.Mods == 0 {
		c.SetTool(t)
		return true
	}
	return false
}

func (c *Controller) duplicateSelection() bool {
	sel := c.Selection()
	if len(sel) == 0 {
		return false
	}
	copies := c.st.DuplicateRegions(sel)
	ids := make([]string, len(copies))
	for i, r := range copies {
		ids[i] = r.ID
	}
	c.selected = ids
	return len(ids) > 0
}

func (c *Controller) nudge(key string, large bool) bool {
	step := c.opts.NudgeStep
	if large {
		step = c.opts.NudgeStepLarge
	}
	var dx, dy float64
	switch key {
	case KeyArrowLeft:
		dx = -step
	case KeyArrowRight:
		dx = step
	case KeyArrowUp:
		dy = -step
	case KeyArrowDown:
		dy = step
	}
	var ids []string
	for _, id := range c.Selection() {
		if r, ok := c.st.Region(id); ok && !r.Locked {
			ids = append(ids, id)
		}
	}
	return c.st.NudgeRegions(ids, dx, dy) > 0
}

// hitTest returns the topmost visible region containing world point p.
func (c *Controller) hitTest(p vector.Pt) (domain.Region, bool) {
	regs := c.st.Regions()
	sort.SliceStable(regs, func(i, j int) bool { return regs[i].ZIndex > regs[j].ZIndex })
	for _, r := range regs {
		if r.Visible && r.Bounds().Contains(p) {
			return r, true
		}
	}
	return domain.Region{}, false
}

// RegionAt exposes hit testing at a screen point, e.g. for context menus.
func (c *Controller) RegionAt(screen vector.Pt) (domain.Region, bool) {
	return c.hitTest(c.view.ScreenToWorld(screen))
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
