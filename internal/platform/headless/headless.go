// Package headless is an in-memory host: containers with fixed content
// boxes, a manually stepped frame scheduler and the headless renderer.
package headless

import (
	"time"

	"Ocean3D/internal/platform"
	"Ocean3D/internal/renderer"
)

type Container struct {
	id            string
	width, height int
	children      []renderer.Canvas
}

func (c *Container) ID() string {
	return c.id
}

func (c *Container) ContentSize() (int, int) {
	return c.width, c.height
}

// SetContentSize changes the content box. It does not dispatch a resize event.
func (c *Container) SetContentSize(width, height int) {
	c.width, c.height = width, height
}

func (c *Container) AppendChild(canvas renderer.Canvas) {
	c.children = append(c.children, canvas)
}

func (c *Container) RemoveChild(canvas renderer.Canvas) bool {
	for i, child := range c.children {
		if child == canvas {
			c.children = append(c.children[:i], c.children[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Container) ClearChildren() {
	c.children = nil
}

func (c *Container) Children() []renderer.Canvas {
	return c.children
}

// Host implements platform.Host without a window.
type Host struct {
	platform.Listeners

	containers map[string]*Container
	scheduler  *Scheduler

	// RendererErr, when set, makes NewRenderer fail.
	RendererErr error
	// Renderers lists every renderer created, oldest first.
	Renderers []*renderer.HeadlessRenderer
}

// New returns a host whose scheduler ticks at frameRate Hz.
func New(frameRate int) *Host {
	return &Host{
		containers: make(map[string]*Container),
		scheduler:  NewScheduler(frameRate),
	}
}

// AddContainer creates (or replaces) the container with the given id.
func (h *Host) AddContainer(id string, width, height int) *Container {
	c := &Container{id: id, width: width, height: height}
	h.containers[id] = c
	return c
}

func (h *Host) Lookup(id string) (platform.Container, bool) {
	c, ok := h.containers[id]
	if !ok {
		return nil, false
	}
	return c, true
}

func (h *Host) Events() platform.EventTarget {
	return &h.Listeners
}

func (h *Host) Frames() platform.FrameScheduler {
	return h.scheduler
}

func (h *Host) Scheduler() *Scheduler {
	return h.scheduler
}

func (h *Host) NewRenderer(width, height int) (renderer.Render, error) {
	if h.RendererErr != nil {
		return nil, h.RendererErr
	}
	r := renderer.NewHeadlessRenderer(width, height)
	h.Renderers = append(h.Renderers, r)
	return r, nil
}

// LastRenderer returns the most recently created renderer, or nil.
func (h *Host) LastRenderer() *renderer.HeadlessRenderer {
	if len(h.Renderers) == 0 {
		return nil
	}
	return h.Renderers[len(h.Renderers)-1]
}

type pendingFrame struct {
	id platform.FrameID
	cb platform.FrameCallback
}

// Scheduler is a display-refresh stand-in advanced by Step.
type Scheduler struct {
	interval time.Duration
	now      time.Duration
	next     platform.FrameID
	pending  []pendingFrame
}

func NewScheduler(frameRate int) *Scheduler {
	if frameRate <= 0 {
		frameRate = 60
	}
	return &Scheduler{interval: time.Second / time.Duration(frameRate)}
}

func (s *Scheduler) RequestFrame(cb platform.FrameCallback) platform.FrameID {
	s.next++
	s.pending = append(s.pending, pendingFrame{id: s.next, cb: cb})
	return s.next
}

func (s *Scheduler) CancelFrame(id platform.FrameID) {
	for i, p := range s.pending {
		if p.id == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

func (s *Scheduler) Now() time.Duration {
	return s.now
}

func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Pending reports how many callbacks wait for the next Step.
func (s *Scheduler) Pending() int {
	return len(s.pending)
}

// Step advances the clock by one refresh interval and runs the callbacks
// that were pending before the step. Callbacks requested while stepping run
// on the next Step. It returns the number of callbacks run.
func (s *Scheduler) Step() int {
	s.now += s.interval
	batch := s.pending
	s.pending = nil
	for _, p := range batch {
		p.cb(s.now)
	}
	return len(batch)
}

// Run steps n times and returns the total number of callbacks run.
func (s *Scheduler) Run(n int) int {
	total := 0
	for i := 0; i < n; i++ {
		total += s.Step()
	}
	return total
}
