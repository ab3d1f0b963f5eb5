// Package platform describes the host the viewport mounts into: a document
// of containers, a window-level event target and a display-refresh frame
// scheduler.
package platform

import (
	"time"

	"Ocean3D/internal/renderer"
)

// Container is a host element with a content box. It holds the canvases
// appended into it.
type Container interface {
	ID() string
	ContentSize() (width, height int)
	AppendChild(c renderer.Canvas)
	RemoveChild(c renderer.Canvas) bool
	ClearChildren()
	Children() []renderer.Canvas
}

// FrameID identifies a pending frame request.
type FrameID uint64

// FrameCallback receives the scheduler clock at the start of the frame.
type FrameCallback func(now time.Duration)

// FrameScheduler runs callbacks once each on the next display refresh.
type FrameScheduler interface {
	RequestFrame(cb FrameCallback) FrameID
	CancelFrame(id FrameID)
	// Now is monotonic and never goes backwards.
	Now() time.Duration
}

// EventTarget is the window-level listener registry.
type EventTarget interface {
	AddListener(t EventType, fn Listener) ListenerID
	RemoveListener(id ListenerID) bool
}

// Host is everything a viewport needs from its environment.
type Host interface {
	// Lookup resolves a container by id.
	Lookup(id string) (Container, bool)
	Events() EventTarget
	Frames() FrameScheduler
	// NewRenderer creates a backend drawing into a canvas of the given size.
	NewRenderer(width, height int) (renderer.Render, error)
}
