// Package input turns window events into the pointer state the animation
// reads and the resize calls the viewport needs.
package input

import (
	"Ocean3D/internal/platform"
)

// PointerState is the horizontal offset of the last pointer move from the
// centre of the view. Only the Bridge writes it.
type PointerState struct {
	offset float32
}

func (p *PointerState) Offset() float32 {
	return p.offset
}

// Bridge owns the listeners registered for one session.
type Bridge struct {
	events platform.EventTarget
	ids    []platform.ListenerID
}

// Attach registers a pointer-move listener writing into pointer and a resize
// listener calling onResize. Offsets are measured from half of the
// container's current content width.
func Attach(events platform.EventTarget, container platform.Container, pointer *PointerState, onResize func()) *Bridge {
	b := &Bridge{events: events}
	b.ids = append(b.ids,
		events.AddListener(platform.PointerMove, func(ev platform.Event) {
			width, _ := container.ContentSize()
			pointer.offset = float32(ev.X - float64(width)/2)
		}),
		events.AddListener(platform.Resize, func(platform.Event) {
			onResize()
		}),
	)
	return b
}

// Detach removes every listener Attach registered. It is safe to call twice.
func (b *Bridge) Detach() {
	for _, id := range b.ids {
		b.events.RemoveListener(id)
	}
	b.ids = nil
}

// Attached reports whether the listeners are still registered.
func (b *Bridge) Attached() bool {
	return len(b.ids) > 0
}
