package platform

import "fmt"

type EventType int

const (
	PointerMove EventType = iota
	Resize
)

func (t EventType) String() string {
	switch t {
	case PointerMove:
		return "pointermove"
	case Resize:
		return "resize"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event carries pointer coordinates in window space for PointerMove and the
// new window size for Resize.
type Event struct {
	Type EventType
	X, Y float64
	// Width and Height are set for Resize.
	Width, Height int
}

type Listener func(Event)

type ListenerID uint64

type listenerEntry struct {
	id ListenerID
	fn Listener
}

// Listeners is an EventTarget both hosts embed. It is used from the thread
// that dispatches events only.
type Listeners struct {
	next   ListenerID
	byType map[EventType][]listenerEntry
}

func (l *Listeners) AddListener(t EventType, fn Listener) ListenerID {
	if l.byType == nil {
		l.byType = make(map[EventType][]listenerEntry)
	}
	l.next++
	l.byType[t] = append(l.byType[t], listenerEntry{id: l.next, fn: fn})
	return l.next
}

func (l *Listeners) RemoveListener(id ListenerID) bool {
	for t, entries := range l.byType {
		for i, e := range entries {
			if e.id == id {
				l.byType[t] = append(entries[:i:i], entries[i+1:]...)
				return true
			}
		}
	}
	return false
}

// ListenerCount reports how many listeners are registered for t.
func (l *Listeners) ListenerCount(t EventType) int {
	return len(l.byType[t])
}

// Dispatch calls every listener for ev.Type in registration order. Listeners
// added or removed during dispatch take effect on the next event.
func (l *Listeners) Dispatch(ev Event) {
	entries := append([]listenerEntry(nil), l.byType[ev.Type]...)
	for _, e := range entries {
		e.fn(ev)
	}
}
