package engine

import "sync"

// Mailbox queues work posted from loader goroutines until the render thread
// drains it at the start of a frame.
type Mailbox struct {
	mu    sync.Mutex
	queue []func()
}

func (m *Mailbox) Post(fn func()) {
	m.mu.Lock()
	m.queue = append(m.queue, fn)
	m.mu.Unlock()
}

// Drain runs everything posted so far in posting order. Work posted while
// draining waits for the next Drain.
func (m *Mailbox) Drain() int {
	m.mu.Lock()
	batch := m.queue
	m.queue = nil
	m.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}
