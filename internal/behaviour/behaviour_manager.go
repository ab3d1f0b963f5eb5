// Package behaviour runs per-frame update hooks in registration order.
package behaviour

// Frame describes one tick of the render loop.
type Frame struct {
	// Index counts frames from 1 within a session.
	Index uint64
	// Time is seconds elapsed since the session started.
	Time float64
	// Delta is seconds since the previous frame.
	Delta float64
}

// Behaviour is updated once per frame. Start runs before the first Update.
type Behaviour interface {
	Start()
	Update(frame Frame)
}

type behaviourWrapper struct {
	behaviour Behaviour
	started   bool
}

// Manager is owned by one session; it is not safe for concurrent use.
type Manager struct {
	behaviours []behaviourWrapper
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) Add(b Behaviour) {
	m.behaviours = append(m.behaviours, behaviourWrapper{behaviour: b})
}

// Clear drops every behaviour. The session calls it on teardown.
func (m *Manager) Clear() {
	m.behaviours = nil
}

func (m *Manager) Len() int {
	return len(m.behaviours)
}

func (m *Manager) UpdateAll(frame Frame) {
	for i := range m.behaviours {
		if !m.behaviours[i].started {
			m.behaviours[i].behaviour.Start()
			m.behaviours[i].started = true
		}
		m.behaviours[i].behaviour.Update(frame)
	}
}
