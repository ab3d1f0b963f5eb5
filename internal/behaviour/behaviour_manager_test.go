package behaviour

import (
	"testing"
)

type MockBehaviour struct {
	name   string
	starts int
	frames []Frame
	log    *[]string
}

func (b *MockBehaviour) Start() {
	b.starts++
}

func (b *MockBehaviour) Update(frame Frame) {
	b.frames = append(b.frames, frame)
	if b.log != nil {
		*b.log = append(*b.log, b.name)
	}
}

func TestManagerStartsOnce(t *testing.T) {
	m := NewManager()
	b := &MockBehaviour{}
	m.Add(b)

	m.UpdateAll(Frame{Index: 1})
	m.UpdateAll(Frame{Index: 2})

	if b.starts != 1 {
		t.Errorf("Start() should run once, ran %d times", b.starts)
	}
	if len(b.frames) != 2 || b.frames[1].Index != 2 {
		t.Errorf("Update() should see every frame, got %+v", b.frames)
	}
}

func TestManagerPreservesOrder(t *testing.T) {
	var order []string
	m := NewManager()
	a := &MockBehaviour{name: "a", log: &order}
	b := &MockBehaviour{name: "b", log: &order}
	c := &MockBehaviour{name: "c", log: &order}
	m.Add(a)
	m.Add(b)
	m.Add(c)

	m.UpdateAll(Frame{})
	m.UpdateAll(Frame{})

	want := []string{"a", "b", "c", "a", "b", "c"}
	if len(order) != len(want) {
		t.Fatalf("Expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, order)
			break
		}
	}
}

func TestManagerClear(t *testing.T) {
	m := NewManager()
	b := &MockBehaviour{}
	m.Add(b)
	m.Clear()
	m.UpdateAll(Frame{})

	if m.Len() != 0 || len(b.frames) != 0 {
		t.Error("Cleared manager should not update anything")
	}
}
