package input

import (
	"testing"

	"Ocean3D/internal/platform"
	"Ocean3D/internal/platform/headless"

	"github.com/stretchr/testify/assert"
)

func TestPointerOffsetFromCentre(t *testing.T) {
	host := headless.New(60)
	container := host.AddContainer("view", 800, 600)
	var pointer PointerState
	Attach(host.Events(), container, &pointer, func() {})

	host.Dispatch(platform.Event{Type: platform.PointerMove, X: 500, Y: 10})
	assert.Equal(t, float32(100), pointer.Offset())

	container.SetContentSize(400, 600)
	host.Dispatch(platform.Event{Type: platform.PointerMove, X: 100})
	assert.Equal(t, float32(-100), pointer.Offset())
}

func TestResizeCallsBack(t *testing.T) {
	host := headless.New(60)
	container := host.AddContainer("view", 800, 600)
	resizes := 0
	Attach(host.Events(), container, &PointerState{}, func() { resizes++ })

	host.Dispatch(platform.Event{Type: platform.Resize, Width: 10, Height: 10})
	assert.Equal(t, 1, resizes)
}

func TestDetachRemovesListeners(t *testing.T) {
	host := headless.New(60)
	container := host.AddContainer("view", 800, 600)
	var pointer PointerState
	b := Attach(host.Events(), container, &pointer, func() { t.Fatal("resize after detach") })
	assert.True(t, b.Attached())
	assert.Equal(t, 1, host.ListenerCount(platform.PointerMove))
	assert.Equal(t, 1, host.ListenerCount(platform.Resize))

	b.Detach()
	b.Detach()
	assert.False(t, b.Attached())
	assert.Zero(t, host.ListenerCount(platform.PointerMove))
	assert.Zero(t, host.ListenerCount(platform.Resize))

	host.Dispatch(platform.Event{Type: platform.PointerMove, X: 700})
	host.Dispatch(platform.Event{Type: platform.Resize})
	assert.Zero(t, pointer.Offset())
}
