package renderer

import (
	"errors"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrRendererDisposed is returned when a disposed renderer is disposed again.
var ErrRendererDisposed = errors.New("renderer already disposed")

type headlessCanvas struct {
	r *HeadlessRenderer
}

func (c headlessCanvas) Size() (int, int) {
	return c.r.width, c.r.height
}

// HeadlessRenderer walks the scene like a GPU backend but draws nothing. It
// tracks the resources a real backend would have uploaded so tests and the
// headless CLI mode can inspect them.
type HeadlessRenderer struct {
	width, height int
	disposed      bool

	frames    atomic.Uint64
	drawCalls atomic.Uint64

	geometries map[*Geometry]struct{}
	textures   map[*Texture]struct{}

	// LastCamera is a copy of the camera used by the most recent Render.
	LastCamera Camera
	// LastBackground is the clear color of the most recent Render.
	LastBackground mgl32.Vec3
	// LastDrawn lists the names of nodes drawn in the most recent Render.
	LastDrawn []string
}

func NewHeadlessRenderer(width, height int) *HeadlessRenderer {
	return &HeadlessRenderer{
		width:      width,
		height:     height,
		geometries: make(map[*Geometry]struct{}),
		textures:   make(map[*Texture]struct{}),
	}
}

func (r *HeadlessRenderer) Canvas() Canvas {
	return headlessCanvas{r: r}
}

func (r *HeadlessRenderer) SetSize(width, height int) {
	r.width, r.height = width, height
}

func (r *HeadlessRenderer) Size() (int, int) {
	return r.width, r.height
}

func (r *HeadlessRenderer) Render(scene *Scene, camera *Camera) {
	if r.disposed || scene == nil || camera == nil {
		return
	}
	r.LastCamera = *camera
	r.LastBackground = scene.Background
	r.LastDrawn = r.LastDrawn[:0]

	if scene.Environment != nil {
		r.track(scene.Environment.Radiance)
		r.track(scene.Environment.Irradiance)
	}
	scene.Root.Traverse(func(n *Node) {
		if !n.Visible || n.Geometry == nil {
			return
		}
		if n.Geometry.Disposed() {
			return
		}
		if _, ok := r.geometries[n.Geometry]; !ok {
			g := n.Geometry
			r.geometries[g] = struct{}{}
			g.OnDispose(func() error {
				delete(r.geometries, g)
				return nil
			})
		}
		for _, m := range n.Materials {
			for _, tex := range m.Textures() {
				r.track(tex)
			}
		}
		r.LastDrawn = append(r.LastDrawn, n.Name)
		r.drawCalls.Add(1)
	})
	r.frames.Add(1)
}

func (r *HeadlessRenderer) track(tex *Texture) {
	if tex == nil || tex.Disposed() {
		return
	}
	if _, ok := r.textures[tex]; ok {
		return
	}
	r.textures[tex] = struct{}{}
	tex.OnDispose(func() error {
		delete(r.textures, tex)
		return nil
	})
}

func (r *HeadlessRenderer) Dispose() error {
	if r.disposed {
		return ErrRendererDisposed
	}
	r.disposed = true
	r.geometries = make(map[*Geometry]struct{})
	r.textures = make(map[*Texture]struct{})
	return nil
}

func (r *HeadlessRenderer) Disposed() bool {
	return r.disposed
}

func (r *HeadlessRenderer) Stats() Stats {
	return Stats{
		Frames:     r.frames.Load(),
		DrawCalls:  r.drawCalls.Load(),
		Geometries: len(r.geometries),
		Textures:   len(r.textures),
	}
}
