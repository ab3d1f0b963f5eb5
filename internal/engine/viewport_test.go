package engine

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"Ocean3D/internal/envmap"
	"Ocean3D/internal/loader"
	"Ocean3D/internal/platform"
	"Ocean3D/internal/platform/headless"
	"Ocean3D/internal/renderer"
	"Ocean3D/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	containerID = "ocean-container"
	triangleOBJ = "o boat\nv 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"

	twoMaterialOBJ = `mtllib quad.mtl
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
usemtl red
f 1/1 2/2 3/3
usemtl blue
f 1/1 3/3 4/4
`
	twoMaterialMTL = `newmtl red
Kd 1 0 0
map_Kd red.png
newmtl blue
Kd 0 0 1
map_Kd blue.png
`
)

type fixture struct {
	host      *headless.Host
	container *headless.Container
	vp        *Viewport
	logs      *observer.ObservedLogs
}

func newFixture(t *testing.T, configure func(*Options)) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	host := headless.New(50)
	container := host.AddContainer(containerID, 800, 600)

	opts := DefaultOptions()
	opts.CaptureSize = 8
	opts.IrradianceSize = 2
	opts.NormalsURL = ""
	opts.Logger = zap.New(core)
	if configure != nil {
		configure(&opts)
	}

	vp := NewViewport(host, opts)
	t.Cleanup(func() { _ = vp.Close() })
	return &fixture{host: host, container: container, vp: vp, logs: logs}
}

func (f *fixture) listeners() (pointer, resize int) {
	return f.host.ListenerCount(platform.PointerMove), f.host.ListenerCount(platform.Resize)
}

func waitFor[T any](t *testing.T, req *loader.Request[T]) (T, error) {
	t.Helper()
	require.NotNil(t, req)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return req.Wait(ctx)
}

func serveOBJ(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(triangleOBJ))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStartMissingContainer(t *testing.T) {
	f := newFixture(t, nil)

	err := f.vp.Start("nowhere")
	var missing *MissingContainerError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "nowhere", missing.ID)

	assert.Nil(t, f.vp.Session())
	assert.Empty(t, f.host.Renderers)
	assert.Zero(t, f.host.Scheduler().Pending())
	p, r := f.listeners()
	assert.Zero(t, p)
	assert.Zero(t, r)
	assert.Equal(t, 1, f.logs.FilterMessage("Viewport not started").Len())

	assert.NoError(t, f.vp.Stop())
	assert.ErrorIs(t, f.vp.Resize(), ErrNoSession)
}

func TestStartMountsSession(t *testing.T) {
	f := newFixture(t, nil)
	stale := renderer.NewHeadlessRenderer(1, 1).Canvas()
	f.container.AppendChild(stale)

	require.NoError(t, f.vp.Start(containerID))
	s := f.vp.Session()
	require.NotNil(t, s)
	assert.True(t, s.Alive())

	rend := f.host.LastRenderer()
	require.NotNil(t, rend)
	w, h := rend.Size()
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)
	assert.InDelta(t, 800.0/600.0, s.Camera().AspectRatio, 1e-6)

	require.Len(t, f.container.Children(), 1)
	assert.Equal(t, rend.Canvas(), f.container.Children()[0])

	p, r := f.listeners()
	assert.Equal(t, 1, p)
	assert.Equal(t, 1, r)
	assert.Equal(t, 1, f.host.Scheduler().Pending())

	state := s.State()
	require.NotNil(t, state.Environment)
	assert.Same(t, s.Scene().Environment, state.Environment)
	assert.False(t, state.HasModel())

	sun := envmap.DefaultSun.Direction()
	assert.Equal(t, sun, state.Sky.SunPosition())
	assert.InDelta(t, 0, state.Water.SunDirection().Sub(sun.Normalize()).Len(), 1e-6)
	assert.Equal(t, 1, f.logs.FilterMessage("Session started").Len())
}

func TestWaterPhaseAfterFortyFrames(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.vp.Start(containerID))

	f.host.Scheduler().Run(40)

	s := f.vp.Session()
	assert.Equal(t, uint64(40), s.Frames())
	assert.Equal(t, float32(1), s.State().Water.Phase())
	assert.Equal(t, float32(1), s.State().Water.Material.Float("time"))
	assert.Equal(t, uint64(40), f.host.LastRenderer().Stats().Frames)
}

func TestModelMotionFollowsClock(t *testing.T) {
	srv := serveOBJ(t)
	f := newFixture(t, func(o *Options) { o.ModelURL = srv.URL + "/boat.obj" })
	require.NoError(t, f.vp.Start(containerID))
	s := f.vp.Session()

	node, err := waitFor(t, s.ModelRequest())
	require.NoError(t, err)

	f.host.Scheduler().Run(10)

	require.Same(t, node, s.State().Model)
	assert.Same(t, s.Scene().Root, node.Parent())
	assert.Equal(t, mgl32.Vec3{scene.ModelScale, scene.ModelScale, scene.ModelScale}, node.Scale)

	tm := 10 * f.host.Scheduler().Interval().Seconds()
	assert.InDelta(t, math.Sin(tm)*20+5, node.Position.Y(), 1e-4)
	assert.Zero(t, node.Position.X())
	assert.Zero(t, node.Position.Z())
	assert.InDelta(t, 0.5*tm, node.Rotation.X(), 1e-5)
	assert.InDelta(t, 0.51*tm, node.Rotation.Y(), 1e-5)
	assert.InDelta(t, 0.51*tm, node.Rotation.Z(), 1e-5)
	assert.Contains(t, f.host.LastRenderer().LastDrawn, "boat")
}

func TestUnreachableModel(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/boat.obj"
	srv.Close()

	f := newFixture(t, func(o *Options) { o.ModelURL = url })
	require.NoError(t, f.vp.Start(containerID))
	s := f.vp.Session()

	_, err := waitFor(t, s.ModelRequest())
	require.Error(t, err)

	assert.NotPanics(t, func() { f.host.Scheduler().Run(5) })
	assert.True(t, s.Alive())
	assert.Equal(t, uint64(5), s.Frames())
	assert.False(t, s.State().HasModel())

	drawn := f.host.LastRenderer().LastDrawn
	assert.Contains(t, drawn, "water")
	assert.Contains(t, drawn, "sky")
	assert.Equal(t, 1, f.logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestCameraFollowsPointer(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.vp.Start(containerID))
	s := f.vp.Session()

	f.host.Dispatch(platform.Event{Type: platform.PointerMove, X: 600, Y: 300})
	assert.Equal(t, float32(200), s.Pointer())

	target := 200 * 0.015
	initial := float64(s.Camera().Position.X())
	f.host.Scheduler().Run(20)

	want := math.Abs(initial-target) * math.Pow(0.95, 20)
	assert.InDelta(t, want, math.Abs(float64(s.Camera().Position.X())-target), 1e-3)

	front := s.Camera().Front
	aim := scene.LookAt.Sub(s.Camera().Position).Normalize()
	assert.InDelta(t, 0, front.Sub(aim).Len(), 1e-5)
}

func TestResize(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.vp.Start(containerID))
	s := f.vp.Session()
	rend := f.host.LastRenderer()

	f.container.SetContentSize(1024, 512)
	f.host.Dispatch(platform.Event{Type: platform.Resize, Width: 1024, Height: 512})

	assert.InDelta(t, 2.0, s.Camera().AspectRatio, 1e-6)
	w, h := rend.Size()
	assert.Equal(t, 1024, w)
	assert.Equal(t, 512, h)

	require.NoError(t, f.vp.Resize())
	assert.InDelta(t, 2.0, s.Camera().AspectRatio, 1e-6)

	f.container.SetContentSize(0, 0)
	require.NoError(t, f.vp.Resize())
	w, _ = rend.Size()
	assert.Equal(t, 1024, w)
}

func TestStopReleasesEverything(t *testing.T) {
	srv := serveOBJ(t)
	f := newFixture(t, func(o *Options) {
		o.ModelURL = srv.URL + "/boat.obj"
		o.NormalsURL = "procedural://waternormals?size=16"
	})
	require.NoError(t, f.vp.Start(containerID))
	s := f.vp.Session()

	normals, err := waitFor(t, s.NormalsRequest())
	require.NoError(t, err)
	model, err := waitFor(t, s.ModelRequest())
	require.NoError(t, err)
	f.host.Scheduler().Run(2)
	require.Same(t, normals, s.State().Water.NormalMap())
	require.Same(t, model, s.State().Model)

	rend := f.host.LastRenderer()
	env := s.State().Environment
	var geometries []*renderer.Geometry
	var materials []*renderer.Material
	s.Scene().Root.Traverse(func(n *renderer.Node) {
		if n.Geometry != nil {
			geometries = append(geometries, n.Geometry)
		}
		materials = append(materials, n.Materials...)
	})
	require.Len(t, geometries, 3)

	require.NoError(t, f.vp.Stop())

	assert.False(t, s.Alive())
	assert.Nil(t, f.vp.Session())
	assert.Zero(t, s.behaviours.Len())
	assert.True(t, rend.Disposed())
	assert.Empty(t, f.container.Children())
	assert.Zero(t, f.host.Scheduler().Pending())
	p, r := f.listeners()
	assert.Zero(t, p)
	assert.Zero(t, r)

	for _, g := range geometries {
		assert.True(t, g.Disposed(), g.Name)
	}
	for _, m := range materials {
		assert.True(t, m.Disposed(), m.Name)
	}
	assert.True(t, normals.Disposed())
	assert.True(t, env.Radiance.Disposed())
	assert.True(t, env.Irradiance.Disposed())
	assert.Nil(t, s.Scene().Environment)

	frames := s.Frames()
	f.host.Scheduler().Run(3)
	assert.Equal(t, frames, s.Frames())
	assert.NoError(t, f.vp.Stop())
}

func TestRestartKeepsOneListenerEach(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.vp.Start(containerID))
	first := f.vp.Session()
	require.NoError(t, f.vp.Stop())

	require.NoError(t, f.vp.Start(containerID))
	p, r := f.listeners()
	assert.Equal(t, 1, p)
	assert.Equal(t, 1, r)
	assert.Len(t, f.container.Children(), 1)

	// Starting over a live session replaces it.
	require.NoError(t, f.vp.Start(containerID))
	second := f.vp.Session()
	assert.NotEqual(t, first.ID(), second.ID())
	p, r = f.listeners()
	assert.Equal(t, 1, p)
	assert.Equal(t, 1, r)
	assert.Len(t, f.container.Children(), 1)
	assert.Equal(t, 1, f.host.Scheduler().Pending())

	require.Len(t, f.host.Renderers, 3)
	assert.True(t, f.host.Renderers[0].Disposed())
	assert.True(t, f.host.Renderers[1].Disposed())
	assert.False(t, f.host.Renderers[2].Disposed())

	f.host.Scheduler().Run(3)
	assert.Equal(t, uint64(3), second.Frames())
}

func TestLateModelAfterStop(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte(triangleOBJ))
	}))
	t.Cleanup(srv.Close)

	f := newFixture(t, func(o *Options) { o.ModelURL = srv.URL + "/boat.obj" })
	require.NoError(t, f.vp.Start(containerID))
	s := f.vp.Session()
	require.NoError(t, f.vp.Stop())
	close(release)

	node, err := waitFor(t, s.ModelRequest())
	require.NoError(t, err)
	f.vp.Mailbox().Drain()

	assert.False(t, s.State().HasModel())
	assert.Nil(t, node.Parent())
	assert.True(t, node.Geometry.Disposed())
	assert.Zero(t, f.logs.FilterMessage("Model attached").Len())
}

func TestRendererFailureLeavesNothingBehind(t *testing.T) {
	f := newFixture(t, nil)
	f.host.RendererErr = errors.New("no context")

	err := f.vp.Start(containerID)
	require.ErrorIs(t, err, f.host.RendererErr)
	assert.Nil(t, f.vp.Session())
	assert.Empty(t, f.container.Children())
	assert.Zero(t, f.host.Scheduler().Pending())
	p, r := f.listeners()
	assert.Zero(t, p)
	assert.Zero(t, r)
}

func TestBakeFailureUnwinds(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.CaptureSize = 0 })

	err := f.vp.Start(containerID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bake environment")
	assert.Nil(t, f.vp.Session())

	rend := f.host.LastRenderer()
	require.NotNil(t, rend)
	assert.True(t, rend.Disposed())
	assert.Empty(t, f.container.Children())
	p, r := f.listeners()
	assert.Zero(t, p)
	assert.Zero(t, r)
}

func serveFiles(t *testing.T, files map[string][]byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

// startWithModel mounts a session, waits for the model and draws one frame.
func startWithModel(t *testing.T, url string) (*fixture, *renderer.Node) {
	t.Helper()
	f := newFixture(t, func(o *Options) { o.ModelURL = url })
	require.NoError(t, f.vp.Start(containerID))
	s := f.vp.Session()

	model, err := waitFor(t, s.ModelRequest())
	require.NoError(t, err)
	f.host.Scheduler().Run(1)
	require.Same(t, model, s.State().Model)
	return f, model
}

type modelResources struct {
	geometries []*renderer.Geometry
	materials  []*renderer.Material
	textures   []*renderer.Texture
}

func collectResources(root *renderer.Node) modelResources {
	var res modelResources
	root.Traverse(func(n *renderer.Node) {
		if n.Geometry != nil {
			res.geometries = append(res.geometries, n.Geometry)
		}
		for _, m := range n.Materials {
			res.materials = append(res.materials, m)
			res.textures = append(res.textures, m.Textures()...)
		}
	})
	return res
}

func assertReleased(t *testing.T, res modelResources) {
	t.Helper()
	for _, g := range res.geometries {
		assert.True(t, g.Disposed(), "geometry %s", g.Name)
	}
	for _, m := range res.materials {
		assert.True(t, m.Disposed(), "material %s", m.Name)
	}
	for _, tex := range res.textures {
		assert.True(t, tex.Disposed(), "texture %s", tex.Name)
	}
}

func TestStopReleasesMultiMaterialModel(t *testing.T) {
	img := pngBytes(t)
	srv := serveFiles(t, map[string][]byte{
		"/models/quad.obj": []byte(twoMaterialOBJ),
		"/models/quad.mtl": []byte(twoMaterialMTL),
		"/models/red.png":  img,
		"/models/blue.png": img,
	})
	f, model := startWithModel(t, srv.URL+"/models/quad.obj")

	require.Len(t, model.Materials, 2)
	require.Len(t, model.Geometry.Groups, 2)
	require.NotNil(t, model.Materials[0].Map)
	require.NotNil(t, model.Materials[1].Map)
	res := collectResources(model)
	require.Len(t, res.textures, 2)

	require.NoError(t, f.vp.Stop())
	assertReleased(t, res)
}

func TestStopReleasesInstancedModel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, loader.EncodeMesh(&buf, &loader.SerializedMesh{
		Vertices:          []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Faces:             []int32{0, 1, 2},
		IsInstanced:       true,
		InstanceCount:     3,
		InstancePositions: [][3]float32{{0, 0, 0}, {2, 0, 0}, {4, 0, 0}},
		InstanceColors:    [][3]float32{{1, 0, 0}, {0, 1, 0}},
	}))
	srv := serveFiles(t, map[string][]byte{"/fleet.mesh": buf.Bytes()})
	f, model := startWithModel(t, srv.URL+"/fleet.mesh")

	children := model.Children()
	require.Len(t, children, 3)
	assert.Same(t, children[0].Geometry, children[2].Geometry)
	assert.NotSame(t, children[0].Materials[0], children[1].Materials[0])
	res := collectResources(model)
	require.Len(t, res.geometries, 3)
	require.Len(t, res.materials, 3)

	require.NoError(t, f.vp.Stop())
	assertReleased(t, res)
}
