package engine

import (
	"errors"
	"time"

	"Ocean3D/internal/animation"
	"Ocean3D/internal/behaviour"
	"Ocean3D/internal/input"
	"Ocean3D/internal/loader"
	"Ocean3D/internal/platform"
	"Ocean3D/internal/renderer"
	"Ocean3D/internal/scene"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Session is one mount of the scene. Everything in it is touched only from
// the render thread.
type Session struct {
	id        uint64
	container platform.Container
	renderer  renderer.Render
	camera    *renderer.Camera
	scene     *renderer.Scene
	composer  *scene.Composer
	state     *scene.State

	pointer    input.PointerState
	bridge     *input.Bridge
	behaviours *behaviour.Manager

	frames   uint64
	frameID  platform.FrameID
	schedule platform.FrameScheduler
	start    time.Duration
	last     time.Duration
	alive    bool

	normals *loader.Request[*renderer.Texture]
	model   *loader.Request[*renderer.Node]

	mailbox  *Mailbox
	log      *zap.Logger
	onResize func()
}

func newSession(v *Viewport, id uint64, container platform.Container, rend renderer.Render) *Session {
	width, height := container.ContentSize()
	aspect := float32(1)
	if height > 0 {
		aspect = float32(width) / float32(height)
	}
	camera := renderer.NewPerspectiveCamera(v.opts.FOV, aspect, v.opts.Near, v.opts.Far)

	scn := renderer.NewScene()
	composer := scene.NewComposer(scn, v.opts.Water, v.opts.Sky)
	s := &Session{
		id:         id,
		container:  container,
		renderer:   rend,
		camera:     camera,
		scene:      scn,
		composer:   composer,
		state:      composer.BuildStaticScene(camera),
		behaviours: behaviour.NewManager(),
		mailbox:    v.mailbox,
		log:        v.log.With(zap.Uint64("session", id)),
		onResize: func() {
			if err := v.Resize(); err != nil {
				v.log.Debug("Resize skipped", zap.Error(err))
			}
		},
	}
	animation.Install(s.behaviours, s.camera, &s.pointer, s.state)
	return s
}

func (s *Session) attachInput(events platform.EventTarget) {
	s.bridge = input.Attach(events, s.container, &s.pointer, s.onResize)
}

func (s *Session) begin(frames platform.FrameScheduler) {
	s.alive = true
	s.schedule = frames
	s.start = frames.Now()
	s.last = s.start
	s.frameID = frames.RequestFrame(s.tick)
}

// tick runs one frame and asks for the next. Asset completions are applied
// before the behaviours so a model that arrived is animated the same frame.
func (s *Session) tick(now time.Duration) {
	if !s.alive {
		return
	}
	s.mailbox.Drain()

	s.frames++
	frame := behaviour.Frame{
		Index: s.frames,
		Time:  (now - s.start).Seconds(),
		Delta: (now - s.last).Seconds(),
	}
	s.last = now
	s.behaviours.UpdateAll(frame)
	s.renderer.Render(s.scene, s.camera)

	if s.alive {
		s.frameID = s.schedule.RequestFrame(s.tick)
	}
}

func (s *Session) requestAssets(l *loader.Loader, opts Options) {
	if opts.NormalsURL != "" {
		s.normals = l.LoadTexture(opts.NormalsURL, loader.Handlers[*renderer.Texture]{
			OnLoad: func(tex *renderer.Texture) {
				if !s.alive {
					_ = tex.Dispose()
					return
				}
				s.state.Water.SetNormalMap(tex)
			},
			OnError: func(err error) {
				s.log.Debug("Water renders without a normal map", zap.String("url", opts.NormalsURL))
			},
		})
	}
	if opts.ModelURL != "" {
		s.model = l.LoadModel(opts.ModelURL, loader.Handlers[*renderer.Node]{
			OnProgress: func(p loader.Progress) {
				if ratio, ok := p.Ratio(); ok {
					s.log.Debug("Model loading", zap.Float64("ratio", ratio))
				}
			},
			OnLoad: func(node *renderer.Node) {
				if !s.alive {
					if err := disposeTree(node); err != nil {
						s.log.Warn("Could not release late model", zap.Error(err))
					}
					return
				}
				if err := s.composer.AttachModel(node); err != nil {
					s.log.Error("Model not attached", zap.Error(err))
					return
				}
				s.log.Info("Model attached", zap.String("name", node.Name))
			},
			OnError: func(err error) {
				var loadErr *loader.LoadError
				if errors.As(err, &loadErr) {
					s.log.Debug("Scene continues without the model", zap.String("url", loadErr.URL))
				}
			},
		})
	}
}

// disposeTree releases every geometry, material and texture under root.
// Textures shared between materials are disposed once.
func disposeTree(root *renderer.Node) error {
	var err error
	textures := make(map[*renderer.Texture]struct{})
	root.Traverse(func(n *renderer.Node) {
		if n.Geometry != nil {
			err = multierr.Append(err, n.Geometry.Dispose())
		}
		for _, m := range n.Materials {
			for _, tex := range m.Textures() {
				textures[tex] = struct{}{}
			}
			err = multierr.Append(err, m.Dispose())
		}
	})
	for tex := range textures {
		err = multierr.Append(err, tex.Dispose())
	}
	return err
}

func (s *Session) ID() uint64 {
	return s.id
}

func (s *Session) Camera() *renderer.Camera {
	return s.camera
}

func (s *Session) Scene() *renderer.Scene {
	return s.scene
}

func (s *Session) State() *scene.State {
	return s.state
}

func (s *Session) Renderer() renderer.Render {
	return s.renderer
}

func (s *Session) Container() platform.Container {
	return s.container
}

// Frames counts frames drawn so far.
func (s *Session) Frames() uint64 {
	return s.frames
}

// Alive is false once the session has been stopped.
func (s *Session) Alive() bool {
	return s.alive
}

// ModelRequest is the pending model load, or nil when no model URL is set.
func (s *Session) ModelRequest() *loader.Request[*renderer.Node] {
	return s.model
}

func (s *Session) NormalsRequest() *loader.Request[*renderer.Texture] {
	return s.normals
}

// Pointer is the current pointer offset from the view centre.
func (s *Session) Pointer() float32 {
	return s.pointer.Offset()
}
