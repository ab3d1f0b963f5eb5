// Package engine owns the viewport lifecycle: mounting a session into a host
// container, driving its frames, resizing it and tearing it down.
package engine

import (
	"context"
	"fmt"

	"Ocean3D/internal/envmap"
	"Ocean3D/internal/loader"
	"Ocean3D/internal/logger"
	"Ocean3D/internal/platform"
	"Ocean3D/internal/renderer"
	"Ocean3D/internal/sky"
	"Ocean3D/internal/water"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Options configures every session the viewport starts.
type Options struct {
	ModelURL   string
	NormalsURL string

	Water water.Options
	Sky   sky.Params
	Sun   envmap.Sun

	CaptureSize    int
	IrradianceSize int

	// Camera
	FOV  float32
	Near float32
	Far  float32

	// Workers sizes the asset loader pool.
	Workers int
	// Fetcher overrides how asset URLs are opened.
	Fetcher *loader.Fetcher
	Logger  *zap.Logger
}

func DefaultOptions() Options {
	return Options{
		NormalsURL:     "procedural://waternormals",
		Water:          water.DefaultOptions(),
		Sky:            sky.DefaultParams,
		Sun:            envmap.DefaultSun,
		CaptureSize:    32,
		IrradianceSize: 8,
		FOV:            55,
		Near:           1,
		Far:            20000,
		Workers:        2,
	}
}

// Viewport mounts at most one session at a time into a host container.
// Start, Resize and Stop run on the host's render thread.
type Viewport struct {
	host    platform.Host
	opts    Options
	log     *zap.Logger
	loader  *loader.Loader
	mailbox *Mailbox
	baker   *envmap.Baker

	session  *Session
	sessions uint64
}

func NewViewport(host platform.Host, opts Options) *Viewport {
	log := opts.Logger
	if log == nil {
		log = logger.Log
	}
	v := &Viewport{
		host:    host,
		opts:    opts,
		log:     log,
		mailbox: &Mailbox{},
	}

	loaderOpts := []loader.Option{loader.WithPost(v.mailbox.Post), loader.WithLogger(log)}
	if opts.Fetcher != nil {
		loaderOpts = append(loaderOpts, loader.WithFetcher(opts.Fetcher))
	}
	v.loader = loader.New(opts.Workers, loaderOpts...)

	v.baker = envmap.NewBaker(opts.CaptureSize, opts.IrradianceSize)
	v.baker.Log = log
	return v
}

// Session returns the mounted session, or nil.
func (v *Viewport) Session() *Session {
	return v.session
}

func (v *Viewport) Mailbox() *Mailbox {
	return v.mailbox
}

// Start mounts a new session into the container with the given id. A
// session that is already running is stopped first. Nothing is allocated
// when the container is missing; anything allocated before a later failure
// is released again.
func (v *Viewport) Start(containerID string) (err error) {
	if v.session != nil {
		if err := v.Stop(); err != nil {
			v.log.Warn("Previous session did not stop cleanly", zap.Error(err))
		}
	}

	container, ok := v.host.Lookup(containerID)
	if !ok {
		err := &MissingContainerError{ID: containerID}
		v.log.Error("Viewport not started", zap.Error(err))
		return err
	}

	var cleanup renderer.Unwind
	defer func() {
		if err != nil {
			err = multierr.Append(err, cleanup.Unwind())
		}
	}()

	// Repeated mounts into the same container start from an empty container.
	container.ClearChildren()
	width, height := container.ContentSize()

	rend, err := v.host.NewRenderer(width, height)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	cleanup.Add(rend.Dispose)

	canvas := rend.Canvas()
	container.AppendChild(canvas)
	cleanup.Add(func() error {
		container.RemoveChild(canvas)
		return nil
	})

	v.sessions++
	s := newSession(v, v.sessions, container, rend)
	cleanup.Add(func() error { return disposeScene(s.scene) })

	if err := v.baker.UpdateSun(context.Background(), s.scene, s.state.Sky, s.state.Water, v.opts.Sun); err != nil {
		return fmt.Errorf("bake environment: %w", err)
	}
	s.state.Environment = s.scene.Environment

	s.attachInput(v.host.Events())
	cleanup.Add(func() error {
		s.bridge.Detach()
		return nil
	})

	cleanup.Discard()
	v.session = s
	s.begin(v.host.Frames())
	s.requestAssets(v.loader, v.opts)

	v.log.Info("Session started",
		zap.Uint64("session", s.id),
		zap.String("container", containerID),
		zap.Int("width", width),
		zap.Int("height", height))
	return nil
}

// Resize matches the camera aspect and the renderer size to the container's
// current content box.
func (v *Viewport) Resize() error {
	s := v.session
	if s == nil {
		return ErrNoSession
	}
	width, height := s.container.ContentSize()
	if width <= 0 || height <= 0 {
		v.log.Debug("Ignoring empty content box", zap.Int("width", width), zap.Int("height", height))
		return nil
	}
	s.camera.SetAspectRatio(float32(width) / float32(height))
	s.renderer.SetSize(width, height)
	return nil
}

// Stop halts the frame loop and releases everything the session owns. It
// is a no-op without a session. Disposal keeps going past failures and the
// failures are returned together.
func (v *Viewport) Stop() error {
	s := v.session
	if s == nil {
		return nil
	}
	v.session = nil

	s.alive = false
	v.host.Frames().CancelFrame(s.frameID)
	s.bridge.Detach()
	s.behaviours.Clear()

	var err error
	err = multierr.Append(err, s.renderer.Dispose())
	s.container.RemoveChild(s.renderer.Canvas())
	err = multierr.Append(err, disposeScene(s.scene))

	// Loads that already finished for this session clean up after themselves.
	v.mailbox.Drain()

	v.log.Info("Session stopped", zap.Uint64("session", s.id), zap.Uint64("frames", s.frames), zap.Error(err))
	return err
}

// Close stops the session and shuts the loader down. The viewport cannot be
// started again afterwards.
func (v *Viewport) Close() error {
	err := v.Stop()
	v.loader.Close()
	v.mailbox.Drain()
	return err
}

// disposeScene releases the whole graph plus the installed environment.
func disposeScene(scn *renderer.Scene) error {
	err := disposeTree(scn.Root)
	if env := scn.SetEnvironment(nil); env != nil {
		err = multierr.Append(err, env.Dispose())
	}
	return err
}
