// Package glfwhost runs the viewport in a desktop window. The window is the
// single container; its framebuffer is the content box and the vsync'd swap
// is the display refresh the frame scheduler follows.
package glfwhost

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"Ocean3D/internal/logger"
	"Ocean3D/internal/platform"
	"Ocean3D/internal/renderer"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"
)

func init() {
	// GLFW event handling and the GL context must stay on the main thread.
	runtime.LockOSThread()
}

type Options struct {
	ContainerID string
	Width       int
	Height      int
	Title       string
	VSync       bool
}

type Host struct {
	platform.Listeners

	window    *glfw.Window
	container *windowContainer
	frames    *frameLoop
	log       *zap.Logger
}

// New initialises GLFW, opens the window and makes its GL 4.1 core context
// current. Call Close when done.
func New(opts Options, log *zap.Logger) (*Host, error) {
	if log == nil {
		log = logger.Log
	}
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("initialize glfw: %w", err)
	}

	glfw.WindowHint(glfw.Decorated, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.DepthBits, 24)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(opts.Width, opts.Height, opts.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create glfw window: %w", err)
	}
	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("initialize OpenGL: %w", err)
	}
	if opts.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}
	log.Info("OpenGL context ready",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))))

	h := &Host{
		window:    window,
		container: &windowContainer{id: opts.ContainerID, window: window},
		frames:    &frameLoop{},
		log:       log,
	}
	window.SetCursorPosCallback(h.cursorCallback)
	window.SetFramebufferSizeCallback(h.framebufferSizeCallback)
	return h, nil
}

func (h *Host) Lookup(id string) (platform.Container, bool) {
	if id != h.container.id {
		return nil, false
	}
	return h.container, true
}

func (h *Host) Events() platform.EventTarget {
	return &h.Listeners
}

func (h *Host) Frames() platform.FrameScheduler {
	return h.frames
}

func (h *Host) NewRenderer(width, height int) (renderer.Render, error) {
	return renderer.NewOpenGLRenderer(width, height)
}

// Run pumps events and runs requested frames until the window closes or ctx
// ends. Buffers are swapped only after a frame drew something.
func (h *Host) Run(ctx context.Context) error {
	for !h.window.ShouldClose() {
		if err := ctx.Err(); err != nil {
			return err
		}
		glfw.PollEvents()
		if h.frames.run() == 0 {
			// Nothing mounted; idle until the next event.
			glfw.WaitEventsTimeout(0.1)
			continue
		}
		h.window.SwapBuffers()
	}
	return nil
}

func (h *Host) Close() {
	h.window.Destroy()
	glfw.Terminate()
}

// Pointer coordinates are in screen units; scale them to framebuffer pixels
// so they share a space with the content box.
func (h *Host) cursorCallback(w *glfw.Window, xpos, ypos float64) {
	winW, winH := w.GetSize()
	fbW, fbH := w.GetFramebufferSize()
	if winW > 0 && winH > 0 {
		xpos *= float64(fbW) / float64(winW)
		ypos *= float64(fbH) / float64(winH)
	}
	h.Dispatch(platform.Event{Type: platform.PointerMove, X: xpos, Y: ypos})
}

func (h *Host) framebufferSizeCallback(_ *glfw.Window, width, height int) {
	h.log.Debug("Window resized", zap.Int("width", width), zap.Int("height", height))
	h.Dispatch(platform.Event{Type: platform.Resize, Width: width, Height: height})
}

type windowContainer struct {
	id       string
	window   *glfw.Window
	children []renderer.Canvas
}

func (c *windowContainer) ID() string {
	return c.id
}

func (c *windowContainer) ContentSize() (int, int) {
	return c.window.GetFramebufferSize()
}

func (c *windowContainer) AppendChild(canvas renderer.Canvas) {
	c.children = append(c.children, canvas)
}

func (c *windowContainer) RemoveChild(canvas renderer.Canvas) bool {
	for i, child := range c.children {
		if child == canvas {
			c.children = append(c.children[:i], c.children[i+1:]...)
			return true
		}
	}
	return false
}

// ClearChildren forgets old canvases and clears what they left on screen.
func (c *windowContainer) ClearChildren() {
	c.children = nil
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

func (c *windowContainer) Children() []renderer.Canvas {
	return c.children
}

type frameRequest struct {
	id platform.FrameID
	cb platform.FrameCallback
}

type frameLoop struct {
	next    platform.FrameID
	pending []frameRequest
}

func (f *frameLoop) RequestFrame(cb platform.FrameCallback) platform.FrameID {
	f.next++
	f.pending = append(f.pending, frameRequest{id: f.next, cb: cb})
	return f.next
}

func (f *frameLoop) CancelFrame(id platform.FrameID) {
	for i, r := range f.pending {
		if r.id == id {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			return
		}
	}
}

func (f *frameLoop) Now() time.Duration {
	return time.Duration(glfw.GetTime() * float64(time.Second))
}

func (f *frameLoop) run() int {
	now := f.Now()
	batch := f.pending
	f.pending = nil
	for _, r := range batch {
		r.cb(now)
	}
	return len(batch)
}
