// Package scene composes the ocean scene graph: water and sky once at
// startup, the floating model once it has loaded.
package scene

import (
	"errors"

	"Ocean3D/internal/renderer"
	"Ocean3D/internal/sky"
	"Ocean3D/internal/water"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	ErrModelAlreadyAttached = errors.New("model already attached")
	ErrNilModel             = errors.New("model node is nil")
)

// ModelScale is the uniform scale applied to the attached model.
const ModelScale = 10

var (
	// LookAt is the point the camera aims at every frame.
	LookAt = mgl32.Vec3{0, 10, 0}
	// CameraStart is where the camera sits when the scene is built.
	CameraStart = mgl32.Vec3{30, 30, 100}
)

// State is everything a frame may touch. Environment and Model are nil
// until baked and loaded.
type State struct {
	Water       *water.Surface
	Sky         *sky.Sky
	Environment *renderer.Environment
	Model       *renderer.Node
}

func (s *State) HasModel() bool {
	return s.Model != nil
}

type Composer struct {
	Scene *renderer.Scene
	State State

	water    water.Options
	sky      sky.Params
	skyScale float32
}

func NewComposer(scn *renderer.Scene, waterOpts water.Options, skyParams sky.Params) *Composer {
	return &Composer{
		Scene:    scn,
		water:    waterOpts,
		sky:      skyParams,
		skyScale: sky.DefaultScale,
	}
}

// BuildStaticScene adds the water and the sky to the root and places the
// camera. Later calls return the existing state.
func (c *Composer) BuildStaticScene(camera *renderer.Camera) *State {
	if c.State.Water != nil {
		return &c.State
	}

	c.State.Water = water.NewSurface(c.water)
	c.State.Sky = sky.New(c.skyScale, c.sky)
	c.Scene.Add(c.State.Water.Node)
	c.Scene.Add(c.State.Sky.Node)

	if camera != nil {
		camera.Position = CameraStart
		camera.LookAt(LookAt)
		// The far plane has to reach the corners of the sky box.
		if reach := c.skyScale; camera.Far < reach {
			camera.Far = reach
			camera.UpdateProjection()
		}
	}
	return &c.State
}

// AttachModel places node at the origin with ModelScale and adds it to the
// root. The model slot can be filled once.
func (c *Composer) AttachModel(node *renderer.Node) error {
	if node == nil {
		return ErrNilModel
	}
	if c.State.Model != nil {
		return ErrModelAlreadyAttached
	}
	node.Position = mgl32.Vec3{}
	node.SetScalar(ModelScale)
	c.Scene.Add(node)
	c.State.Model = node
	return nil
}
