package renderer

// FrustumCullingEnabled toggles bounding-sphere culling of standard meshes.
var FrustumCullingEnabled = true

// Canvas is the output surface a renderer draws into. The host container
// owns its placement; the renderer owns its contents.
type Canvas interface {
	Size() (width, height int)
}

// Render is the backend contract the viewport drives once per frame.
type Render interface {
	// Canvas returns the output element to append into the host container.
	Canvas() Canvas
	// SetSize resizes the drawing buffer.
	SetSize(width, height int)
	Size() (width, height int)
	// Render draws scene from camera. It must not be called after Dispose.
	Render(scene *Scene, camera *Camera)
	// Dispose frees every GPU object the renderer created.
	Dispose() error
}

// Stats is a snapshot of what a renderer has done so far.
type Stats struct {
	Frames     uint64
	DrawCalls  uint64
	Geometries int
	Textures   int
}

// StatsReporter is implemented by backends that track Stats.
type StatsReporter interface {
	Stats() Stats
}
