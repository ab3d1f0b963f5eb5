package renderer

import (
	"errors"
	"fmt"
	"strings"

	"Ocean3D/internal/logger"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type glMesh struct {
	vao, vbo, ebo uint32
	count         int32
}

// renderTarget is an offscreen colour+depth framebuffer.
type renderTarget struct {
	fbo, color, depth uint32
	width, height     int32
}

type glCanvas struct {
	r *OpenGLRenderer
}

func (c glCanvas) Size() (int, int) {
	return c.r.width, c.r.height
}

// OpenGLRenderer draws a Scene into the current GL context's default
// framebuffer. The context must be current on the calling thread for every
// method, including Dispose.
type OpenGLRenderer struct {
	width, height int

	standard Shader
	water    Shader
	sky      Shader

	meshes   map[*Geometry]*glMesh
	textures *TextureManager
	mirrors  map[*Node]*renderTarget

	frames    uint64
	drawCalls uint64
	disposed  bool
}

func NewOpenGLRenderer(width, height int) (*OpenGLRenderer, error) {
	rend := &OpenGLRenderer{
		width:    width,
		height:   height,
		standard: newStandardShader(),
		water:    newWaterShader(),
		sky:      newSkyShader(),
		meshes:   make(map[*Geometry]*glMesh),
		textures: NewTextureManager(),
		mirrors:  make(map[*Node]*renderTarget),
	}
	for _, shader := range []*Shader{&rend.standard, &rend.water, &rend.sky} {
		if err := shader.Compile(); err != nil {
			rend.deleteShaders()
			return nil, err
		}
	}

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LEQUAL)
	gl.Viewport(0, 0, int32(width), int32(height))
	logger.Log.Info("OpenGL renderer initialized",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))))
	return rend, nil
}

func (rend *OpenGLRenderer) Canvas() Canvas {
	return glCanvas{r: rend}
}

func (rend *OpenGLRenderer) SetSize(width, height int) {
	rend.width, rend.height = width, height
	gl.Viewport(0, 0, int32(width), int32(height))
}

func (rend *OpenGLRenderer) Size() (int, int) {
	return rend.width, rend.height
}

func (rend *OpenGLRenderer) Stats() Stats {
	return Stats{
		Frames:     rend.frames,
		DrawCalls:  rend.drawCalls,
		Geometries: len(rend.meshes),
		Textures:   rend.textures.GetStats().ActiveTextures,
	}
}

func (rend *OpenGLRenderer) Render(scene *Scene, camera *Camera) {
	if rend.disposed || scene == nil || camera == nil {
		return
	}

	// Reflection passes first so the main pass can sample them.
	scene.Root.Traverse(func(n *Node) {
		if n.Visible && n.Geometry != nil && len(n.Materials) > 0 && n.Materials[0].Kind == WaterMaterial {
			rend.renderMirror(scene, camera, n)
		}
	})

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(rend.width), int32(rend.height))
	rend.drawScene(scene, camera, nil)
	rend.frames++
}

func (rend *OpenGLRenderer) drawScene(scene *Scene, camera *Camera, skip *Node) {
	gl.ClearColor(scene.Background.X(), scene.Background.Y(), scene.Background.Z(), 1.0)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	var frustum Frustum
	if FrustumCullingEnabled {
		frustum = camera.CalculateFrustum()
	}

	scene.Root.Traverse(func(n *Node) {
		if n == skip || !n.Visible || n.Geometry == nil || n.Geometry.Disposed() || len(n.Materials) == 0 {
			return
		}
		world := n.WorldMatrix()
		if FrustumCullingEnabled && n.Materials[0].Kind == StandardMaterial {
			center := world.Mul4x1(n.Geometry.BoundingSphereCenter.Vec4(1)).Vec3()
			scale := maxScale(n)
			if !frustum.IntersectsSphere(center, n.Geometry.BoundingSphereRadius*scale) {
				return
			}
		}
		rend.drawNode(scene, camera, n, world)
	})
}

func maxScale(n *Node) float32 {
	s := float32(1)
	for p := n; p != nil; p = p.parent {
		m := p.Scale.X()
		if p.Scale.Y() > m {
			m = p.Scale.Y()
		}
		if p.Scale.Z() > m {
			m = p.Scale.Z()
		}
		s *= m
	}
	return s
}

func (rend *OpenGLRenderer) drawNode(scene *Scene, camera *Camera, n *Node, world mgl32.Mat4) {
	mesh := rend.ensureMesh(n.Geometry)
	gl.BindVertexArray(mesh.vao)

	groups := n.Geometry.Groups
	if len(groups) == 0 {
		groups = []Group{{IndexStart: 0, IndexCount: mesh.count, MaterialIndex: 0}}
	}
	for _, group := range groups {
		idx := group.MaterialIndex
		if idx < 0 || idx >= len(n.Materials) {
			idx = 0
		}
		material := n.Materials[idx]
		shader := rend.bindMaterial(scene, camera, n, material, world)
		if shader == nil {
			continue
		}
		applySide(material.Side)
		gl.DrawElements(gl.TRIANGLES, group.IndexCount, gl.UNSIGNED_INT, gl.PtrOffset(int(group.IndexStart)*4))
		rend.drawCalls++
	}
	gl.BindVertexArray(0)
}

func applySide(side Side) {
	switch side {
	case DoubleSide:
		gl.Disable(gl.CULL_FACE)
	case BackSide:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.FRONT)
	default:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	}
}

func (rend *OpenGLRenderer) bindMaterial(scene *Scene, camera *Camera, n *Node, m *Material, world mgl32.Mat4) *Shader {
	var shader *Shader
	switch m.Kind {
	case WaterMaterial:
		shader = &rend.water
	case SkyMaterial:
		shader = &rend.sky
	default:
		shader = &rend.standard
	}
	shader.Use()
	u := shader.uniforms
	u.SetMat4("model", world)
	u.SetMat4("view", camera.GetViewMatrix())
	u.SetMat4("projection", camera.GetProjectionMatrix())

	switch m.Kind {
	case WaterMaterial:
		u.SetFloat("time", m.Float("time"))
		u.SetFloat("size", m.Float("size"))
		u.SetFloat("alpha", m.Float("alpha"))
		u.SetFloat("distortionScale", m.Float("distortionScale"))
		u.SetVec3("sunColor", m.Vec3("sunColor"))
		u.SetVec3("sunDirection", m.Vec3("sunDirection"))
		u.SetVec3("waterColor", m.Vec3("waterColor"))
		u.SetVec3("eye", camera.Position)

		normals, _ := m.Uniforms["normalSampler"].(*Texture)
		u.SetBool("hasNormalSampler", normals != nil && !normals.Disposed())
		rend.textures.Bind(normals, 1)
		u.SetInt("normalSampler", 1)

		gl.ActiveTexture(gl.TEXTURE0)
		if target, ok := rend.mirrors[n]; ok {
			gl.BindTexture(gl.TEXTURE_2D, target.color)
			if tm, ok := m.Uniforms["textureMatrix"].(mgl32.Mat4); ok {
				u.SetMat4("textureMatrix", tm)
			}
		} else {
			gl.BindTexture(gl.TEXTURE_2D, 0)
		}
		u.SetInt("mirrorSampler", 0)
	case SkyMaterial:
		u.SetVec3("sunPosition", m.Vec3("sunPosition"))
		u.SetFloat("rayleigh", m.Float("rayleigh"))
		u.SetFloat("turbidity", m.Float("turbidity"))
		u.SetFloat("mieCoefficient", m.Float("mieCoefficient"))
		u.SetFloat("mieDirectionalG", m.Float("mieDirectionalG"))
		u.SetVec3("up", mgl32.Vec3{0, 1, 0})
		u.SetVec3("cameraPos", camera.Position)
	default:
		u.SetVec3("baseColor", m.Color)
		u.SetFloat("metalness", m.Metalness)
		u.SetFloat("roughness", m.Roughness)
		u.SetFloat("opacity", m.Opacity)
		u.SetVec3("cameraPos", camera.Position)
		u.SetBool("hasMap", m.Map != nil && !m.Map.Disposed())
		rend.textures.Bind(m.Map, 0)
		u.SetInt("colorMap", 0)

		env := scene.Environment
		hasEnv := env != nil && env.Irradiance != nil && !env.Irradiance.Disposed()
		u.SetBool("hasEnvironment", hasEnv)
		if hasEnv {
			rend.textures.Bind(env.Irradiance, 2)
			rend.textures.Bind(env.Radiance, 3)
		}
		u.SetInt("irradianceMap", 2)
		u.SetInt("radianceMap", 3)
	}
	return shader
}

func (rend *OpenGLRenderer) renderMirror(scene *Scene, camera *Camera, water *Node) {
	world := water.WorldMatrix()
	point := world.Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3()
	normal := world.Mul4x1(mgl32.Vec4{0, 0, 1, 0}).Vec3().Normalize()

	mirror, visible := ReflectCamera(camera, point, normal)
	if !visible {
		return
	}
	m := water.Materials[0]
	m.SetUniform("textureMatrix", MirrorTextureMatrix(mirror))

	target := rend.mirrors[water]
	if target == nil {
		w, h := int32(512), int32(512)
		if v, ok := m.Uniforms["textureWidth"].(int32); ok && v > 0 {
			w = v
		}
		if v, ok := m.Uniforms["textureHeight"].(int32); ok && v > 0 {
			h = v
		}
		var err error
		target, err = newRenderTarget(w, h)
		if err != nil {
			logger.Log.Error("Could not create reflection target", zap.String("node", water.Name), zap.Error(err))
			return
		}
		rend.mirrors[water] = target
		water.Geometry.OnDispose(func() error {
			rend.releaseMirror(water)
			return nil
		})
	}

	gl.BindFramebuffer(gl.FRAMEBUFFER, target.fbo)
	gl.Viewport(0, 0, target.width, target.height)
	rend.drawScene(scene, mirror, water)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

func newRenderTarget(width, height int32) (*renderTarget, error) {
	t := &renderTarget{width: width, height: height}
	gl.GenFramebuffers(1, &t.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)

	gl.GenTextures(1, &t.color)
	gl.BindTexture(gl.TEXTURE_2D, t.color)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, width, height, 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.color, 0)

	gl.GenRenderbuffers(1, &t.depth)
	gl.BindRenderbuffer(gl.RENDERBUFFER, t.depth)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, width, height)
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, t.depth)

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		t.delete()
		return nil, fmt.Errorf("framebuffer incomplete: 0x%x", status)
	}
	return t, nil
}

func (t *renderTarget) delete() {
	gl.DeleteFramebuffers(1, &t.fbo)
	gl.DeleteTextures(1, &t.color)
	gl.DeleteRenderbuffers(1, &t.depth)
}

func (rend *OpenGLRenderer) releaseMirror(n *Node) {
	if t, ok := rend.mirrors[n]; ok {
		t.delete()
		delete(rend.mirrors, n)
	}
}

func (rend *OpenGLRenderer) ensureMesh(g *Geometry) *glMesh {
	if mesh, ok := rend.meshes[g]; ok {
		return mesh
	}
	mesh := &glMesh{count: int32(len(g.Indices))}
	gl.GenVertexArrays(1, &mesh.vao)
	gl.BindVertexArray(mesh.vao)

	gl.GenBuffers(1, &mesh.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, mesh.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(g.InterleavedData)*4, gl.Ptr(g.InterleavedData), gl.STATIC_DRAW)

	gl.GenBuffers(1, &mesh.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, mesh.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(g.Indices)*4, gl.Ptr(g.Indices), gl.STATIC_DRAW)

	stride := int32(VertexStride * 4)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(1, 2, gl.FLOAT, false, stride, gl.PtrOffset(3*4))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(2, 3, gl.FLOAT, false, stride, gl.PtrOffset(5*4))
	gl.EnableVertexAttribArray(2)
	gl.BindVertexArray(0)

	rend.meshes[g] = mesh
	g.OnDispose(func() error {
		return rend.releaseMesh(g)
	})
	return mesh
}

func (rend *OpenGLRenderer) releaseMesh(g *Geometry) error {
	mesh, ok := rend.meshes[g]
	if !ok {
		return nil
	}
	gl.DeleteVertexArrays(1, &mesh.vao)
	gl.DeleteBuffers(1, &mesh.vbo)
	gl.DeleteBuffers(1, &mesh.ebo)
	delete(rend.meshes, g)
	return glError("delete mesh " + g.Name)
}

func (rend *OpenGLRenderer) deleteShaders() {
	rend.standard.Delete()
	rend.water.Delete()
	rend.sky.Delete()
}

// Dispose frees every GL object this renderer created.
func (rend *OpenGLRenderer) Dispose() error {
	if rend.disposed {
		return ErrRendererDisposed
	}
	rend.disposed = true

	var err error
	for g := range rend.meshes {
		err = multierr.Append(err, rend.releaseMesh(g))
	}
	for n := range rend.mirrors {
		rend.releaseMirror(n)
	}
	rend.textures.Clear()
	rend.deleteShaders()
	err = multierr.Append(err, glError("dispose renderer"))
	logger.Log.Info("OpenGL renderer disposed", zap.Uint64("frames", rend.frames))
	return err
}

func glError(op string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("%s: gl error 0x%x", op, code)
	}
	return nil
}

func GenShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	cSources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, cSources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)

		logger.Log.Error("Failed to compile", zap.Uint32("shaderType", shaderType), zap.String("log", log))
		return 0, errors.New(strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}

func GenShaderProgram(vertexShader, fragmentShader uint32) (uint32, error) {
	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	gl.DetachShader(program, vertexShader)
	gl.DeleteShader(vertexShader)
	gl.DetachShader(program, fragmentShader)
	gl.DeleteShader(fragmentShader)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)

		logger.Log.Error("Failed to link program", zap.String("log", log))
		return 0, errors.New(strings.TrimRight(log, "\x00"))
	}
	return program, nil
}
