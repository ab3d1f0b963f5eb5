package renderer

import (
	"Ocean3D/internal/logger"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"
)

// TextureStats provides debugging and profiling information
type TextureStats struct {
	Uploads        int
	Reuploads      int
	ActiveTextures int
}

type glTexture struct {
	id      uint32
	target  uint32
	version int
}

// TextureManager owns the GL copies of Texture values. A texture is uploaded
// on first use, re-uploaded when its Version changes, and deleted when the
// Texture is disposed or the manager is cleared.
type TextureManager struct {
	textures map[*Texture]*glTexture
	stats    TextureStats
}

func NewTextureManager() *TextureManager {
	return &TextureManager{
		textures: make(map[*Texture]*glTexture),
	}
}

// Bind uploads tex if needed and binds it to the given texture unit.
func (tm *TextureManager) Bind(tex *Texture, unit uint32) {
	entry := tm.ensure(tex)
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	if entry == nil {
		gl.BindTexture(gl.TEXTURE_2D, 0)
		return
	}
	gl.BindTexture(entry.target, entry.id)
}

func (tm *TextureManager) ensure(tex *Texture) *glTexture {
	if tex == nil || tex.Disposed() {
		return nil
	}
	entry, exists := tm.textures[tex]
	if exists && entry.version == tex.Version {
		return entry
	}
	if !exists {
		entry = &glTexture{}
		gl.GenTextures(1, &entry.id)
		tm.textures[tex] = entry
		tm.stats.Uploads++
		tex.OnDispose(func() error {
			tm.release(tex)
			return nil
		})
	} else {
		tm.stats.Reuploads++
	}
	entry.version = tex.Version

	if tex.IsCube() {
		entry.target = gl.TEXTURE_CUBE_MAP
		gl.BindTexture(gl.TEXTURE_CUBE_MAP, entry.id)
		size := int32(tex.Cube.Size)
		for face := 0; face < 6; face++ {
			gl.TexImage2D(gl.TEXTURE_CUBE_MAP_POSITIVE_X+uint32(face), 0, gl.RGB16F, size, size, 0, gl.RGB, gl.FLOAT, gl.Ptr(tex.Cube.Faces[face]))
		}
		gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
	} else if tex.Image != nil {
		entry.target = gl.TEXTURE_2D
		rgba := tex.Image
		gl.BindTexture(gl.TEXTURE_2D, entry.id)
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA,
			int32(rgba.Rect.Size().X), int32(rgba.Rect.Size().Y),
			0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(rgba.Pix))
		gl.GenerateMipmap(gl.TEXTURE_2D)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, glWrap(tex.WrapS))
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, glWrap(tex.WrapT))
	}

	logger.Log.Debug("Texture uploaded",
		zap.String("name", tex.Name),
		zap.Uint32("textureID", entry.id),
		zap.Int("version", tex.Version))
	return entry
}

func glWrap(w Wrap) int32 {
	switch w {
	case Repeat:
		return gl.REPEAT
	case MirroredRepeat:
		return gl.MIRRORED_REPEAT
	default:
		return gl.CLAMP_TO_EDGE
	}
}

func (tm *TextureManager) release(tex *Texture) {
	entry, ok := tm.textures[tex]
	if !ok {
		return
	}
	gl.DeleteTextures(1, &entry.id)
	delete(tm.textures, tex)
	logger.Log.Debug("Texture freed", zap.String("name", tex.Name), zap.Uint32("textureID", entry.id))
}

func (tm *TextureManager) GetStats() TextureStats {
	stats := tm.stats
	stats.ActiveTextures = len(tm.textures)
	return stats
}

// Clear deletes every GL texture the manager holds.
func (tm *TextureManager) Clear() {
	for _, entry := range tm.textures {
		gl.DeleteTextures(1, &entry.id)
	}
	tm.textures = make(map[*Texture]*glTexture)
	logger.Log.Info("Texture manager cleared")
}
