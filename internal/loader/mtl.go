package loader

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"Ocean3D/internal/logger"
	"Ocean3D/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

type mtlMaterial struct {
	*renderer.Material
	mapRef string
}

// ParseMTL reads material definitions from an MTL stream.
func ParseMTL(r io.Reader) (map[string]*mtlMaterial, error) {
	var current *mtlMaterial
	materials := make(map[string]*mtlMaterial)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if fields[0] == "newmtl" {
			if len(fields) < 2 {
				logger.Log.Warn("Malformed material line", zap.String("line", line))
				continue
			}
			current = &mtlMaterial{Material: renderer.NewMaterial(fields[1], renderer.StandardMaterial)}
			materials[fields[1]] = current
			continue
		}
		if current == nil {
			continue
		}

		switch fields[0] {
		case "Kd":
			if len(fields) == 4 {
				current.Color = parseColor(fields[1:])
			}
		case "Ns":
			// Phong exponent to roughness.
			if len(fields) == 2 {
				ns := parseFloat(fields[1])
				current.Roughness = float32(math.Sqrt(2 / (float64(ns) + 2)))
			}
		case "Pr":
			if len(fields) == 2 {
				current.Roughness = parseFloat(fields[1])
			}
		case "Pm":
			if len(fields) == 2 {
				current.Metalness = parseFloat(fields[1])
			}
		case "d":
			if len(fields) == 2 {
				current.Opacity = parseFloat(fields[1])
			}
		case "Tr":
			if len(fields) == 2 {
				current.Opacity = 1 - parseFloat(fields[1])
			}
		case "map_Kd":
			// Options may precede the path; the path is last.
			if len(fields) >= 2 {
				current.mapRef = fields[len(fields)-1]
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return materials, nil
}

func parseColor(fields []string) mgl32.Vec3 {
	var color mgl32.Vec3
	for i, field := range fields {
		color[i] = parseFloat(field)
	}
	return color
}

func parseFloat(s string) float32 {
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		logger.Log.Warn("Error parsing material value", zap.String("value", s), zap.Error(err))
		return 0
	}
	return float32(f)
}
