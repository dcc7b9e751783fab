package scene

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
)

// LightType is one of the light kinds a listing can configure.
type LightType string

const (
	LightAmbient     LightType = "ambient"
	LightDirectional LightType = "directional"
	LightPoint       LightType = "point"
)

// Shadow holds the shadow-map quality parameters of a shadow-casting light.
// Bounds is the half extent of the orthographic shadow camera for directional lights.
type Shadow struct {
	MapSize     int
	Bias        float32
	NormalBias  float32
	BlurSamples int
	Bounds      float32
}

// DefaultDirectionalShadow is the shadow setup used for directional lights.
func DefaultDirectionalShadow() Shadow {
	return Shadow{
		MapSize:     4096,
		Bias:        -0.0001,
		NormalBias:  -0.0001,
		BlurSamples: 16,
		Bounds:      7,
	}
}

// DefaultPointShadow is the shadow setup used for point lights.
func DefaultPointShadow() Shadow {
	return Shadow{
		MapSize:     1024,
		Bias:        -0.0005,
		BlurSamples: 8,
	}
}

// Light is a light source. Target is used by directional lights; Distance and Decay by point lights.
type Light struct {
	Type       LightType
	Color      color.RGBA
	Intensity  float32
	Position   mgl32.Vec3
	Target     mgl32.Vec3
	Distance   float32
	Decay      float32
	CastShadow bool
	Shadow     Shadow
}
