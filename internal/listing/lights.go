package listing

import (
	"fmt"
	"image/color"
	"strings"

	"walkthrough/internal/config"
	"walkthrough/internal/scene"
)

// defaultDecay is the physically based falloff used when a point light does not set one.
const defaultDecay = 2

func buildLights(in []config.LightData) ([]*scene.Node, error) {
	out := make([]*scene.Node, 0, len(in))
	for i, d := range in {
		light, err := buildLight(d)
		if err != nil {
			return nil, fmt.Errorf("listing: light %d: %w", i, err)
		}
		out = append(out, scene.NewLightNode(fmt.Sprintf("%s_%d", light.Type, i), light))
	}
	return out, nil
}

func buildLight(d config.LightData) (*scene.Light, error) {
	c := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	if d.Color != "" {
		var err error
		if c, err = scene.ParseColor(d.Color); err != nil {
			return nil, err
		}
	}
	light := &scene.Light{
		Type:      scene.LightType(strings.ToLower(d.Type)),
		Color:     c,
		Intensity: d.Intensity,
	}
	if d.Position != nil {
		light.Position = d.Position.Vec()
	}
	castShadow := d.CastShadow == nil || *d.CastShadow

	switch light.Type {
	case scene.LightAmbient:
	case scene.LightDirectional:
		if d.Target != nil {
			light.Target = d.Target.Vec()
		}
		light.CastShadow = castShadow
		light.Shadow = scene.DefaultDirectionalShadow()
	case scene.LightPoint:
		light.Distance = d.Distance
		light.Decay = d.Decay
		if light.Decay == 0 {
			light.Decay = defaultDecay
		}
		light.CastShadow = castShadow
		light.Shadow = scene.DefaultPointShadow()
	default:
		return nil, fmt.Errorf("unknown type %q", d.Type)
	}
	return light, nil
}
