package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

// Catalogue is the list of properties the viewer can show, in display order.
type Catalogue struct {
	Listings []ListingData `yaml:"listings"`
}

// ListingData is everything the viewer reads about one property.
type ListingData struct {
	Info     Info        `yaml:"info"`
	Panorama Panorama    `yaml:"panorama"`
	Models   []ModelRef  `yaml:"models"`
	Rules    Rules       `yaml:"rules"`
	Lights   []LightData `yaml:"lights"`
	Spawn    Spawn       `yaml:"spawn"`
}

// Info is the descriptive part of a listing, shown by the inspector and the listing selection.
type Info struct {
	Name        string  `yaml:"name"`
	Price       float64 `yaml:"price"`
	Rooms       int     `yaml:"rooms"`
	Size        float64 `yaml:"size"`
	Description string  `yaml:"description"`
	Preview     string  `yaml:"preview"`
}

// Panorama is the background image and its rotation (radians).
type Panorama struct {
	File     string `yaml:"file"`
	Rotation Vec3   `yaml:"rotation"`
}

type ModelRef struct {
	File string `yaml:"file"`
}

// Vec3 is an {x, y, z} mapping.
type Vec3 struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
	Z float32 `yaml:"z"`
}

// Vec returns v as an mgl32 vector.
func (v Vec3) Vec() mgl32.Vec3 {
	return mgl32.Vec3{v.X, v.Y, v.Z}
}

// OptionData is one material an interactive object can switch to, with its tint colors.
type OptionData struct {
	Material string   `yaml:"material"`
	Tints    []string `yaml:"tints"`
}

// Rule maps a mesh-name pattern to the options of the objects it matches.
type Rule struct {
	Pattern string
	Options []OptionData
}

// Rules keeps the order the rules were written in, which decides ties (the last matching rule wins).
type Rules []Rule

// UnmarshalYAML reads a mapping of pattern -> options, or a sequence of single-key mappings,
// preserving document order in both cases.
func (r *Rules) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		out, err := decodeRuleMapping(node)
		if err != nil {
			return err
		}
		*r = append(*r, out...)
		return nil
	case yaml.SequenceNode:
		for _, item := range node.Content {
			if item.Kind != yaml.MappingNode {
				return fmt.Errorf("config: line %d: rule must be a mapping", item.Line)
			}
			out, err := decodeRuleMapping(item)
			if err != nil {
				return err
			}
			*r = append(*r, out...)
		}
		return nil
	default:
		return fmt.Errorf("config: line %d: rules must be a mapping or a sequence", node.Line)
	}
}

func decodeRuleMapping(node *yaml.Node) ([]Rule, error) {
	out := make([]Rule, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		var opts []OptionData
		if err := value.Decode(&opts); err != nil {
			return nil, fmt.Errorf("config: rule %q: %w", key.Value, err)
		}
		out = append(out, Rule{Pattern: key.Value, Options: opts})
	}
	return out, nil
}

// LightData configures one light. Position and Target are used by directional lights, Distance and
// Decay by point lights. CastShadow defaults to true for directional and point lights.
type LightData struct {
	Type       string  `yaml:"type"`
	Color      string  `yaml:"color"`
	Intensity  float32 `yaml:"intensity"`
	Position   *Vec3   `yaml:"position"`
	Target     *Vec3   `yaml:"target"`
	Distance   float32 `yaml:"distance"`
	Decay      float32 `yaml:"decay"`
	CastShadow *bool   `yaml:"cast_shadow"`
}

// Spawn is where the player stands when a listing finishes loading.
// Rotation is applied yaw (Y) first, then pitch (X), then roll (Z).
type Spawn struct {
	Position Vec3 `yaml:"position"`
	Rotation Vec3 `yaml:"rotation"`
}

// ErrNoListings is returned for a catalogue without entries.
var ErrNoListings = errors.New("config: catalogue has no listings")

// LoadCatalogue reads a catalogue file. JSON is accepted too since it is valid YAML.
func LoadCatalogue(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read catalogue: %w", err)
	}
	return ParseCatalogue(data)
}

// ParseCatalogue decodes catalogue YAML and checks every listing names its assets.
func ParseCatalogue(data []byte) (*Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parse catalogue: %w", err)
	}
	if len(c.Listings) == 0 {
		return nil, ErrNoListings
	}
	for i, l := range c.Listings {
		if l.Panorama.File == "" {
			return nil, fmt.Errorf("config: listing %d (%s): missing panorama file", i, l.Info.Name)
		}
		for j, m := range l.Models {
			if m.File == "" {
				return nil, fmt.Errorf("config: listing %d (%s): model %d has no file", i, l.Info.Name, j)
			}
		}
	}
	return &c, nil
}
