package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalogue = `
listings:
  - info:
      name: Lake House
      price: 450000
      rooms: 4
      size: 180.5
      preview: previews/lake.webp
    panorama:
      file: panoramas/lake.hdr
      rotation: {x: 0, y: 1.57, z: 0}
    models:
      - file: models/ground.glb
      - file: models/interior.glb
    rules:
      "^Wall_":
        - material: Plaster
          tints: ["#ffffff", "#d8cfc4"]
      "^Wall_North$":
        - material: Brick
          tints: []
        - material: Plaster
          tints: ["#ffffff"]
    lights:
      - type: ambient
        color: "#ffffff"
        intensity: 0.4
      - type: directional
        color: "#fff4e0"
        intensity: 2
        position: {x: 3, y: 8, z: 2}
        target: {x: 0, y: 0, z: 0}
    spawn:
      position: {x: 1, y: 0, z: 2}
      rotation: {x: 0, y: 3.14, z: 0}
`

func TestParseCatalogue(t *testing.T) {
	c, err := ParseCatalogue([]byte(sampleCatalogue))
	require.NoError(t, err)
	require.Len(t, c.Listings, 1)
	l := c.Listings[0]

	assert.Equal(t, "Lake House", l.Info.Name)
	assert.Equal(t, 4, l.Info.Rooms)
	assert.Equal(t, "panoramas/lake.hdr", l.Panorama.File)
	assert.Equal(t, mgl32.Vec3{0, 1.57, 0}, l.Panorama.Rotation.Vec())
	assert.Equal(t, []ModelRef{{File: "models/ground.glb"}, {File: "models/interior.glb"}}, l.Models)

	require.Len(t, l.Rules, 2)
	assert.Equal(t, "^Wall_", l.Rules[0].Pattern)
	assert.Equal(t, "^Wall_North$", l.Rules[1].Pattern)
	require.Len(t, l.Rules[1].Options, 2)
	assert.Equal(t, "Brick", l.Rules[1].Options[0].Material)

	require.Len(t, l.Lights, 2)
	assert.Nil(t, l.Lights[0].Position)
	require.NotNil(t, l.Lights[1].Target)
	assert.Equal(t, float32(8), l.Lights[1].Position.Y)
	assert.Equal(t, float32(3.14), l.Spawn.Rotation.Y)
}

func TestRulesSequenceForm(t *testing.T) {
	doc := `
listings:
  - panorama: {file: a.hdr}
    rules:
      - "^Door": [{material: Oak}]
      - "^Floor": [{material: Tile, tints: ["#000"]}]
`
	c, err := ParseCatalogue([]byte(doc))
	require.NoError(t, err)
	rules := c.Listings[0].Rules
	require.Len(t, rules, 2)
	assert.Equal(t, "^Door", rules[0].Pattern)
	assert.Equal(t, "^Floor", rules[1].Pattern)
	assert.Equal(t, []string{"#000"}, rules[1].Options[0].Tints)
}

func TestParseCatalogueErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", "listings: []", "no listings"},
		{"no panorama", "listings:\n  - models: [{file: a.glb}]", "missing panorama"},
		{"model without file", "listings:\n  - panorama: {file: a.hdr}\n    models: [{}]", "has no file"},
		{"scalar rules", "listings:\n  - panorama: {file: a.hdr}\n    rules: nope", "rules must be"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalogue([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadCatalogueJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.json")
	doc := `{"listings": [{"panorama": {"file": "p.hdr"}, "models": [{"file": "m.glb"}], "rules": {"^Sofa": [{"material": "Fabric", "tints": ["#112233"]}]}}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	c, err := LoadCatalogue(path)
	require.NoError(t, err)
	require.Len(t, c.Listings[0].Rules, 1)
	assert.Equal(t, "^Sofa", c.Listings[0].Rules[0].Pattern)

	_, err = LoadCatalogue(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
