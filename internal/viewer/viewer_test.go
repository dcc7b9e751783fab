package viewer

import (
	"context"
	"io/fs"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walkthrough/internal/assets"
	"walkthrough/internal/config"
	"walkthrough/internal/listing"
	"walkthrough/internal/logger"
	"walkthrough/internal/movement"
	"walkthrough/internal/render"
	"walkthrough/internal/scene"
	"walkthrough/internal/scene/scenetest"
)

type fetcher struct {
	low bool
}

func (f *fetcher) SetLowTier(low bool) { f.low = low }

func (f *fetcher) FetchPanorama(_ context.Context, url string) (*scene.Texture, error) {
	return scenetest.Texture(url), nil
}

func (f *fetcher) FetchModel(_ context.Context, url string) (*scene.Node, error) {
	switch url {
	case "house.glb":
		g := scene.NewGroup("house")
		g.Add(
			scenetest.Quad("Floor", "Oak", 5),
			scenetest.Box("Wall_North", "Plaster", mgl32.Vec3{0, 1.5, -3}, mgl32.Vec3{3, 1.5, 0.1}),
		)
		return g, nil
	case "flat.glb":
		return scenetest.Model("flat", "Tile", "Tile"), nil
	}
	return nil, fs.ErrNotExist
}

type renderer struct {
	frames int
}

func (r *renderer) DrawScene(*scene.Scene, *scene.Camera)     { r.frames++ }
func (r *renderer) DrawOutline([]*scene.Node, *scene.Camera) {}
func (r *renderer) Present()                                 {}

type inspector struct {
	objects []*listing.InteractiveObject
}

func (i *inspector) Inspect(_ *listing.Listing, obj *listing.InteractiveObject) {
	i.objects = append(i.objects, obj)
}

func catalogue() *config.Catalogue {
	return &config.Catalogue{Listings: []config.ListingData{
		{
			Info:     config.Info{Name: "Lake House"},
			Panorama: config.Panorama{File: "lake.hdr"},
			Models:   []config.ModelRef{{File: "house.glb"}},
			Rules: config.Rules{
				{Pattern: "^Wall_", Options: []config.OptionData{{Material: "Plaster"}}},
			},
			Lights: []config.LightData{{Type: "ambient", Intensity: 1}},
			Spawn:  config.Spawn{Position: config.Vec3{X: 0.5, Y: 0.3}},
		},
		{
			Info:     config.Info{Name: "City Flat"},
			Panorama: config.Panorama{File: "city.hdr"},
			Models:   []config.ModelRef{{File: "flat.glb"}},
		},
		{
			Info:     config.Info{Name: "Broken"},
			Panorama: config.Panorama{File: "void.hdr"},
			Models:   []config.ModelRef{{File: "missing.glb"}},
		},
	}}
}

type fixture struct {
	app       *App
	ctx       *render.Context
	renderer  *renderer
	fetcher   *fetcher
	inspector *inspector
	now       time.Time
}

func newFixture() *fixture {
	f := &fixture{
		ctx:       render.New(logger.Discard()),
		renderer:  &renderer{},
		fetcher:   &fetcher{},
		inspector: &inspector{},
		now:       time.Unix(1000, 0),
	}
	f.ctx.SetScene(scene.New())
	f.ctx.SetRenderer(f.renderer)
	f.app = New(Options{
		Catalogue:    catalogue(),
		Context:      f.ctx,
		Loader:       assets.NewLoader(f.fetcher, assets.NoRetry, logger.Discard()),
		Fetcher:      f.fetcher,
		Inspector:    f.inspector,
		Log:          logger.Discard(),
		FlattenFloor: true,
	})
	return f
}

var center = mgl32.Vec2{400, 300}

func (f *fixture) tick(in FrameInput) {
	f.now = f.now.Add(16 * time.Millisecond)
	in.Width, in.Height, in.Now = 800, 600, f.now
	if in.Pointer == (mgl32.Vec2{}) {
		in.Pointer = center
	}
	f.app.Tick(0.016, in)
}

func (f *fixture) settle(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for f.app.Loading() {
		require.True(t, time.Now().Before(deadline), "listing did not load")
		f.tick(FrameInput{})
		time.Sleep(time.Millisecond)
	}
}

func TestSelectAndLoad(t *testing.T) {
	f := newFixture()
	assert.Error(t, f.app.Select(7))
	assert.Equal(t, -1, f.app.Index())

	require.NoError(t, f.app.Select(0))
	assert.True(t, f.app.Loading())
	assert.ErrorIs(t, f.app.Select(1), ErrLoading)
	assert.Equal(t, 0, f.app.Index())

	f.settle(t)
	require.True(t, f.app.Current().Loaded())
	assert.Equal(t, 1.0, f.app.Progress())
	assert.False(t, f.fetcher.low)
	assert.Positive(t, f.renderer.frames)

	cam := f.app.Controller().Camera()
	assert.InDelta(t, 0.5, cam.Position[0], 1e-6)
	assert.InDelta(t, 0.3+movement.PlayerHeight, cam.Position[1], 1e-6)
	assert.InDelta(t, 0, cam.Position[2], 1e-6)
}

func TestSwitchDisposesPrevious(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.app.Select(0))
	f.settle(t)
	first := f.app.Current()

	require.NoError(t, f.app.Select(1))
	assert.False(t, first.Loaded())
	f.settle(t)
	assert.Equal(t, 1, f.app.Index())
	assert.Equal(t, "City Flat", f.app.Current().Info().Name)
	s := f.ctx.Scene()
	require.Len(t, s.Children(), 1)
	assert.Equal(t, "flat", s.Children()[0].Children()[0].Name)
	assert.Equal(t, "city.hdr", s.Background.Name)
}

func TestLoadFailureAllowsNextSelect(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.app.Select(2))
	f.settle(t)
	assert.ErrorIs(t, f.app.Err(), fs.ErrNotExist)
	assert.False(t, f.app.Current().Loaded())

	require.NoError(t, f.app.Select(0))
	assert.NoError(t, f.app.Err())
	f.settle(t)
	assert.True(t, f.app.Current().Loaded())
}

func TestNoMovementWithoutListing(t *testing.T) {
	f := newFixture()
	before := f.app.Controller().Camera().Position
	f.tick(FrameInput{Move: movement.Input{Forward: true}})
	assert.Equal(t, before, f.app.Controller().Camera().Position)
}

func TestWalkIntoWall(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.app.Select(0))
	f.settle(t)

	for i := 0; i < 100; i++ {
		f.now = f.now.Add(30 * time.Millisecond)
		f.app.Tick(0.03, FrameInput{Move: movement.Input{Forward: true}, Pointer: center, Width: 800, Height: 600, Now: f.now})
	}
	z := f.app.Controller().Camera().Position[2]
	assert.Greater(t, z, float32(-2.9+0.2-1e-3), "the capsule stays in front of the wall")
	assert.Less(t, z, float32(-2.5))
}

func TestClickInspectsHoveredObject(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.app.Select(0))
	f.settle(t)

	f.tick(FrameInput{Pointer: mgl32.Vec2{401, 300}})
	require.NotNil(t, f.app.Hovered())
	assert.Equal(t, "Wall_North", f.app.Hovered().Node.Name)

	f.tick(FrameInput{Pressed: true})
	f.tick(FrameInput{Released: true})
	require.Len(t, f.inspector.objects, 1)
	assert.Equal(t, "Wall_North", f.inspector.objects[0].Node.Name)
	assert.Equal(t, []*scene.Node{f.inspector.objects[0].Node}, f.ctx.Highlighted())

	// Looking at the sky and clicking shows the general information.
	f.tick(FrameInput{Pointer: mgl32.Vec2{400, 1}})
	assert.Nil(t, f.app.Hovered())
	f.tick(FrameInput{Pointer: mgl32.Vec2{400, 1}, Pressed: true})
	f.tick(FrameInput{Pointer: mgl32.Vec2{400, 1}, Released: true})
	require.Len(t, f.inspector.objects, 2)
	assert.Nil(t, f.inspector.objects[1])
}

func TestDragLooksWithoutClicking(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.app.Select(0))
	f.settle(t)

	f.tick(FrameInput{Pressed: true})
	f.tick(FrameInput{Pointer: mgl32.Vec2{500, 300}})
	f.tick(FrameInput{Pointer: mgl32.Vec2{500, 300}, Released: true})
	assert.InDelta(t, -0.2, f.app.Controller().Camera().Yaw, 1e-5)
	assert.Empty(t, f.inspector.objects)

	f.tick(FrameInput{Pointer: mgl32.Vec2{600, 300}})
	assert.InDelta(t, -0.2, f.app.Controller().Camera().Yaw, 1e-5, "no look without a press")
}
