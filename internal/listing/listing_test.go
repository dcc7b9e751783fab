package listing

import (
	"context"
	"image/color"
	"io/fs"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walkthrough/internal/assets"
	"walkthrough/internal/collider"
	"walkthrough/internal/config"
	"walkthrough/internal/logger"
	"walkthrough/internal/render"
	"walkthrough/internal/scene"
	"walkthrough/internal/scene/scenetest"
)

type fetcher struct {
	models map[string]func() *scene.Node
	gate   chan struct{}
}

func (f *fetcher) FetchPanorama(ctx context.Context, url string) (*scene.Texture, error) {
	if f.gate != nil {
		<-f.gate
	}
	return scenetest.Texture(url), nil
}

func (f *fetcher) FetchModel(ctx context.Context, url string) (*scene.Node, error) {
	if f.gate != nil {
		<-f.gate
	}
	build, ok := f.models[url]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return build(), nil
}

func house() *scene.Node {
	g := scene.NewGroup("house")
	g.Add(
		scenetest.Quad("Floor", "Oak", 5),
		scenetest.Box("Wall_North", "Plaster", mgl32.Vec3{0, 1.5, -3}, mgl32.Vec3{3, 1.5, 0.1}),
		scenetest.Box("Wall_South", "Plaster", mgl32.Vec3{0, 1.5, 3}, mgl32.Vec3{3, 1.5, 0.1}),
		scenetest.Box("Chimney", "Brick", mgl32.Vec3{4, 2, 0}, mgl32.Vec3{0.5, 2, 0.5}),
		scenetest.Quad("Window", "Glass", 0.5),
	)
	return g
}

func newFetcher() *fetcher {
	return &fetcher{models: map[string]func() *scene.Node{
		"house.glb": house,
		"sofa.glb":  func() *scene.Node { return scenetest.Model("sofa", "Fabric", "Fabric") },
	}}
}

type player struct {
	pos, rot mgl32.Vec3
	resets   int
}

func (p *player) Reset(pos, rot mgl32.Vec3) {
	p.pos, p.rot = pos, rot
	p.resets++
}

type inspector struct {
	objects []*InteractiveObject
}

func (i *inspector) Inspect(_ *Listing, obj *InteractiveObject) {
	i.objects = append(i.objects, obj)
}

type fixture struct {
	ctx       *render.Context
	loader    *assets.Loader
	fetcher   *fetcher
	player    *player
	inspector *inspector
	failed    []error
}

func newFixture() *fixture {
	f := &fixture{
		ctx:       render.New(logger.Discard()),
		fetcher:   newFetcher(),
		player:    &player{},
		inspector: &inspector{},
	}
	f.ctx.SetScene(scene.New())
	f.loader = assets.NewLoader(f.fetcher, assets.NoRetry, logger.Discard())
	return f
}

func (f *fixture) deps() Deps {
	return Deps{
		Loader:    f.loader,
		Context:   f.ctx,
		Player:    f.player,
		Inspector: f.inspector,
		Log:       logger.Discard(),
		OnFailed:  func(err error) { f.failed = append(f.failed, err) },
	}
}

func (f *fixture) wait(t *testing.T) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return f.loader.Wait(ctx)
}

func baseData() config.ListingData {
	return config.ListingData{
		Info:     config.Info{Name: "Lake House", Price: 450000, Rooms: 4, Size: 180},
		Panorama: config.Panorama{File: "lake.hdr", Rotation: config.Vec3{Y: 1.5}},
		Models:   []config.ModelRef{{File: "house.glb"}, {File: "sofa.glb"}},
		Lights: []config.LightData{
			{Type: "ambient", Color: "#ffffff", Intensity: 0.5},
			{Type: "directional", Color: "#fff4e0", Intensity: 3, Position: &config.Vec3{X: -1, Y: 4, Z: 2}},
		},
		Spawn: config.Spawn{Position: config.Vec3{X: 1, Z: 2}, Rotation: config.Vec3{Y: 0.5}},
	}
}

func withRules() config.ListingData {
	d := baseData()
	d.Rules = config.Rules{
		{Pattern: "^Wall_", Options: []config.OptionData{{Material: "Plaster", Tints: []string{"#ffffff", "#c0ffee"}}}},
		{Pattern: "^Wall_North$", Options: []config.OptionData{{Material: "Brick"}, {Material: "Plaster"}}},
		{Pattern: "^Chimney$", Options: []config.OptionData{{Material: "Marble"}}},
	}
	return d
}

func find(root *scene.Node, name string) *scene.Node {
	var out *scene.Node
	root.Traverse(func(n *scene.Node) {
		if out == nil && n.Name == name {
			out = n
		}
	})
	return out
}

func TestLoadEndToEnd(t *testing.T) {
	f := newFixture()
	s := f.ctx.Scene()

	l, err := New(baseData(), f.deps())
	require.NoError(t, err)
	assert.Len(t, s.Children(), 2, "lights are added before the assets arrive")
	assert.Equal(t, render.Listing(l), f.ctx.Listing())
	assert.False(t, l.Loaded())
	assert.Nil(t, l.Collider())
	assert.Empty(t, l.Intersection(collider.Ray{Origin: mgl32.Vec3{0, 5, 0}, Dir: mgl32.Vec3{0, -1, 0}}))

	require.NoError(t, f.wait(t))
	require.True(t, l.Loaded())
	assert.Empty(t, f.failed)

	require.NotNil(t, s.Background)
	assert.Equal(t, "lake.hdr", s.Background.Name)
	assert.Equal(t, scene.MappingEquirectangular, s.Background.Mapping)
	assert.Equal(t, mgl32.Vec3{0, 1.5, 0}, s.BackgroundRotation)

	require.Len(t, s.Children(), 3)
	assert.Same(t, l.Root(), s.Children()[2])
	models := l.Root().Children()
	require.Len(t, models, 2)
	assert.Equal(t, "house", models[0].Name, "models keep request order")
	assert.Equal(t, "sofa", models[1].Name)

	assert.Equal(t, 1, f.player.resets)
	assert.Equal(t, mgl32.Vec3{1, 0, 2}, f.player.pos)
	assert.Equal(t, mgl32.Vec3{0, 0.5, 0}, f.player.rot)

	require.NotNil(t, l.Collider())
	assert.Greater(t, l.Collider().Len(), 0)
	_, hit := l.Collider().SweepCapsule(collider.Capsule{
		Start: mgl32.Vec3{1.3, 0.1, 0.4}, End: mgl32.Vec3{1.3, 1.9, 0.4}, Radius: 0.2,
	})
	assert.True(t, hit, "floor is indexed")
	_, hit = l.Collider().SweepCapsule(collider.Capsule{
		Start: mgl32.Vec3{0, 10, 0}, End: mgl32.Vec3{0, 11.8, 0}, Radius: 0.2,
	})
	assert.False(t, hit, "open space above the house is free")

	assert.Empty(t, l.Objects(), "no rules, nothing interactive")
	assert.Empty(t, l.Intersection(collider.Ray{Origin: mgl32.Vec3{0.7, 1, 10}, Dir: mgl32.Vec3{0, 0, -1}}))
}

func TestShadowFlags(t *testing.T) {
	f := newFixture()
	l, err := New(baseData(), f.deps())
	require.NoError(t, err)
	require.NoError(t, f.wait(t))

	l.Root().Traverse(func(n *scene.Node) {
		if n.Mesh == nil {
			return
		}
		assert.True(t, n.Mesh.ReceiveShadow, n.Name)
		assert.Equal(t, n.Name != "Window", n.Mesh.CastShadow, n.Name)
	})
}

func TestRegistryFirstSeenWins(t *testing.T) {
	f := newFixture()
	l, err := New(withRules(), f.deps())
	require.NoError(t, err)
	require.NoError(t, f.wait(t))

	for _, name := range []string{"Oak", "Plaster", "Brick", "Glass", "Fabric"} {
		_, ok := l.Material(name)
		assert.True(t, ok, name)
	}
	plaster, _ := l.Material("Plaster")
	north := find(l.Root(), "Wall_North")
	assert.NotSame(t, north.Mesh.Material(), plaster, "the registry holds clones")
	assert.Equal(t, "Plaster", plaster.Name)

	fabric, _ := l.Material("Fabric")
	sofa := l.Root().Children()[1]
	assert.NotSame(t, sofa.Children()[0].Mesh.Material(), fabric)
	assert.NotSame(t, sofa.Children()[1].Mesh.Material(), fabric)
}

func TestInteractiveObjects(t *testing.T) {
	f := newFixture()
	l, err := New(withRules(), f.deps())
	require.NoError(t, err)
	require.NoError(t, f.wait(t))

	north, ok := l.Object(find(l.Root(), "Wall_North"))
	require.True(t, ok)
	south, ok := l.Object(find(l.Root(), "Wall_South"))
	require.True(t, ok)
	_, ok = l.Object(find(l.Root(), "Chimney"))
	assert.False(t, ok, "options naming unknown materials are dropped")
	_, ok = l.Object(find(l.Root(), "Floor"))
	assert.False(t, ok)
	assert.Len(t, l.Objects(), 2)

	// The last matching rule wins.
	require.Len(t, north.Options, 2)
	assert.Equal(t, "Brick", north.Options[0].Material.Name)
	assert.Equal(t, "Plaster", north.Options[1].Material.Name)
	require.Len(t, south.Options, 1)
	assert.Equal(t, []color.RGBA{{255, 255, 255, 255}, {0xc0, 0xff, 0xee, 255}}, south.Options[0].Tints)

	// Objects offering the same material share the registry entry.
	plaster, _ := l.Material("Plaster")
	assert.Same(t, plaster, north.Options[1].Material)
	assert.Same(t, plaster, south.Options[0].Material)
	south.Options[0].Material.Color = color.RGBA{R: 10, A: 255}
	assert.Equal(t, color.RGBA{R: 10, A: 255}, north.Options[1].Material.Color)
}

func TestIntersectionNearestFirst(t *testing.T) {
	f := newFixture()
	l, err := New(withRules(), f.deps())
	require.NoError(t, err)
	require.NoError(t, f.wait(t))

	hits := l.Intersection(collider.Ray{Origin: mgl32.Vec3{0.7, 1, 10}, Dir: mgl32.Vec3{0, 0, -1}})
	require.Len(t, hits, 2)
	assert.Equal(t, "Wall_South", hits[0].Object.Node.Name)
	assert.InDelta(t, 6.9, hits[0].Distance, 1e-4)
	assert.Equal(t, "Wall_North", hits[1].Object.Node.Name)
	assert.InDelta(t, 12.9, hits[1].Distance, 1e-4)

	assert.Empty(t, l.Intersection(collider.Ray{Origin: mgl32.Vec3{0.7, 1, 0}, Dir: mgl32.Vec3{1, 0, 0}}),
		"the chimney is hit but is not interactive")
}

func TestInspect(t *testing.T) {
	f := newFixture()
	l, err := New(withRules(), f.deps())
	require.NoError(t, err)
	require.NoError(t, f.wait(t))

	north := find(l.Root(), "Wall_North")
	l.Inspect(north)
	require.Len(t, f.inspector.objects, 1)
	assert.Same(t, north, f.inspector.objects[0].Node)
	assert.Equal(t, []*scene.Node{north}, f.ctx.Highlighted())

	l.Inspect(find(l.Root(), "Floor"))
	require.Len(t, f.inspector.objects, 2)
	assert.Nil(t, f.inspector.objects[1])
	assert.Empty(t, f.ctx.Highlighted())
}

func TestApplyOption(t *testing.T) {
	f := newFixture()
	l, err := New(withRules(), f.deps())
	require.NoError(t, err)
	require.NoError(t, f.wait(t))

	north := find(l.Root(), "Wall_North")
	require.NoError(t, l.ApplyOption(north, 0, -1))
	brick, _ := l.Material("Brick")
	assert.Equal(t, "Brick", north.Mesh.Material().Name)
	assert.NotSame(t, brick, north.Mesh.Material(), "objects get a private copy")

	south := find(l.Root(), "Wall_South")
	require.NoError(t, l.ApplyOption(south, 0, 1))
	assert.Equal(t, color.RGBA{0xc0, 0xff, 0xee, 255}, south.Mesh.Material().Color)
	plaster, _ := l.Material("Plaster")
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, plaster.Color, "the registry entry is untouched")

	assert.ErrorIs(t, l.ApplyOption(find(l.Root(), "Floor"), 0, -1), ErrNotInteractive)
	assert.Error(t, l.ApplyOption(north, 5, -1))
	assert.Error(t, l.ApplyOption(south, 0, 9))
}

func TestDisposeReleasesListing(t *testing.T) {
	f := newFixture()
	s := f.ctx.Scene()
	dev := scenetest.NewDevice()
	l, err := New(withRules(), f.deps())
	require.NoError(t, err)
	require.NoError(t, f.wait(t))

	require.NoError(t, scenetest.UploadAll(dev, s))
	for _, name := range []string{"Oak", "Plaster", "Brick", "Glass", "Fabric"} {
		m, _ := l.Material(name)
		require.NoError(t, m.Upload(dev))
	}
	require.NoError(t, l.ApplyOption(find(l.Root(), "Wall_North"), 0, -1))
	require.NoError(t, scenetest.UploadAll(dev, s))
	require.NotZero(t, dev.Live())

	l.Dispose()
	assert.Equal(t, 0, dev.Live(), "live resources: %v", dev.LiveByKind())
	assert.Equal(t, 0, dev.DoubleFrees)
	assert.Empty(t, s.Children())
	assert.Nil(t, s.Background)
	assert.False(t, l.Loaded())
	assert.Nil(t, f.ctx.Listing())
	assert.Empty(t, l.Intersection(collider.Ray{Origin: mgl32.Vec3{0.7, 1, 10}, Dir: mgl32.Vec3{0, 0, -1}}))

	assert.NotPanics(t, l.Dispose)
	assert.Equal(t, 0, dev.DoubleFrees)
	assert.ErrorIs(t, l.ApplyOption(find(l.Root(), "Wall_North"), 0, -1), ErrDisposed)
}

func TestNextListingAfterDispose(t *testing.T) {
	f := newFixture()
	first, err := New(baseData(), f.deps())
	require.NoError(t, err)
	require.NoError(t, f.wait(t))
	first.Dispose()

	second, err := New(withRules(), f.deps())
	require.NoError(t, err)
	require.NoError(t, f.wait(t))
	assert.True(t, second.Loaded())
	assert.Len(t, f.ctx.Scene().Children(), 3)
}

func TestSecondListingWhileLoading(t *testing.T) {
	f := newFixture()
	f.fetcher.gate = make(chan struct{})
	_, err := New(baseData(), f.deps())
	require.NoError(t, err)

	_, err = New(baseData(), f.deps())
	assert.ErrorIs(t, err, assets.ErrBatchInFlight)
	close(f.fetcher.gate)
	require.NoError(t, f.wait(t))
	assert.Len(t, f.ctx.Scene().Children(), 3, "only the first listing's lights and models")
}

func TestLoadFailure(t *testing.T) {
	f := newFixture()
	d := baseData()
	d.Models = append(d.Models, config.ModelRef{File: "missing.glb"})
	l, err := New(d, f.deps())
	require.NoError(t, err)

	require.Error(t, f.wait(t))
	require.Len(t, f.failed, 1)
	assert.ErrorIs(t, f.failed[0], fs.ErrNotExist)
	assert.Equal(t, f.failed[0], l.Err())
	assert.False(t, l.Loaded())
	assert.Nil(t, l.Collider())

	assert.NotPanics(t, l.Dispose)
	assert.Empty(t, f.ctx.Scene().Children())
}

type recordingLoader struct {
	requests []string
}

func (r *recordingLoader) Request(kind assets.Kind, url string) error {
	r.requests = append(r.requests, url)
	return nil
}
func (r *recordingLoader) OnBatchComplete(func(assets.Result)) {}
func (r *recordingLoader) OnBatchFailed(func(error))           {}

func TestConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(d *config.ListingData)
	}{
		{"invalid pattern", func(d *config.ListingData) {
			d.Rules = config.Rules{{Pattern: "Wall_[", Options: []config.OptionData{{Material: "Plaster"}}}}
		}},
		{"invalid tint", func(d *config.ListingData) {
			d.Rules = config.Rules{{Pattern: "Wall", Options: []config.OptionData{{Material: "Plaster", Tints: []string{"#12"}}}}}
		}},
		{"unknown light", func(d *config.ListingData) {
			d.Lights = append(d.Lights, config.LightData{Type: "spot"})
		}},
		{"invalid light color", func(d *config.ListingData) {
			d.Lights[0].Color = "white"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := render.New(logger.Discard())
			ctx.SetScene(scene.New())
			loader := &recordingLoader{}
			d := baseData()
			tt.modify(&d)

			_, err := New(d, Deps{Loader: loader, Context: ctx, Log: logger.Discard()})
			assert.Error(t, err)
			assert.Empty(t, loader.requests, "nothing is requested")
			assert.Empty(t, ctx.Scene().Children(), "no lights are added")
			assert.Nil(t, ctx.Listing())
		})
	}

	_, err := New(baseData(), Deps{Loader: &recordingLoader{}, Context: render.New(logger.Discard())})
	assert.ErrorIs(t, err, ErrNoScene)
}

func TestLights(t *testing.T) {
	no := false
	nodes, err := buildLights([]config.LightData{
		{Type: "Ambient", Intensity: 0.4},
		{Type: "directional", Color: "#ffeedd", Intensity: 2, Position: &config.Vec3{Y: 5}, Target: &config.Vec3{X: 1}},
		{Type: "point", Intensity: 10, Position: &config.Vec3{Y: 2.5}, Distance: 8},
		{Type: "point", Intensity: 10, Decay: 1, CastShadow: &no},
	})
	require.NoError(t, err)
	require.Len(t, nodes, 4)

	ambient := nodes[0].Light
	assert.Equal(t, scene.LightAmbient, ambient.Type)
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, ambient.Color)
	assert.False(t, ambient.CastShadow)

	dir := nodes[1].Light
	assert.True(t, dir.CastShadow)
	assert.Equal(t, scene.DefaultDirectionalShadow(), dir.Shadow)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, dir.Target)
	assert.Equal(t, mgl32.Vec3{0, 5, 0}, nodes[1].Position)

	point := nodes[2].Light
	assert.Equal(t, float32(8), point.Distance)
	assert.Equal(t, float32(2), point.Decay)
	assert.Equal(t, scene.DefaultPointShadow(), point.Shadow)
	assert.False(t, nodes[3].Light.CastShadow)
	assert.Equal(t, float32(1), nodes[3].Light.Decay)
}
