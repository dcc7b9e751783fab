// Package listing turns one catalogue entry into a live scene: it requests the assets, attaches
// them when the batch completes, and answers picking and material switching for the inspector.
package listing

import (
	"errors"
	"fmt"
	"image/color"
	"regexp"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"walkthrough/internal/assets"
	"walkthrough/internal/collider"
	"walkthrough/internal/config"
	"walkthrough/internal/logger"
	"walkthrough/internal/render"
	"walkthrough/internal/scene"
)

// DefaultNoShadowMaterial is the material name whose meshes receive but do not cast shadows.
const DefaultNoShadowMaterial = "Glass"

var (
	// ErrDisposed is returned by operations on a disposed listing.
	ErrDisposed = errors.New("listing: disposed")
	// ErrNotInteractive is returned when an option is applied to a node no rule matched.
	ErrNotInteractive = errors.New("listing: node is not interactive")
	ErrNoScene        = errors.New("listing: render context has no scene")
)

// MaterialOption is one material an interactive object can switch to. Material is the registry's
// canonical clone, shared by every object offering it.
type MaterialOption struct {
	Material *scene.Material
	Tints    []color.RGBA
}

// InteractiveObject is a mesh the user can inspect and restyle.
type InteractiveObject struct {
	Node    *scene.Node
	Options []MaterialOption

	picker *collider.Octree
}

// Inspector shows picked objects. A nil object means nothing inspectable was picked and the
// listing's general information should be shown instead.
type Inspector interface {
	Inspect(l *Listing, obj *InteractiveObject)
}

// Loader is the part of the asset loader a listing uses.
type Loader interface {
	Request(kind assets.Kind, url string) error
	OnBatchComplete(fn func(assets.Result))
	OnBatchFailed(fn func(error))
}

// Player is moved to the spawn pose once the listing has loaded.
type Player interface {
	Reset(pos, rot mgl32.Vec3)
}

// Deps are the collaborators of a listing. Loader and Context are required.
type Deps struct {
	Loader    Loader
	Context   *render.Context
	Player    Player
	Inspector Inspector
	Log       *logger.Logger
	// NoShadowMaterial defaults to DefaultNoShadowMaterial.
	NoShadowMaterial string
	// OnFailed is called once if the assets cannot be loaded.
	OnFailed func(error)
}

type rule struct {
	re      *regexp.Regexp
	options []optionSpec
}

type optionSpec struct {
	material string
	tints    []color.RGBA
}

// Listing is one property shown in the viewer. It is loading until its asset batch completes,
// then active until Dispose. A disposed listing cannot be reused.
type Listing struct {
	id   string
	data config.ListingData
	deps Deps
	log  *logger.Logger

	rules  []rule
	root   *scene.Node
	lights []*scene.Node

	registry map[string]*scene.Material
	objects  map[scene.NodeID]*InteractiveObject
	order    []*InteractiveObject
	retired  []*scene.Material
	collider *collider.Octree

	loaded   bool
	disposed bool
	err      error
}

// New validates data, adds its lights to the active scene and requests its assets. An invalid
// naming rule, tint or light is reported here and nothing is requested.
func New(data config.ListingData, deps Deps) (*Listing, error) {
	if deps.Loader == nil || deps.Context == nil {
		return nil, errors.New("listing: loader and render context are required")
	}
	if deps.Context.Scene() == nil {
		return nil, ErrNoScene
	}
	if deps.NoShadowMaterial == "" {
		deps.NoShadowMaterial = DefaultNoShadowMaterial
	}
	l := &Listing{
		id:       uuid.NewString()[:8],
		data:     data,
		deps:     deps,
		log:      deps.Log,
		root:     scene.NewGroup(data.Info.Name),
		registry: make(map[string]*scene.Material),
		objects:  make(map[scene.NodeID]*InteractiveObject),
	}
	rules, err := compileRules(data.Rules)
	if err != nil {
		return nil, err
	}
	l.rules = rules
	lights, err := buildLights(data.Lights)
	if err != nil {
		return nil, err
	}

	if data.Panorama.File != "" {
		if err := deps.Loader.Request(assets.KindPanorama, data.Panorama.File); err != nil {
			return nil, fmt.Errorf("listing: %w", err)
		}
	}
	for _, m := range data.Models {
		if err := deps.Loader.Request(assets.KindModel, m.File); err != nil {
			return nil, fmt.Errorf("listing: %w", err)
		}
	}
	deps.Loader.OnBatchComplete(l.attach)
	deps.Loader.OnBatchFailed(l.fail)

	l.lights = lights
	deps.Context.Scene().Add(lights...)
	deps.Context.SetListing(l)
	l.log.Logf("listing %s (%s): requested %d models, %d lights", l.id, data.Info.Name, len(data.Models), len(lights))
	return l, nil
}

func compileRules(in config.Rules) ([]rule, error) {
	out := make([]rule, 0, len(in))
	for _, r := range in {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("listing: rule %q: %w", r.Pattern, err)
		}
		specs := make([]optionSpec, 0, len(r.Options))
		for _, o := range r.Options {
			spec := optionSpec{material: o.Material}
			for _, t := range o.Tints {
				c, err := scene.ParseColor(t)
				if err != nil {
					return nil, fmt.Errorf("listing: rule %q: %w", r.Pattern, err)
				}
				spec.tints = append(spec.tints, c)
			}
			specs = append(specs, spec)
		}
		out = append(out, rule{re: re, options: specs})
	}
	return out, nil
}

// attach runs once the batch has completed, on the frame loop.
func (l *Listing) attach(res assets.Result) {
	if l.disposed {
		return
	}
	s := l.deps.Context.Scene()

	if res.Panorama != nil {
		res.Panorama.Mapping = scene.MappingEquirectangular
		s.Background = res.Panorama
		s.BackgroundRotation = l.data.Panorama.Rotation.Vec()
	}
	for _, m := range res.Models {
		if m != nil {
			l.root.Add(m)
		}
	}

	l.root.Traverse(func(n *scene.Node) {
		if n.Mesh == nil {
			return
		}
		n.Mesh.ReceiveShadow = true
		n.Mesh.CastShadow = true
		if m := n.Mesh.Material(); m != nil && m.Name == l.deps.NoShadowMaterial {
			n.Mesh.CastShadow = false
		}
		for _, m := range n.Mesh.Materials {
			if m == nil {
				continue
			}
			if _, ok := l.registry[m.Name]; !ok {
				l.registry[m.Name] = m.Clone()
			}
		}
	})

	l.root.Traverse(func(n *scene.Node) {
		if n.Mesh == nil {
			return
		}
		if obj := l.interactive(n); obj != nil {
			l.objects[n.ID()] = obj
			l.order = append(l.order, obj)
		}
	})

	if l.deps.Player != nil {
		pos, rot := l.SpawnPose()
		l.deps.Player.Reset(pos, rot)
	}
	l.collider = collider.Build(l.root)
	s.Add(l.root)
	l.loaded = true
	l.log.Logf("listing %s loaded: %d models, %d materials, %d interactive, %d triangles",
		l.id, len(res.Models), len(l.registry), len(l.order), l.collider.Len())
}

// interactive returns the object for n built from the last rule matching its name, or nil.
func (l *Listing) interactive(n *scene.Node) *InteractiveObject {
	var match *rule
	for i := range l.rules {
		if l.rules[i].re.MatchString(n.Name) {
			match = &l.rules[i]
		}
	}
	if match == nil {
		return nil
	}
	obj := &InteractiveObject{Node: n}
	for _, o := range match.options {
		m, ok := l.registry[o.material]
		if !ok {
			l.log.Logf("listing %s: %s: unknown material %q", l.id, n.Name, o.material)
			continue
		}
		obj.Options = append(obj.Options, MaterialOption{Material: m, Tints: o.tints})
	}
	if len(obj.Options) == 0 {
		return nil
	}
	obj.picker = collider.Build(n)
	return obj
}

func (l *Listing) fail(err error) {
	l.err = err
	l.log.Logf("listing %s failed: %v", l.id, err)
	if l.deps.OnFailed != nil {
		l.deps.OnFailed(err)
	}
}

// ID is a short random identifier used in logs.
func (l *Listing) ID() string {
	return l.id
}

// Info returns the descriptive data of the listing.
func (l *Listing) Info() config.Info {
	return l.data.Info
}

// SpawnPose returns where the player starts: position and rotation (X pitch, Y yaw, Z roll).
func (l *Listing) SpawnPose() (mgl32.Vec3, mgl32.Vec3) {
	return l.data.Spawn.Position.Vec(), l.data.Spawn.Rotation.Vec()
}

// Loaded reports whether the assets are attached and the collider is built.
func (l *Listing) Loaded() bool {
	return l.loaded && !l.disposed
}

// Err returns the load failure, if any.
func (l *Listing) Err() error {
	return l.err
}

// Root is the group every model of the listing is attached to.
func (l *Listing) Root() *scene.Node {
	return l.root
}

// Collider returns the static geometry index, or nil before the listing has loaded.
func (l *Listing) Collider() *collider.Octree {
	if !l.Loaded() {
		return nil
	}
	return l.collider
}

// Material returns the registry's canonical material for name.
func (l *Listing) Material(name string) (*scene.Material, bool) {
	m, ok := l.registry[name]
	return m, ok
}

// Objects returns the interactive objects in scene order.
func (l *Listing) Objects() []*InteractiveObject {
	return l.order
}

// Object returns the interactive object for n.
func (l *Listing) Object(n *scene.Node) (*InteractiveObject, bool) {
	if n == nil {
		return nil, false
	}
	obj, ok := l.objects[n.ID()]
	return obj, ok
}

// Hit is a ray hit on an interactive object.
type Hit struct {
	Object   *InteractiveObject
	Distance float32
	Point    mgl32.Vec3
}

// Intersection tests r against the interactive objects only and returns the hits, nearest first.
// It is empty before the listing has loaded.
func (l *Listing) Intersection(r collider.Ray) []Hit {
	if !l.Loaded() {
		return nil
	}
	var hits []Hit
	for _, obj := range l.order {
		h, ok := obj.picker.Raycast(r)
		if !ok {
			continue
		}
		hits = append(hits, Hit{Object: obj, Distance: h.Distance, Point: h.Point})
	}
	slices.SortStableFunc(hits, func(a, b Hit) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})
	return hits
}

// Inspect hands the object of n to the inspector and outlines it. Nodes that are not interactive
// clear the outline and show the general information.
func (l *Listing) Inspect(n *scene.Node) {
	if !l.Loaded() {
		return
	}
	obj, ok := l.Object(n)
	if ok {
		l.deps.Context.SetHighlight(obj.Node)
	} else {
		obj = nil
		l.deps.Context.SetHighlight()
	}
	if l.deps.Inspector != nil {
		l.deps.Inspector.Inspect(l, obj)
	}
}

// ApplyOption gives n a private copy of its option's material, tinted with the tint at index tint
// when tint is not negative. The materials it replaces are released with the listing.
func (l *Listing) ApplyOption(n *scene.Node, option, tint int) error {
	if l.disposed {
		return ErrDisposed
	}
	obj, ok := l.Object(n)
	if !ok {
		return ErrNotInteractive
	}
	if option < 0 || option >= len(obj.Options) {
		return fmt.Errorf("listing: %s has no option %d", n.Name, option)
	}
	opt := obj.Options[option]
	m := opt.Material.Clone()
	if tint >= 0 {
		if tint >= len(opt.Tints) {
			return fmt.Errorf("listing: %s option %q has no tint %d", n.Name, opt.Material.Name, tint)
		}
		m.Color = opt.Tints[tint]
	}
	for i, old := range n.Mesh.Materials {
		if old != nil {
			l.retired = append(l.retired, old)
		}
		n.Mesh.Materials[i] = m
	}
	if len(n.Mesh.Materials) == 0 {
		n.Mesh.Materials = []*scene.Material{m}
	}
	l.log.Logf("listing %s: %s -> %s", l.id, n.Name, m.Name)
	return nil
}

// Dispose releases the registry materials and the materials replaced by ApplyOption, then disposes
// the active scene. Calling it again does nothing.
func (l *Listing) Dispose() {
	if l.disposed {
		return
	}
	l.disposed = true
	for _, m := range l.registry {
		render.ReleaseMaterial(m)
	}
	for _, m := range l.retired {
		render.ReleaseMaterial(m)
	}
	l.registry = map[string]*scene.Material{}
	l.retired = nil
	l.objects = map[scene.NodeID]*InteractiveObject{}
	l.order = nil
	l.collider = nil

	ctx := l.deps.Context
	ctx.Dispose(ctx.Scene())
	if ctx.Listing() == render.Listing(l) {
		ctx.SetListing(nil)
	}
	l.log.Logf("listing %s disposed", l.id)
}
