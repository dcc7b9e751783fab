// Package render owns what is drawn each frame: the renderer, the active scene, the active listing
// and the pass pipeline built from them. It is also the only place scene GPU resources are freed.
package render

import (
	"time"

	"walkthrough/internal/logger"
	"walkthrough/internal/scene"
)

// Renderer draws scenes. The raylib backend implements it; resources are uploaded on first draw.
type Renderer interface {
	DrawScene(s *scene.Scene, cam *scene.Camera)
	DrawOutline(nodes []*scene.Node, cam *scene.Camera)
	// Present finishes the frame (post effects, overlays drawn by the renderer itself).
	Present()
}

// Prober is implemented by renderers that can time a fixed synthetic workload.
type Prober interface {
	Probe(frames int) time.Duration
}

// CameraProvider supplies the camera used for the frame (the movement controller).
type CameraProvider interface {
	Camera() *scene.Camera
}

// Listing is the part of a listing the context needs to know about.
type Listing interface {
	Loaded() bool
}

// Tier is the renderer performance class, decided once by a probe.
type Tier int

const (
	TierHigh Tier = iota
	TierLow
)

func (t Tier) String() string {
	if t == TierLow {
		return "low"
	}
	return "high"
}

const (
	probeFrames = 20
	// probeBudget is the longest the probe may take for the high tier.
	probeBudget = 500 * time.Millisecond
)

// Context is created once by the application and passed to whatever needs to render or dispose.
// It is not safe for concurrent use; everything runs on the frame loop.
type Context struct {
	log      *logger.Logger
	renderer Renderer
	scene    *scene.Scene
	listing  Listing
	camera   CameraProvider

	passes  []Pass
	outline *OutlinePass

	tier   Tier
	probed bool
}

// New returns an empty context.
func New(log *logger.Logger) *Context {
	return &Context{log: log}
}

func (c *Context) Renderer() Renderer {
	return c.renderer
}

// SetRenderer sets the active renderer. The pipeline is kept; passes read the renderer per frame.
func (c *Context) SetRenderer(r Renderer) {
	c.renderer = r
	c.tier, c.probed = TierHigh, false
	c.setupPasses()
}

func (c *Context) Scene() *scene.Scene {
	return c.scene
}

func (c *Context) SetScene(s *scene.Scene) {
	c.scene = s
	c.setupPasses()
}

func (c *Context) Listing() Listing {
	return c.listing
}

func (c *Context) SetListing(l Listing) {
	c.listing = l
}

func (c *Context) CameraProvider() CameraProvider {
	return c.camera
}

func (c *Context) SetCameraProvider(p CameraProvider) {
	c.camera = p
	c.setupPasses()
}

// Passes returns the pipeline, empty until renderer, scene and camera provider are all set.
func (c *Context) Passes() []Pass {
	return c.passes
}

func (c *Context) setupPasses() {
	if len(c.passes) > 0 || c.renderer == nil || c.scene == nil || c.camera == nil {
		return
	}
	c.passes = []Pass{ScenePass{}, OutputPass{}}
	if c.outline != nil {
		c.insertOutline()
	}
	c.log.Log("render pipeline built")
}

func (c *Context) insertOutline() {
	c.passes = append(c.passes[:1], append([]Pass{c.outline}, c.passes[1:]...)...)
}

// SetHighlight outlines nodes from the next frame on. The outline pass is added on first use and
// stays in the pipeline; no nodes means nothing is outlined.
func (c *Context) SetHighlight(nodes ...*scene.Node) {
	if c.outline == nil {
		c.outline = &OutlinePass{}
		if len(c.passes) > 0 {
			c.insertOutline()
		}
	}
	c.outline.Nodes = nodes
}

// Highlighted returns the outlined nodes.
func (c *Context) Highlighted() []*scene.Node {
	if c.outline == nil {
		return nil
	}
	return c.outline.Nodes
}

// Render runs the pipeline. It does nothing until the pipeline exists.
func (c *Context) Render() {
	if len(c.passes) == 0 || c.renderer == nil || c.scene == nil || c.camera == nil {
		return
	}
	for _, p := range c.passes {
		p.Render(c)
	}
}

// Dispose releases every GPU resource reachable from s: geometry, each material and every texture
// slot of each material. It then detaches the scene's children and releases the background.
// Disposing an empty or already disposed scene does nothing.
func (c *Context) Dispose(s *scene.Scene) {
	if s == nil {
		return
	}
	meshes := 0
	s.Traverse(func(n *scene.Node) {
		if n.Mesh == nil {
			return
		}
		meshes++
		for _, m := range n.Mesh.Materials {
			ReleaseMaterial(m)
		}
		if n.Mesh.Geometry != nil {
			n.Mesh.Geometry.Release()
		}
	})
	s.Clear()
	if s.Background != nil {
		s.Background.Release()
		s.Background = nil
	}
	if c.outline != nil {
		c.outline.Nodes = nil
	}
	if meshes > 0 {
		c.log.Logf("disposed scene: %d meshes", meshes)
	}
}

// ReleaseMaterial releases the textures of m and then m itself.
func ReleaseMaterial(m *scene.Material) {
	if m == nil {
		return
	}
	for _, t := range m.Maps {
		if t != nil {
			t.Release()
		}
	}
	m.Release()
}

// Performance probes the renderer once and returns its tier. Renderers that cannot be probed are
// treated as high tier.
func (c *Context) Performance() Tier {
	if c.probed {
		return c.tier
	}
	p, ok := c.renderer.(Prober)
	if !ok {
		return TierHigh
	}
	took := p.Probe(probeFrames)
	c.tier = TierHigh
	if took > probeBudget {
		c.tier = TierLow
	}
	c.probed = true
	c.log.Logf("performance probe: %s (%s)", c.tier, took.Round(time.Millisecond))
	return c.tier
}
