package render

import "walkthrough/internal/scene"

// Pass is one step of the frame pipeline.
type Pass interface {
	Name() string
	Render(c *Context)
}

// ScenePass draws the active scene from the provider's camera.
type ScenePass struct{}

func (ScenePass) Name() string { return "scene" }

func (ScenePass) Render(c *Context) {
	c.renderer.DrawScene(c.scene, c.camera.Camera())
}

// OutlinePass draws an outline around highlighted nodes (the inspected object).
type OutlinePass struct {
	Nodes []*scene.Node
}

func (*OutlinePass) Name() string { return "outline" }

func (p *OutlinePass) Render(c *Context) {
	if len(p.Nodes) == 0 {
		return
	}
	c.renderer.DrawOutline(p.Nodes, c.camera.Camera())
}

// OutputPass ends the frame.
type OutputPass struct{}

func (OutputPass) Name() string { return "output" }

func (OutputPass) Render(c *Context) {
	c.renderer.Present()
}
