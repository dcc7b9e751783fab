package graphics

import (
	"image/color"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"walkthrough/internal/logger"
	"walkthrough/internal/scene"
)

const (
	skyboxScale = 1000
	// outlineGrow pushes the outline box off the surfaces so it is not z-fighting.
	outlineGrow = 0.01

	probeSize      = 256
	probeInstances = 200
)

var (
	defaultAmbient = [3]float32{0.2, 0.22, 0.26}
	outlineColor   = rl.NewColor(255, 200, 40, 255)
)

// Renderer draws scenes with raylib. GPU objects are created on the first frame, after the window
// exists, and scene resources are uploaded through the Device the first time they are drawn.
type Renderer struct {
	dev *Device
	log *logger.Logger

	ready   bool
	inFrame bool

	lit    rl.Shader
	litMtl rl.Material
	white  rl.Texture2D
	locs   map[string]int32

	skyMesh   rl.Mesh
	skyMtl    rl.Material
	skyCamLoc int32
	skyTexLoc int32
	skyRotLoc int32
	skyReady  bool

	failed map[any]bool
}

// NewRenderer returns a renderer uploading through dev.
func NewRenderer(dev *Device, log *logger.Logger) *Renderer {
	return &Renderer{dev: dev, log: log, failed: make(map[any]bool)}
}

func (r *Renderer) ensure() {
	if r.ready {
		return
	}
	r.ready = true
	r.litMtl = rl.LoadMaterialDefault()
	r.white = r.litMtl.GetMap(rl.MapAlbedo).Texture
	r.lit = rl.LoadShaderFromMemory(litVS, litFS)
	if rl.IsShaderValid(r.lit) {
		r.litMtl.Shader = r.lit
	} else {
		r.log.Log("graphics: lit shader failed to compile, using the default shader")
	}
	r.locs = make(map[string]int32)
	for _, name := range []string{
		"viewPos", "ambient", "lightDir", "lightColor", "pointCount", "pointPos", "pointColor",
		"pointFalloff", "specularPower", "specularStrength",
	} {
		r.locs[name] = rl.GetShaderLocation(r.lit, name)
	}

	shader := rl.LoadShaderFromMemory(equirectVS, equirectFS)
	if !rl.IsShaderValid(shader) {
		r.log.Log("graphics: skybox shader failed to compile, panoramas are not drawn")
		return
	}
	r.skyMesh = rl.GenMeshCube(1, 1, 1)
	r.skyMtl = rl.LoadMaterialDefault()
	r.skyMtl.Shader = shader
	r.skyCamLoc = rl.GetShaderLocation(shader, "cameraPosition")
	r.skyTexLoc = rl.GetShaderLocation(shader, "skybox")
	r.skyRotLoc = rl.GetShaderLocation(shader, "panoramaRotation")
	r.skyReady = true
}

// upload makes sure everything s draws is on the GPU. Failures are logged once per resource and
// the resource is skipped.
func (r *Renderer) upload(s *scene.Scene) {
	try := func(key any, what string, fn func(scene.Device) error) {
		if r.failed[key] {
			return
		}
		if err := fn(r.dev); err != nil {
			r.failed[key] = true
			r.log.Logf("graphics: upload %s: %v", what, err)
		}
	}
	if bg := s.Background; bg != nil {
		try(bg, bg.Name, bg.Upload)
	}
	s.Traverse(func(n *scene.Node) {
		if n.Mesh == nil {
			return
		}
		if g := n.Mesh.Geometry; g != nil {
			try(g, n.Name, g.Upload)
		}
		for _, m := range n.Mesh.Materials {
			if m == nil {
				continue
			}
			for _, t := range m.Maps {
				if t != nil {
					try(t, t.Name, t.Upload)
				}
			}
			try(m, m.Name, m.Upload)
		}
	})
}

func vec3(v mgl32.Vec3) rl.Vector3 {
	return rl.NewVector3(v[0], v[1], v[2])
}

func toMatrix(m mgl32.Mat4) rl.Matrix {
	return rl.Matrix{
		M0: m[0], M1: m[1], M2: m[2], M3: m[3],
		M4: m[4], M5: m[5], M6: m[6], M7: m[7],
		M8: m[8], M9: m[9], M10: m[10], M11: m[11],
		M12: m[12], M13: m[13], M14: m[14], M15: m[15],
	}
}

func raylibCamera(cam *scene.Camera) rl.Camera3D {
	return rl.Camera3D{
		Position:   vec3(cam.Position),
		Target:     vec3(cam.Position.Add(cam.Forward())),
		Up:         vec3(cam.Up()),
		Fovy:       cam.Fovy,
		Projection: rl.CameraPerspective,
	}
}

// DrawScene starts the 3D frame and draws the panorama, then opaque and transparent meshes.
// The 3D mode stays open for DrawOutline until Present.
func (r *Renderer) DrawScene(s *scene.Scene, cam *scene.Camera) {
	r.ensure()
	r.upload(s)

	rl.BeginMode3D(raylibCamera(cam))
	r.inFrame = true
	if s.Background != nil {
		r.drawSkybox(s, cam)
	}
	r.setLights(s.Lights(), cam)

	var transparent []*scene.Node
	s.Traverse(func(n *scene.Node) {
		if n.Mesh == nil {
			return
		}
		for _, m := range n.Mesh.Materials {
			if m != nil && m.Transparent {
				transparent = append(transparent, n)
				return
			}
		}
		r.drawNode(n)
	})
	if len(transparent) > 0 {
		rl.DisableDepthMask()
		for _, n := range transparent {
			r.drawNode(n)
		}
		rl.EnableDepthMask()
	}
}

func (r *Renderer) drawNode(n *scene.Node) {
	m, ok := mesh(n.Mesh.Geometry)
	if !ok {
		return
	}
	transform := toMatrix(n.WorldMatrix())
	for _, mat := range n.Mesh.Materials {
		if mat == nil {
			continue
		}
		albedo := r.litMtl.GetMap(rl.MapAlbedo)
		albedo.Color = mat.Color
		albedo.Texture = r.white
		if tex, ok := texture(mat.Maps[scene.SlotMap]); ok {
			albedo.Texture = tex
		}
		smooth := 1 - mat.Roughness
		r.uniform("specularPower", []float32{8 + smooth*120}, rl.ShaderUniformFloat)
		r.uniform("specularStrength", []float32{smooth*0.5 + mat.Metalness*0.3}, rl.ShaderUniformFloat)
		rl.DrawMesh(m, r.litMtl, transform)
	}
}

func (r *Renderer) uniform(name string, v []float32, typ rl.ShaderUniformDataType) {
	if loc, ok := r.locs[name]; ok && loc >= 0 {
		rl.SetShaderValue(r.lit, loc, v, typ)
	}
}

func (r *Renderer) uniformV(name string, v []float32, typ rl.ShaderUniformDataType, count int32) {
	if loc, ok := r.locs[name]; ok && loc >= 0 && count > 0 {
		rl.SetShaderValueV(r.lit, loc, v, typ, count)
	}
}

func radiance(c color.RGBA, intensity float32) [3]float32 {
	return [3]float32{
		float32(c.R) / 255 * intensity,
		float32(c.G) / 255 * intensity,
		float32(c.B) / 255 * intensity,
	}
}

// setLights sums ambient lights, takes the first directional light and up to maxPointLights point
// lights. Without any ambient light a dim default keeps unlit faces visible.
func (r *Renderer) setLights(lights []*scene.Light, cam *scene.Camera) {
	var ambient, dirColor [3]float32
	dir := mgl32.Vec3{0.5, 1, 0.5}
	hasAmbient, hasDir := false, false
	var pos, col, falloff []float32
	points := 0
	for _, l := range lights {
		switch l.Type {
		case scene.LightAmbient:
			c := radiance(l.Color, l.Intensity)
			for i := range ambient {
				ambient[i] += c[i]
			}
			hasAmbient = true
		case scene.LightDirectional:
			if hasDir {
				continue
			}
			hasDir = true
			dirColor = radiance(l.Color, l.Intensity)
			if d := l.Position.Sub(l.Target); d.Len() > 0 {
				dir = d
			}
		case scene.LightPoint:
			if points == maxPointLights {
				continue
			}
			points++
			c := radiance(l.Color, l.Intensity)
			pos = append(pos, l.Position[0], l.Position[1], l.Position[2])
			col = append(col, c[0], c[1], c[2])
			falloff = append(falloff, l.Distance, l.Decay)
		}
	}
	if !hasAmbient {
		ambient = defaultAmbient
	}
	dir = dir.Normalize()
	r.uniform("viewPos", cam.Position[:], rl.ShaderUniformVec3)
	r.uniform("ambient", []float32{ambient[0], ambient[1], ambient[2], 1}, rl.ShaderUniformVec4)
	r.uniform("lightDir", dir[:], rl.ShaderUniformVec3)
	r.uniform("lightColor", dirColor[:], rl.ShaderUniformVec3)
	r.uniform("pointCount", []float32{float32(points)}, rl.ShaderUniformFloat)
	r.uniformV("pointPos", pos, rl.ShaderUniformVec3, int32(points))
	r.uniformV("pointColor", col, rl.ShaderUniformVec3, int32(points))
	r.uniformV("pointFalloff", falloff, rl.ShaderUniformVec2, int32(points))
}

// drawSkybox draws the panorama on a large cube centered on the camera.
func (r *Renderer) drawSkybox(s *scene.Scene, cam *scene.Camera) {
	tex, ok := texture(s.Background)
	if !r.skyReady || !ok {
		return
	}
	rl.DisableDepthMask()
	rl.DisableBackfaceCulling()
	p := cam.Position
	transform := rl.MatrixMultiply(rl.MatrixScale(skyboxScale, skyboxScale, skyboxScale), rl.MatrixTranslate(p[0], p[1], p[2]))
	if r.skyCamLoc >= 0 {
		rl.SetShaderValueV(r.skyMtl.Shader, r.skyCamLoc, []float32{p[0], p[1], p[2]}, rl.ShaderUniformVec3, 1)
	}
	if r.skyRotLoc >= 0 {
		rot := s.BackgroundRotation
		m := mgl32.AnglesToQuat(rot[0], rot[1], rot[2], mgl32.XYZ).Mat4().Transpose()
		rl.SetShaderValueMatrix(r.skyMtl.Shader, r.skyRotLoc, toMatrix(m))
	}
	// DrawMesh binds the albedo map to unit 0, which is where the lone sampler reads from.
	r.skyMtl.GetMap(rl.MapAlbedo).Texture = tex
	if r.skyTexLoc >= 0 {
		rl.SetShaderValueTexture(r.skyMtl.Shader, r.skyTexLoc, tex)
	}
	rl.DrawMesh(r.skyMesh, r.skyMtl, transform)
	rl.EnableBackfaceCulling()
	rl.EnableDepthMask()
}

// DrawOutline draws the world bounding box of each node.
func (r *Renderer) DrawOutline(nodes []*scene.Node, _ *scene.Camera) {
	if !r.inFrame {
		return
	}
	grow := mgl32.Vec3{outlineGrow, outlineGrow, outlineGrow}
	for _, n := range nodes {
		lo, hi, ok := n.WorldBounds()
		if !ok {
			continue
		}
		rl.DrawBoundingBox(rl.BoundingBox{Min: vec3(lo.Sub(grow)), Max: vec3(hi.Add(grow))}, outlineColor)
	}
}

// Present closes the 3D mode opened by DrawScene. 2D overlays are drawn after it.
func (r *Renderer) Present() {
	if r.inFrame {
		rl.EndMode3D()
		r.inFrame = false
	}
}

// Probe renders frames of a fixed sphere workload off screen and returns how long it took,
// including the read back that waits for the GPU.
func (r *Renderer) Probe(frames int) time.Duration {
	r.ensure()
	target := rl.LoadRenderTexture(probeSize, probeSize)
	sphere := rl.GenMeshSphere(0.5, 32, 32)
	cam := rl.Camera3D{
		Position:   rl.NewVector3(0, 0, 20),
		Up:         rl.NewVector3(0, 1, 0),
		Fovy:       45,
		Projection: rl.CameraPerspective,
	}

	start := time.Now()
	for f := 0; f < frames; f++ {
		rl.BeginTextureMode(target)
		rl.ClearBackground(rl.Black)
		rl.BeginMode3D(cam)
		for i := 0; i < probeInstances; i++ {
			x := float32(i%20) - 10
			y := float32(i/20) - 5
			rl.DrawMesh(sphere, r.litMtl, rl.MatrixTranslate(x, y, 0))
		}
		rl.EndMode3D()
		rl.EndTextureMode()
	}
	img := rl.LoadImageFromTexture(target.Texture)
	took := time.Since(start)

	rl.UnloadImage(img)
	rl.UnloadMesh(&sphere)
	rl.UnloadRenderTexture(target)
	return took
}
