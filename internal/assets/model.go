package assets

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"net/url"
	"path"

	"github.com/anthonynsimon/bild/clone"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"walkthrough/internal/scene"
)

// readFunc returns the bytes of a resource referenced by a model, relative to the model.
type readFunc func(ref string) ([]byte, error)

// decodeModel decodes a glTF 2.0 model (binary .glb, or .gltf with embedded buffers) into a node
// tree. Images may be embedded or external; external images are read through read.
// Nodes keep their glTF names, which is what listing rules match against.
func decodeModel(data []byte, ref string, read readFunc) (*scene.Node, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, ref, err)
	}
	b := &modelBuilder{
		doc:       doc,
		ref:       ref,
		read:      read,
		materials: make(map[int]*scene.Material),
		textures:  make(map[int]*scene.Texture),
	}
	root := scene.NewGroup(path.Base(stripQuery(ref)))
	for _, i := range b.rootNodes() {
		n, err := b.node(i, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrDecode, ref, err)
		}
		root.Add(n)
	}
	return root, nil
}

type modelBuilder struct {
	doc       *gltf.Document
	ref       string
	read      readFunc
	materials map[int]*scene.Material
	textures  map[int]*scene.Texture
	fallback  *scene.Material
}

// maxDepth guards against cyclic node references in malformed files.
const maxDepth = 64

func (b *modelBuilder) rootNodes() []int {
	if len(b.doc.Scenes) > 0 {
		i := 0
		if b.doc.Scene != nil && *b.doc.Scene < len(b.doc.Scenes) {
			i = *b.doc.Scene
		}
		return b.doc.Scenes[i].Nodes
	}
	// No scene: every node that is nobody's child is a root.
	child := make([]bool, len(b.doc.Nodes))
	for _, n := range b.doc.Nodes {
		for _, c := range n.Children {
			if c < len(child) {
				child[c] = true
			}
		}
	}
	var out []int
	for i := range b.doc.Nodes {
		if !child[i] {
			out = append(out, i)
		}
	}
	return out
}

func (b *modelBuilder) node(i, depth int) (*scene.Node, error) {
	if i < 0 || i >= len(b.doc.Nodes) {
		return nil, fmt.Errorf("node %d out of range", i)
	}
	if depth > maxDepth {
		return nil, fmt.Errorf("node %d: hierarchy too deep", i)
	}
	src := b.doc.Nodes[i]
	name := src.Name
	var out *scene.Node
	if src.Mesh != nil {
		if *src.Mesh >= len(b.doc.Meshes) {
			return nil, fmt.Errorf("node %d: mesh %d out of range", i, *src.Mesh)
		}
		gm := b.doc.Meshes[*src.Mesh]
		if name == "" {
			name = gm.Name
		}
		meshes, err := b.mesh(gm)
		if err != nil {
			return nil, fmt.Errorf("mesh %q: %w", gm.Name, err)
		}
		switch len(meshes) {
		case 1:
			out = scene.NewMeshNode(name, meshes[0])
		default:
			out = scene.NewGroup(name)
			for j, m := range meshes {
				out.Add(scene.NewMeshNode(fmt.Sprintf("%s_%d", gm.Name, j), m))
			}
		}
	} else {
		out = scene.NewGroup(name)
	}
	setTransform(out, src)
	for _, c := range src.Children {
		child, err := b.node(c, depth+1)
		if err != nil {
			return nil, err
		}
		out.Add(child)
	}
	return out, nil
}

var identity = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

func setTransform(n *scene.Node, src *gltf.Node) {
	if m := src.MatrixOrDefault(); m != identity {
		var mat mgl32.Mat4
		for i := range mat {
			mat[i] = float32(m[i])
		}
		n.Position = mat.Col(3).Vec3()
		sx, sy, sz := mat.Col(0).Vec3().Len(), mat.Col(1).Vec3().Len(), mat.Col(2).Vec3().Len()
		n.Scale = mgl32.Vec3{sx, sy, sz}
		if sx != 0 && sy != 0 && sz != 0 {
			rot := mgl32.Ident4()
			rot.SetCol(0, mat.Col(0).Mul(1/sx))
			rot.SetCol(1, mat.Col(1).Mul(1/sy))
			rot.SetCol(2, mat.Col(2).Mul(1/sz))
			rot.SetCol(3, mgl32.Vec4{0, 0, 0, 1})
			n.Rotation = mgl32.Mat4ToQuat(rot).Normalize()
		}
		return
	}
	t := src.TranslationOrDefault()
	r := src.RotationOrDefault()
	s := src.ScaleOrDefault()
	n.Position = mgl32.Vec3{float32(t[0]), float32(t[1]), float32(t[2])}
	n.Rotation = mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}
	n.Scale = mgl32.Vec3{float32(s[0]), float32(s[1]), float32(s[2])}
}

func (b *modelBuilder) mesh(gm *gltf.Mesh) ([]*scene.Mesh, error) {
	var out []*scene.Mesh
	for pi, p := range gm.Primitives {
		if p.Mode != gltf.PrimitiveTriangles {
			continue
		}
		g, err := b.geometry(p)
		if err != nil {
			return nil, fmt.Errorf("primitive %d: %w", pi, err)
		}
		mat, err := b.material(p.Material)
		if err != nil {
			return nil, fmt.Errorf("primitive %d: %w", pi, err)
		}
		out = append(out, &scene.Mesh{Geometry: g, Materials: []*scene.Material{mat}})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no triangle primitives")
	}
	return out, nil
}

func (b *modelBuilder) accessor(i int) (*gltf.Accessor, error) {
	if i < 0 || i >= len(b.doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", i)
	}
	return b.doc.Accessors[i], nil
}

func (b *modelBuilder) geometry(p *gltf.Primitive) (*scene.Geometry, error) {
	pi, ok := p.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("missing POSITION")
	}
	acr, err := b.accessor(pi)
	if err != nil {
		return nil, err
	}
	pos, err := modeler.ReadPosition(b.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	g := &scene.Geometry{Positions: make([]mgl32.Vec3, len(pos))}
	for i, v := range pos {
		g.Positions[i] = v
	}
	if ni, ok := p.Attributes["NORMAL"]; ok {
		acr, err := b.accessor(ni)
		if err != nil {
			return nil, err
		}
		normals, err := modeler.ReadNormal(b.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("normals: %w", err)
		}
		g.Normals = make([]mgl32.Vec3, len(normals))
		for i, v := range normals {
			g.Normals[i] = v
		}
	}
	if ti, ok := p.Attributes["TEXCOORD_0"]; ok {
		acr, err := b.accessor(ti)
		if err != nil {
			return nil, err
		}
		uvs, err := modeler.ReadTextureCoord(b.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("uvs: %w", err)
		}
		g.UVs = make([]mgl32.Vec2, len(uvs))
		for i, v := range uvs {
			g.UVs[i] = v
		}
	}
	if p.Indices != nil {
		acr, err := b.accessor(*p.Indices)
		if err != nil {
			return nil, err
		}
		g.Indices, err = modeler.ReadIndices(b.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
		for _, idx := range g.Indices {
			if int(idx) >= len(g.Positions) {
				return nil, fmt.Errorf("index %d out of range", idx)
			}
		}
	}
	return g, nil
}

func (b *modelBuilder) material(i *int) (*scene.Material, error) {
	if i == nil {
		if b.fallback == nil {
			b.fallback = scene.NewMaterial("default")
		}
		return b.fallback, nil
	}
	if m, ok := b.materials[*i]; ok {
		return m, nil
	}
	if *i < 0 || *i >= len(b.doc.Materials) {
		return nil, fmt.Errorf("material %d out of range", *i)
	}
	src := b.doc.Materials[*i]
	m := scene.NewMaterial(src.Name)
	m.Transparent = src.AlphaMode == gltf.AlphaBlend
	if pbr := src.PBRMetallicRoughness; pbr != nil {
		if f := pbr.BaseColorFactor; f != nil {
			m.Color = color.RGBA{R: unit8(f[0]), G: unit8(f[1]), B: unit8(f[2]), A: unit8(f[3])}
		}
		m.Metalness = 1
		if pbr.MetallicFactor != nil {
			m.Metalness = float32(*pbr.MetallicFactor)
		}
		if pbr.RoughnessFactor != nil {
			m.Roughness = float32(*pbr.RoughnessFactor)
		}
		if t := pbr.BaseColorTexture; t != nil {
			tex, err := b.texture(t.Index)
			if err != nil {
				return nil, err
			}
			m.Maps[scene.SlotMap] = tex
		}
		if t := pbr.MetallicRoughnessTexture; t != nil {
			tex, err := b.texture(t.Index)
			if err != nil {
				return nil, err
			}
			// One image packs both channels.
			m.Maps[scene.SlotMetalness] = tex
			m.Maps[scene.SlotRoughness] = tex
		}
	}
	if t := src.NormalTexture; t != nil && t.Index != nil {
		tex, err := b.texture(*t.Index)
		if err != nil {
			return nil, err
		}
		m.Maps[scene.SlotNormal] = tex
	}
	if t := src.EmissiveTexture; t != nil {
		tex, err := b.texture(t.Index)
		if err != nil {
			return nil, err
		}
		m.Maps[scene.SlotEmissive] = tex
	}
	b.materials[*i] = m
	return m, nil
}

func unit8(f float64) uint8 {
	if f <= 0 {
		return 0
	}
	if f >= 1 {
		return 255
	}
	return uint8(f*255 + 0.5)
}

func (b *modelBuilder) texture(i int) (*scene.Texture, error) {
	if t, ok := b.textures[i]; ok {
		return t, nil
	}
	if i < 0 || i >= len(b.doc.Textures) || b.doc.Textures[i].Source == nil {
		return nil, fmt.Errorf("texture %d has no image", i)
	}
	si := *b.doc.Textures[i].Source
	if si < 0 || si >= len(b.doc.Images) {
		return nil, fmt.Errorf("texture %d: image %d out of range", i, si)
	}
	img := b.doc.Images[si]
	data, err := b.imageData(img)
	if err != nil {
		return nil, fmt.Errorf("image %d: %w", si, err)
	}
	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("image %d: %w", si, err)
	}
	name := img.Name
	if name == "" {
		name = fmt.Sprintf("%s#image%d", path.Base(stripQuery(b.ref)), si)
	}
	t := &scene.Texture{Name: name, Image: clone.AsRGBA(decoded)}
	b.textures[i] = t
	return t, nil
}

func (b *modelBuilder) imageData(img *gltf.Image) ([]byte, error) {
	if img.BufferView != nil {
		v := *img.BufferView
		if v < 0 || v >= len(b.doc.BufferViews) {
			return nil, fmt.Errorf("buffer view %d out of range", v)
		}
		bv := b.doc.BufferViews[v]
		if bv.Buffer < 0 || bv.Buffer >= len(b.doc.Buffers) {
			return nil, fmt.Errorf("buffer %d out of range", bv.Buffer)
		}
		buf := b.doc.Buffers[bv.Buffer].Data
		end := bv.ByteOffset + bv.ByteLength
		if end > len(buf) {
			return nil, fmt.Errorf("buffer view %d exceeds buffer", v)
		}
		return buf[bv.ByteOffset:end], nil
	}
	if img.IsEmbeddedResource() {
		return img.MarshalData()
	}
	if img.URI == "" || b.read == nil {
		return nil, fmt.Errorf("no image data")
	}
	return b.read(resolveRef(b.ref, img.URI))
}

// resolveRef resolves uri relative to the model reference base.
func resolveRef(base, uri string) string {
	if isRemote(base) {
		bu, err := url.Parse(base)
		if err != nil {
			return uri
		}
		ru, err := url.Parse(uri)
		if err != nil {
			return uri
		}
		return bu.ResolveReference(ru).String()
	}
	if isRemote(uri) || path.IsAbs(uri) {
		return uri
	}
	if u, err := url.PathUnescape(uri); err == nil {
		uri = u
	}
	return path.Join(path.Dir(stripQuery(base)), uri)
}
