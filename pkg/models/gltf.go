package models

import (
	"fmt"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/taigrr/sprout/internal/logging"
	"github.com/taigrr/sprout/pkg/math3d"
)

// GLTFLoader loads GLTF/GLB files into Mesh format.
type GLTFLoader struct {
	// CalculateNormals fills in smooth normals when the file has none.
	CalculateNormals bool
}

// NewGLTFLoader creates a new GLTF loader with default options.
func NewGLTFLoader() *GLTFLoader {
	return &GLTFLoader{CalculateNormals: true}
}

// LoadGLB loads a binary GLTF (.glb) file.
func LoadGLB(path string) (*Mesh, error) {
	return NewGLTFLoader().Load(path)
}

// Load loads a GLTF or GLB file and returns a Mesh. Materials keep their
// document order so face material indices survive a round trip.
func (l *GLTFLoader) Load(path string) (*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}

	mesh := NewMesh(filepath.Base(path))
	for _, m := range doc.Materials {
		mesh.AddMaterial(readMaterial(m))
	}

	for _, m := range doc.Meshes {
		if err := l.processMesh(doc, m, mesh); err != nil {
			return nil, fmt.Errorf("process mesh %q: %w", m.Name, err)
		}
	}

	hasNormals := false
	for _, v := range mesh.Vertices {
		if v.Normal.Len() > 0.001 {
			hasNormals = true
			break
		}
	}
	if l.CalculateNormals && !hasNormals {
		mesh.CalculateSmoothNormals()
	}

	mesh.CalculateBounds()
	logging.L().Debug("models: loaded gltf", "path", path,
		"vertices", mesh.VertexCount(), "triangles", mesh.TriangleCount(),
		"materials", mesh.MaterialCount())
	return mesh, nil
}

func readMaterial(m *gltf.Material) Material {
	mat := Material{
		Name:        m.Name,
		BaseColor:   [4]float64{1, 1, 1, 1},
		Metallic:    1,
		Roughness:   1,
		DoubleSided: m.DoubleSided,
	}
	if pbr := m.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			mat.BaseColor = *pbr.BaseColorFactor
		}
		if pbr.MetallicFactor != nil {
			mat.Metallic = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			mat.Roughness = *pbr.RoughnessFactor
		}
	}
	return mat
}

// processMesh extracts geometry from a GLTF mesh.
func (l *GLTFLoader) processMesh(doc *gltf.Document, m *gltf.Mesh, mesh *Mesh) error {
	for _, prim := range m.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			// Lines and points have no surface.
			continue
		}

		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}
		positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
		if err != nil {
			return fmt.Errorf("read positions: %w", err)
		}

		var normals [][3]float32
		if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
			if normals, err = modeler.ReadNormal(doc, doc.Accessors[idx], nil); err != nil {
				return fmt.Errorf("read normals: %w", err)
			}
		}

		var uvs [][2]float32
		if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
			if uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil); err != nil {
				return fmt.Errorf("read uvs: %w", err)
			}
		}

		material := -1
		if prim.Material != nil && *prim.Material < len(mesh.Materials) {
			material = *prim.Material
		}

		base := len(mesh.Vertices)
		for i, p := range positions {
			v := MeshVertex{Position: vec3(p)}
			if i < len(normals) {
				v.Normal = vec3(normals[i])
			}
			if i < len(uvs) {
				// GLTF puts V=0 at the top of the image.
				v.UV = math3d.V2(float64(uvs[i][0]), 1-float64(uvs[i][1]))
			}
			mesh.Vertices = append(mesh.Vertices, v)
		}

		if prim.Indices != nil {
			indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
			if err != nil {
				return fmt.Errorf("read indices: %w", err)
			}
			for i := 0; i+2 < len(indices); i += 3 {
				mesh.AddTriangle(base+int(indices[i]), base+int(indices[i+1]), base+int(indices[i+2]), material)
			}
		} else {
			for i := 0; i+2 < len(positions); i += 3 {
				mesh.AddTriangle(base+i, base+i+1, base+i+2, material)
			}
		}
	}
	return nil
}

// ExportGLB writes the mesh as a binary GLTF file with one primitive per
// material. Faces without a material go into a trailing primitive that has
// none.
func ExportGLB(mesh *Mesh, path string) error {
	doc := gltf.NewDocument()

	for _, m := range mesh.Materials {
		metallic, roughness := m.Metallic, m.Roughness
		color := m.BaseColor
		doc.Materials = append(doc.Materials, &gltf.Material{
			Name:        m.Name,
			DoubleSided: m.DoubleSided,
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				BaseColorFactor: &color,
				MetallicFactor:  &metallic,
				RoughnessFactor: &roughness,
			},
		})
	}

	// Group faces by material, keeping material order stable.
	groups := make([][]Face, len(mesh.Materials)+1)
	for _, f := range mesh.Faces {
		g := len(mesh.Materials)
		if f.Material >= 0 && f.Material < len(mesh.Materials) {
			g = f.Material
		}
		groups[g] = append(groups[g], f)
	}

	out := &gltf.Mesh{Name: mesh.Name}
	for g, faces := range groups {
		if len(faces) == 0 {
			continue
		}
		prim := writePrimitive(doc, mesh, faces)
		if g < len(mesh.Materials) {
			prim.Material = gltf.Index(g)
		}
		out.Primitives = append(out.Primitives, prim)
	}
	if len(out.Primitives) == 0 {
		return fmt.Errorf("export %s: %w", path, ErrEmptyPlant)
	}

	doc.Meshes = append(doc.Meshes, out)
	doc.Nodes = append(doc.Nodes, &gltf.Node{Name: mesh.Name, Mesh: gltf.Index(0)})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, len(doc.Nodes)-1)

	if err := gltf.SaveBinary(doc, path); err != nil {
		return fmt.Errorf("save glb: %w", err)
	}
	logging.L().Debug("models: exported glb", "path", path,
		"primitives", len(out.Primitives), "vertices", mesh.VertexCount(),
		"triangles", mesh.TriangleCount())
	return nil
}

// writePrimitive packs the vertices used by faces into fresh buffers,
// remapping indices so each primitive is self-contained.
func writePrimitive(doc *gltf.Document, mesh *Mesh, faces []Face) *gltf.Primitive {
	remap := make(map[int]uint32)
	var (
		positions [][3]float32
		normals   [][3]float32
		uvs       [][2]float32
		indices   = make([]uint32, 0, len(faces)*3)
	)
	for _, f := range faces {
		for _, vi := range f.V {
			k, ok := remap[vi]
			if !ok {
				v := mesh.Vertices[vi]
				k = uint32(len(positions))
				remap[vi] = k
				positions = append(positions, float3(v.Position))
				normals = append(normals, float3(v.Normal))
				uvs = append(uvs, [2]float32{float32(v.UV.X), float32(1 - v.UV.Y)})
			}
			indices = append(indices, k)
		}
	}

	return &gltf.Primitive{
		Mode:    gltf.PrimitiveTriangles,
		Indices: gltf.Index(modeler.WriteIndices(doc, indices)),
		Attributes: gltf.PrimitiveAttributes{
			gltf.POSITION:   modeler.WritePosition(doc, positions),
			gltf.NORMAL:     modeler.WriteNormal(doc, normals),
			gltf.TEXCOORD_0: modeler.WriteTextureCoord(doc, uvs),
		},
	}
}

func vec3(f [3]float32) math3d.Vec3 {
	return math3d.V3(float64(f[0]), float64(f[1]), float64(f[2]))
}

func float3(v math3d.Vec3) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}
