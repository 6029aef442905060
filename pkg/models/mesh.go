// Package models turns generated plants into triangle meshes and moves
// them in and out of glTF binary files.
package models

import (
	"github.com/taigrr/sprout/pkg/math3d"
)

// Mesh represents a 3D mesh with vertices, faces, and materials.
type Mesh struct {
	Name      string
	Vertices  []MeshVertex
	Faces     []Face
	Materials []Material

	// Bounding box (see CalculateBounds)
	BoundsMin math3d.Vec3
	BoundsMax math3d.Vec3
}

// MeshVertex holds all vertex attributes.
type MeshVertex struct {
	Position math3d.Vec3
	Normal   math3d.Vec3
	UV       math3d.Vec2
}

// Face is a counter-clockwise triangle with a material reference.
type Face struct {
	V        [3]int // Indices into Mesh.Vertices
	Material int    // Index into Mesh.Materials (-1 for no material)
}

// Material is a flat PBR material.
type Material struct {
	Name        string
	BaseColor   [4]float64 // RGBA in 0-1 range
	Metallic    float64    // 0 = dielectric, 1 = metal
	Roughness   float64    // 0 = smooth, 1 = rough
	DoubleSided bool
}

// Plant materials.
var (
	BarkMaterial = Material{
		Name:      "bark",
		BaseColor: [4]float64{0.42, 0.29, 0.18, 1},
		Roughness: 0.9,
	}
	LeafMaterial = Material{
		Name:        "leaf",
		BaseColor:   [4]float64{0.24, 0.55, 0.18, 1},
		Roughness:   0.6,
		DoubleSided: true,
	}
)

// NewMesh creates an empty mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{Name: name}
}

// AddMaterial appends a material and returns its index.
func (m *Mesh) AddMaterial(mat Material) int {
	m.Materials = append(m.Materials, mat)
	return len(m.Materials) - 1
}

// AddVertex appends a vertex and returns its index.
func (m *Mesh) AddVertex(pos, normal math3d.Vec3, uv math3d.Vec2) int {
	m.Vertices = append(m.Vertices, MeshVertex{Position: pos, Normal: normal, UV: uv})
	return len(m.Vertices) - 1
}

// AddTriangle appends a face.
func (m *Mesh) AddTriangle(a, b, c, material int) {
	m.Faces = append(m.Faces, Face{V: [3]int{a, b, c}, Material: material})
}

// CalculateBounds computes the axis-aligned bounding box.
func (m *Mesh) CalculateBounds() {
	if len(m.Vertices) == 0 {
		m.BoundsMin, m.BoundsMax = math3d.Vec3{}, math3d.Vec3{}
		return
	}

	m.BoundsMin = m.Vertices[0].Position
	m.BoundsMax = m.Vertices[0].Position

	for _, v := range m.Vertices[1:] {
		m.BoundsMin = m.BoundsMin.Min(v.Position)
		m.BoundsMax = m.BoundsMax.Max(v.Position)
	}
}

// Center returns the center of the bounding box.
func (m *Mesh) Center() math3d.Vec3 {
	return m.BoundsMin.Add(m.BoundsMax).Scale(0.5)
}

// Size returns the dimensions of the bounding box.
func (m *Mesh) Size() math3d.Vec3 {
	return m.BoundsMax.Sub(m.BoundsMin)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Faces)
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// CalculateSmoothNormals computes area-weighted averaged vertex normals.
func (m *Mesh) CalculateSmoothNormals() {
	for i := range m.Vertices {
		m.Vertices[i].Normal = math3d.Zero3()
	}

	for _, f := range m.Faces {
		v0 := m.Vertices[f.V[0]].Position
		v1 := m.Vertices[f.V[1]].Position
		v2 := m.Vertices[f.V[2]].Position

		normal := v1.Sub(v0).Cross(v2.Sub(v0)) // Don't normalize yet

		for _, idx := range f.V {
			m.Vertices[idx].Normal = m.Vertices[idx].Normal.Add(normal)
		}
	}

	for i := range m.Vertices {
		m.Vertices[i].Normal = m.Vertices[i].Normal.Normalize()
	}
}

// Clone creates a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	clone := &Mesh{
		Name:      m.Name,
		Vertices:  make([]MeshVertex, len(m.Vertices)),
		Faces:     make([]Face, len(m.Faces)),
		Materials: make([]Material, len(m.Materials)),
		BoundsMin: m.BoundsMin,
		BoundsMax: m.BoundsMax,
	}
	copy(clone.Vertices, m.Vertices)
	copy(clone.Faces, m.Faces)
	copy(clone.Materials, m.Materials)
	return clone
}

// GetFaceMaterial returns the material index for face i.
// Returns -1 if no material assigned.
func (m *Mesh) GetFaceMaterial(i int) int {
	return m.Faces[i].Material
}

// GetMaterial returns the material at index i.
// Returns nil if index is out of bounds or -1.
func (m *Mesh) GetMaterial(i int) *Material {
	if i < 0 || i >= len(m.Materials) {
		return nil
	}
	return &m.Materials[i]
}

// MaterialCount returns the number of materials.
func (m *Mesh) MaterialCount() int {
	return len(m.Materials)
}

// MaterialIndex returns the index of the first material called name, or -1.
func (m *Mesh) MaterialIndex(name string) int {
	for i, mat := range m.Materials {
		if mat.Name == name {
			return i
		}
	}
	return -1
}
