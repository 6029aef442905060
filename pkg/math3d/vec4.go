package math3d

// Vec4 represents a 4D vector (or homogeneous 3D point).
// Std430 buffer records use it to pad vec3 fields to 16 bytes.
type Vec4 struct {
	X, Y, Z, W float64
}

// V4 creates a new Vec4.
func V4(x, y, z, w float64) Vec4 {
	return Vec4{x, y, z, w}
}

// V4FromV3 creates a Vec4 from Vec3 with specified W.
func V4FromV3(v Vec3, w float64) Vec4 {
	return Vec4{v.X, v.Y, v.Z, w}
}

// Array returns the components in X, Y, Z, W order.
func (v Vec4) Array() [4]float64 {
	return [4]float64{v.X, v.Y, v.Z, v.W}
}
