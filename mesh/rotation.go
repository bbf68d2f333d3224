package mesh

// Rotation is a 3x3 integer matrix whose rows and columns each hold a single
// non-zero entry of +1 or -1. Only the 24 orientation-preserving members are
// ever produced.
type Rotation [3][3]int

// IdentityRotation returns I
func IdentityRotation() Rotation {
	return Rotation{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// rotations lists the rotational symmetries of a cube, identity first.
var rotations = [24]Rotation{
	{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
	{{1, 0, 0}, {0, 0, -1}, {0, 1, 0}},
	{{1, 0, 0}, {0, -1, 0}, {0, 0, -1}},
	{{1, 0, 0}, {0, 0, 1}, {0, -1, 0}},
	{{0, -1, 0}, {1, 0, 0}, {0, 0, 1}},
	{{0, 0, 1}, {1, 0, 0}, {0, 1, 0}},
	{{0, 1, 0}, {1, 0, 0}, {0, 0, -1}},
	{{0, 0, -1}, {1, 0, 0}, {0, -1, 0}},
	{{-1, 0, 0}, {0, -1, 0}, {0, 0, 1}},
	{{-1, 0, 0}, {0, 0, -1}, {0, -1, 0}},
	{{-1, 0, 0}, {0, 1, 0}, {0, 0, -1}},
	{{-1, 0, 0}, {0, 0, 1}, {0, 1, 0}},
	{{0, 1, 0}, {-1, 0, 0}, {0, 0, 1}},
	{{0, 0, 1}, {-1, 0, 0}, {0, -1, 0}},
	{{0, -1, 0}, {-1, 0, 0}, {0, 0, -1}},
	{{0, 0, -1}, {-1, 0, 0}, {0, 1, 0}},
	{{0, 0, -1}, {0, 1, 0}, {1, 0, 0}},
	{{0, 1, 0}, {0, 0, 1}, {1, 0, 0}},
	{{0, 0, 1}, {0, -1, 0}, {1, 0, 0}},
	{{0, -1, 0}, {0, 0, -1}, {1, 0, 0}},
	{{0, 0, -1}, {0, -1, 0}, {-1, 0, 0}},
	{{0, -1, 0}, {0, 0, 1}, {-1, 0, 0}},
	{{0, 0, 1}, {0, 1, 0}, {-1, 0, 0}},
	{{0, 1, 0}, {0, 0, -1}, {-1, 0, 0}},
}

// Rotations returns the 24 axis-aligned rotations. The identity is always at index 0.
func Rotations() [24]Rotation {
	return rotations
}

// Rotate applies r to v
func Rotate(v Vector3, r Rotation) Vector3 {
	return Vector3{
		X: r[0][0]*v.X + r[0][1]*v.Y + r[0][2]*v.Z,
		Y: r[1][0]*v.X + r[1][1]*v.Y + r[1][2]*v.Z,
		Z: r[2][0]*v.X + r[2][1]*v.Y + r[2][2]*v.Z,
	}
}

// Multiply returns r*o. Applying the result equals applying o first, then r.
func (r Rotation) Multiply(o Rotation) Rotation {
	var out Rotation
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				out[i][j] += r[i][k] * o[k][j]
			}
		}
	}
	return out
}

// Transpose returns the transposed matrix, which is also the inverse rotation
func (r Rotation) Transpose() Rotation {
	var out Rotation
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = r[j][i]
		}
	}
	return out
}

// Inverse returns the rotation that undoes r
func (r Rotation) Inverse() Rotation {
	return r.Transpose()
}

// Determinant is +1 for every member of the rotation group
func (r Rotation) Determinant() int {
	return r[0][0]*(r[1][1]*r[2][2]-r[1][2]*r[2][1]) -
		r[0][1]*(r[1][0]*r[2][2]-r[1][2]*r[2][0]) +
		r[0][2]*(r[1][0]*r[2][1]-r[1][1]*r[2][0])
}

// IsRotation reports whether r is one of the 24 enumerated rotations
func IsRotation(r Rotation) bool {
	for _, candidate := range rotations {
		if candidate == r {
			return true
		}
	}
	return false
}
