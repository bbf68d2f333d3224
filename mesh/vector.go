package mesh

import "fmt"

// Vector3 is an integer point or offset in a scanner's coordinate frame
type Vector3 struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Origin returns the zero vector
func Origin() Vector3 {
	return Vector3{}
}

// String formats the vector the same way scanner reports list beacons
func (v Vector3) String() string {
	return fmt.Sprintf("%d,%d,%d", v.X, v.Y, v.Z)
}

// Translate adds the translation t to v
func Translate(v, t Vector3) Vector3 {
	return Vector3{X: v.X + t.X, Y: v.Y + t.Y, Z: v.Z + t.Z}
}

// Negate flips the sign of every component
func Negate(v Vector3) Vector3 {
	return Vector3{X: -v.X, Y: -v.Y, Z: -v.Z}
}

// Sub returns a - b
func Sub(a, b Vector3) Vector3 {
	return Translate(a, Negate(b))
}

// ManhattanDistance returns the sum of absolute coordinate differences
func ManhattanDistance(a, b Vector3) int {
	return absInt(a.X-b.X) + absInt(a.Y-b.Y) + absInt(a.Z-b.Z)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// lessVector orders vectors lexicographically by X, Y, Z
func lessVector(a, b Vector3) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}
