package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManhattanDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b Vector3
		want int
	}{
		{"same point", Vector3{1, 2, 3}, Vector3{1, 2, 3}, 0},
		{"axis", Vector3{0, 0, 0}, Vector3{0, -5, 0}, 5},
		{"mixed signs", Vector3{1105, -1205, 1229}, Vector3{-92, -2380, -20}, 3621},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ManhattanDistance(tt.a, tt.b))
			assert.Equal(t, tt.want, ManhattanDistance(tt.b, tt.a))
		})
	}
}

func TestVectorArithmetic(t *testing.T) {
	a := Vector3{X: 4, Y: -2, Z: 9}
	b := Vector3{X: -1, Y: 6, Z: 3}

	assert.Equal(t, Vector3{3, 4, 12}, Translate(a, b))
	assert.Equal(t, Vector3{5, -8, 6}, Sub(a, b))
	assert.Equal(t, Vector3{-4, 2, -9}, Negate(a))
	assert.Equal(t, Vector3{}, Origin())
	assert.Equal(t, "4,-2,9", a.String())
}

func TestLessVector(t *testing.T) {
	assert.True(t, lessVector(Vector3{0, 9, 9}, Vector3{1, 0, 0}))
	assert.True(t, lessVector(Vector3{1, 0, 9}, Vector3{1, 1, 0}))
	assert.True(t, lessVector(Vector3{1, 1, 0}, Vector3{1, 1, 1}))
	assert.False(t, lessVector(Vector3{1, 1, 1}, Vector3{1, 1, 1}))
}
