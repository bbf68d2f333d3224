package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeUnique(t *testing.T) {
	d := func(length int) Distance { return Distance{Length: length} }
	a := []Distance{d(1), d(4), d(5), d(9)}
	b := []Distance{d(2), d(4), d(9), d(12)}

	pairs := mergeUnique(a, b)
	require.Len(t, pairs, 2)
	assert.Equal(t, 4, pairs[0].A.Length)
	assert.Equal(t, 9, pairs[1].B.Length)

	assert.Empty(t, mergeUnique(a, nil))
	assert.Empty(t, mergeUnique(nil, b))
}

func TestMatchDistances_Fixture(t *testing.T) {
	scanners := fixtureScanners(t)

	tests := []struct {
		a, b int
		want int
	}{
		{0, 1, 62},
		{0, 2, 28},
		{0, 3, 17},
		{0, 0, 251},
	}

	for _, tt := range tests {
		pairs := MatchDistances(scanners[tt.a].Distances, scanners[tt.b].Distances)
		assert.Len(t, pairs, tt.want, "scanners %d and %d", tt.a, tt.b)
		for _, p := range pairs {
			assert.Equal(t, p.A.Length, p.B.Length)
		}
	}
}
