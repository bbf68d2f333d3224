package mesh

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnify_Fixture(t *testing.T) {
	scanners := registeredFixture(t, DefaultRegistrationOptions())

	result, err := Unify(scanners)
	require.NoError(t, err)
	assert.Equal(t, fixtureUniqueBeacons, result.UniqueBeacons)
	assert.Equal(t, fixtureMaxScannerDistance, result.MaxScannerDistance)

	owners := make(map[int]int)
	for i, b := range result.Beacons {
		owners[b.Scanner]++
		if i > 0 {
			assert.True(t, lessVector(result.Beacons[i-1].Position, b.Position), "beacons not sorted at %d", i)
		}
	}
	assert.Equal(t, map[int]int{0: 25, 1: 13, 2: 20, 3: 13, 4: 8}, owners)

	wantCounts := []int{25, 25, 26, 25, 26}
	for i, s := range result.Scanners {
		assert.Equal(t, i, s.ID)
		assert.Equal(t, wantCounts[i], s.BeaconCount)
		assert.Equal(t, scanners[i].Chain().Len(), s.Chain.Len())
	}
}

func TestUnify_Idempotent(t *testing.T) {
	scanners := registeredFixture(t, DefaultRegistrationOptions())

	first, err := Unify(scanners)
	require.NoError(t, err)
	second, err := Unify(scanners)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestUnify_InputOrderIrrelevant(t *testing.T) {
	scanners := registeredFixture(t, DefaultRegistrationOptions())
	reversed := make([]*Scanner, len(scanners))
	for i, s := range scanners {
		reversed[len(scanners)-1-i] = s
	}

	a, err := Unify(scanners)
	require.NoError(t, err)
	b, err := Unify(reversed)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestUnify_RequiresRegistration(t *testing.T) {
	scanners := fixtureScanners(t)
	_, err := Unify(scanners)
	assert.ErrorIs(t, err, ErrNotRegistered)

	_, err = Unify(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestUnify_SharedBeaconsCollapse(t *testing.T) {
	a := NewScanner(0, []Vector3{{0, 0, 0}, {1, 1, 1}})
	b := NewScanner(1, []Vector3{{0, 0, 0}, {5, 5, 5}})
	require.NoError(t, a.Register(NewChain(IdentityIsometry())))
	// b sits at (1,1,1), so its origin beacon is a's second beacon
	require.NoError(t, b.Register(NewChain(Isometry{Rotation: IdentityRotation(), Translation: Vector3{1, 1, 1}})))

	result, err := Unify([]*Scanner{b, a})
	require.NoError(t, err)
	assert.Equal(t, []Beacon{
		{Position: Vector3{0, 0, 0}, Scanner: 0},
		{Position: Vector3{1, 1, 1}, Scanner: 0},
		{Position: Vector3{6, 6, 6}, Scanner: 1},
	}, result.Beacons)
	assert.Equal(t, 3, result.UniqueBeacons)
	assert.Equal(t, 3, result.MaxScannerDistance)
}

func TestMaxPairwiseDistance(t *testing.T) {
	assert.Zero(t, MaxPairwiseDistance(nil))
	assert.Zero(t, MaxPairwiseDistance([]Vector3{{4, 4, 4}}))
	assert.Equal(t, 3621, MaxPairwiseDistance([]Vector3{
		fixturePositions[0],
		fixturePositions[2],
		fixturePositions[3],
	}))
}

func TestSolveScanners_SetsRunMetadata(t *testing.T) {
	opts := DefaultRegistrationOptions()
	opts.Reference = 4
	result, err := SolveScanners(context.Background(), fixtureScanners(t), opts)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Reference)
	assert.Len(t, result.RunID, 36)
}
