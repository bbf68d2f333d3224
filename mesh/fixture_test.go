package mesh

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// Five scanners whose overlap graph is 0-1, 1-3, 1-4, 2-4.
const fixturePath = "testdata/scanners.txt"

const (
	fixtureUniqueBeacons      = 79
	fixtureMaxScannerDistance = 3621
)

// fixturePositions are the scanner origins in scanner 0's frame
var fixturePositions = map[int]Vector3{
	0: {0, 0, 0},
	1: {68, -1246, -43},
	2: {1105, -1205, 1229},
	3: {-92, -2380, -20},
	4: {-20, -1133, 1061},
}

func loadFixture(t *testing.T) map[int][]Vector3 {
	t.Helper()
	reports, err := ParseReportFile(fixturePath)
	require.NoError(t, err)
	require.Len(t, reports, 5)
	return reports
}

func fixtureScanners(t *testing.T) []*Scanner {
	t.Helper()
	scanners, err := NewScanners(context.Background(), loadFixture(t), 0)
	require.NoError(t, err)
	return scanners
}

func solvedFixture(t *testing.T) *Result {
	t.Helper()
	result, err := Solve(context.Background(), loadFixture(t), DefaultRegistrationOptions())
	require.NoError(t, err)
	return result
}

// moved applies iso to every beacon, simulating the same scan from another pose
func moved(beacons []Vector3, iso Isometry) []Vector3 {
	out := make([]Vector3, len(beacons))
	for i, b := range beacons {
		out[i] = iso.Apply(b)
	}
	return out
}
