package mesh

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalibration_SaveLoadRestore(t *testing.T) {
	solved := registeredFixture(t, DefaultRegistrationOptions())
	cal := NewCalibration("run-1", 0, solved)
	require.Len(t, cal.Scanners, 5)

	path := filepath.Join(t.TempDir(), "cache", "calibration.json")
	require.NoError(t, SaveCalibration(path, cal))

	loaded, err := LoadCalibration(path)
	require.NoError(t, err)
	assert.Equal(t, "run-1", loaded.RunID)
	for _, s := range solved {
		assert.Equal(t, s.Chain().Steps(), loaded.GetChain(s.ID).Steps())
	}

	fresh := fixtureScanners(t)
	restored, err := loaded.Restore(fresh, 0)
	require.NoError(t, err)
	require.True(t, restored)

	result, err := Unify(fresh)
	require.NoError(t, err)
	assert.Equal(t, fixtureUniqueBeacons, result.UniqueBeacons)
	assert.Equal(t, fixtureMaxScannerDistance, result.MaxScannerDistance)
}

func TestCalibration_RestoreMismatch(t *testing.T) {
	cal := NewCalibration("run-1", 0, registeredFixture(t, DefaultRegistrationOptions()))

	t.Run("different reference", func(t *testing.T) {
		scanners := fixtureScanners(t)
		ok, err := cal.Restore(scanners, 1)
		require.NoError(t, err)
		assert.False(t, ok)
		for _, s := range scanners {
			assert.False(t, s.Registered())
		}
	})

	t.Run("changed report", func(t *testing.T) {
		reports := loadFixture(t)
		reports[3] = append([]Vector3{{1, 1, 1}}, reports[3][1:]...)
		scanners, err := NewScanners(t.Context(), reports, 0)
		require.NoError(t, err)

		ok, err := cal.Restore(scanners, 0)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.False(t, scanners[0].Registered())
	})

	t.Run("extra scanner", func(t *testing.T) {
		scanners := append(fixtureScanners(t), NewScanner(9, []Vector3{{0, 0, 0}}))
		assert.False(t, cal.Matches(scanners, 0))
	})
}

func TestCalibration_PartialRunSkipsUnregistered(t *testing.T) {
	scanners := fixtureScanners(t)
	require.NoError(t, scanners[0].Register(NewChain(IdentityIsometry())))

	cal := NewCalibration("partial", 0, scanners)
	assert.Len(t, cal.Scanners, 1)
	assert.True(t, cal.GetChain(3).Empty())
	assert.False(t, cal.Matches(scanners, 0))
}

func TestLoadCalibration(t *testing.T) {
	cal, err := LoadCalibration(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Nil(t, cal)
	assert.True(t, cal.GetChain(0).Empty())

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, err = LoadCalibration(path)
	assert.ErrorContains(t, err, "parsing calibration file")
}

func TestBeaconChecksum(t *testing.T) {
	a := []Vector3{{1, 2, 3}, {4, 5, 6}}
	b := []Vector3{{4, 5, 6}, {1, 2, 3}}

	assert.Equal(t, BeaconChecksum(a), BeaconChecksum(append([]Vector3(nil), a...)))
	assert.NotEqual(t, BeaconChecksum(a), BeaconChecksum(b))
	assert.Len(t, BeaconChecksum(a), 32)
}
