package mesh

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kwv/beaconmesh/logger"
)

// DefaultCalibrationCachePath is the default path for resolved transform chains
const DefaultCalibrationCachePath = ".calibration-cache.json"

// LoadCalibration loads resolved chains from a JSON cache file.
// A missing file returns (nil, nil).
func LoadCalibration(path string) (*CalibrationData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading calibration file: %w", err)
	}

	var cal CalibrationData
	if err := json.Unmarshal(data, &cal); err != nil {
		return nil, fmt.Errorf("parsing calibration file: %w", err)
	}

	return &cal, nil
}

// SaveCalibration writes resolved chains to a JSON cache file
func SaveCalibration(path string, cal *CalibrationData) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating calibration directory: %w", err)
	}

	cal.LastUpdated = time.Now().Unix()

	data, err := json.MarshalIndent(cal, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling calibration data: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing calibration file: %w", err)
	}

	return nil
}

// BeaconChecksum fingerprints a beacon list so a cached chain can be matched
// to the report it was computed from. Order matters.
func BeaconChecksum(beacons []Vector3) string {
	h := sha256.New()
	for _, b := range beacons {
		_, _ = fmt.Fprintf(h, "%d,%d,%d\n", b.X, b.Y, b.Z)
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// NewCalibration captures the chains of registered scanners
func NewCalibration(runID string, reference int, scanners []*Scanner) *CalibrationData {
	now := time.Now().Unix()
	cal := &CalibrationData{
		RunID:            runID,
		ReferenceScanner: reference,
		Scanners:         make(map[int]ScannerCalibration, len(scanners)),
		LastUpdated:      now,
	}

	for _, s := range scanners {
		chain := s.Chain()
		if chain.Empty() {
			continue
		}
		cal.Scanners[s.ID] = ScannerCalibration{
			Chain:       chain,
			BeaconCount: len(s.Beacons),
			Checksum:    BeaconChecksum(s.Beacons),
			LastUpdated: now,
		}
	}

	return cal
}

// GetChain returns the cached chain for a scanner, or an empty chain
func (c *CalibrationData) GetChain(id int) Chain {
	if c == nil || c.Scanners == nil {
		return Chain{}
	}
	return c.Scanners[id].Chain
}

// Matches reports whether the cache was computed against the same reference
// and exactly these beacon reports
func (c *CalibrationData) Matches(scanners []*Scanner, reference int) bool {
	if c == nil || c.ReferenceScanner != reference || len(c.Scanners) != len(scanners) {
		return false
	}

	for _, s := range scanners {
		sc, ok := c.Scanners[s.ID]
		if !ok || sc.Chain.Empty() {
			return false
		}
		if sc.BeaconCount != len(s.Beacons) || sc.Checksum != BeaconChecksum(s.Beacons) {
			return false
		}
	}
	return true
}

// Restore registers every scanner from the cache. It is all or nothing: a
// chain may pass through other scanners' frames, so a single changed report
// invalidates the whole cache. Returns false when nothing was restored.
func (c *CalibrationData) Restore(scanners []*Scanner, reference int) (bool, error) {
	if !c.Matches(scanners, reference) {
		logger.Infof("[CALIBRATION] cache does not match current reports, recalibration needed")
		return false, nil
	}

	for _, s := range scanners {
		if err := s.Register(c.Scanners[s.ID].Chain); err != nil {
			return false, err
		}
	}

	logger.Infof("[CALIBRATION] restored %d chains from run %s", len(scanners), c.RunID)
	return true, nil
}
