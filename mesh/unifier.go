package mesh

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/kwv/beaconmesh/logger"
)

// Beacon is a unique beacon in the reference frame
type Beacon struct {
	Position Vector3 `json:"position"`
	// Scanner is the lowest scanner ID that observed the beacon.
	Scanner int `json:"scanner"`
}

// ScannerResult is one registered scanner in the reference frame
type ScannerResult struct {
	ID          int     `json:"id"`
	Position    Vector3 `json:"position"`
	BeaconCount int     `json:"beaconCount"`
	Chain       Chain   `json:"chain"`
}

// Result is the unified view of all scanners
type Result struct {
	RunID              string          `json:"runId,omitempty"`
	Reference          int             `json:"reference"`
	UniqueBeacons      int             `json:"uniqueBeacons"`
	MaxScannerDistance int             `json:"maxScannerDistance"`
	Beacons            []Beacon        `json:"beacons"`
	Scanners           []ScannerResult `json:"scanners"`
}

// Unify maps every scanner's beacons into the reference frame, collapses
// beacons seen by several scanners, and measures scanner separations.
// Every scanner must be registered.
func Unify(scanners []*Scanner) (*Result, error) {
	if len(scanners) == 0 {
		return nil, ErrEmptyInput
	}

	sorted := append([]*Scanner(nil), scanners...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	owners := make(map[Vector3]int)
	positions := make([]Vector3, 0, len(sorted))
	result := &Result{Scanners: make([]ScannerResult, 0, len(sorted))}

	for _, s := range sorted {
		global, err := s.GlobalBeacons()
		if err != nil {
			return nil, err
		}
		pos, err := s.Position()
		if err != nil {
			return nil, err
		}

		for _, p := range global {
			if _, seen := owners[p]; !seen {
				owners[p] = s.ID
			}
		}

		positions = append(positions, pos)
		result.Scanners = append(result.Scanners, ScannerResult{
			ID:          s.ID,
			Position:    pos,
			BeaconCount: len(s.Beacons),
			Chain:       s.Chain(),
		})
	}

	result.Beacons = make([]Beacon, 0, len(owners))
	for p, id := range owners {
		result.Beacons = append(result.Beacons, Beacon{Position: p, Scanner: id})
	}
	sort.Slice(result.Beacons, func(i, j int) bool {
		return lessVector(result.Beacons[i].Position, result.Beacons[j].Position)
	})

	result.UniqueBeacons = len(result.Beacons)
	result.MaxScannerDistance = MaxPairwiseDistance(positions)
	return result, nil
}

// MaxPairwiseDistance returns the largest Manhattan distance between any two
// points, or 0 for fewer than two points
func MaxPairwiseDistance(points []Vector3) int {
	best := 0
	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			if d := ManhattanDistance(points[i], points[j]); d > best {
				best = d
			}
		}
	}
	return best
}

// Solve registers the reports and unifies them. No partial result is
// returned when registration fails.
func Solve(ctx context.Context, reports map[int][]Vector3, opts RegistrationOptions) (*Result, error) {
	scanners, err := NewScanners(ctx, reports, opts.workers())
	if err != nil {
		return nil, err
	}
	return SolveScanners(ctx, scanners, opts)
}

// SolveScanners registers prepared scanners and unifies them
func SolveScanners(ctx context.Context, scanners []*Scanner, opts RegistrationOptions) (*Result, error) {
	if err := NewRegistrar(opts).Register(ctx, scanners); err != nil {
		return nil, fmt.Errorf("registering scanners: %w", err)
	}

	result, err := Unify(scanners)
	if err != nil {
		return nil, fmt.Errorf("unifying scanners: %w", err)
	}
	result.RunID = uuid.New().String()
	result.Reference = opts.Reference

	logger.Infof("[SOLVE] run %s: %d unique beacons, max scanner distance %d",
		result.RunID, result.UniqueBeacons, result.MaxScannerDistance)
	return result, nil
}
