package mesh

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Scanner holds one scanner's beacons in its local frame, their fingerprint,
// and the transform chain into the reference frame once registered.
type Scanner struct {
	ID        int
	Beacons   []Vector3
	Distances []Distance

	unique []Distance

	mu    sync.RWMutex
	chain Chain
}

// NewScanner copies beacons and computes the scanner's fingerprint
func NewScanner(id int, beacons []Vector3) *Scanner {
	b := append([]Vector3(nil), beacons...)
	distances := Fingerprint(b)
	return &Scanner{
		ID:        id,
		Beacons:   b,
		Distances: distances,
		unique:    UniqueDistances(distances),
	}
}

// NewScanners builds one Scanner per report, fingerprinting them on up to
// workers goroutines. The result is ordered by scanner ID.
func NewScanners(ctx context.Context, reports map[int][]Vector3, workers int) ([]*Scanner, error) {
	if len(reports) == 0 {
		return nil, ErrEmptyInput
	}

	ids := make([]int, 0, len(reports))
	for id := range reports {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	scanners := make([]*Scanner, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			scanners[i] = NewScanner(id, reports[id])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fingerprinting scanners: %w", err)
	}

	return scanners, nil
}

// UniqueDistances returns the cached, length-sorted distances whose lengths
// occur only once within this scanner
func (s *Scanner) UniqueDistances() []Distance {
	return s.unique
}

// Register sets the scanner's transform chain. The chain can be set only once.
func (s *Scanner) Register(chain Chain) error {
	if chain.Empty() {
		return fmt.Errorf("scanner %d: empty transform chain", s.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.chain.Empty() {
		return fmt.Errorf("scanner %d: %w", s.ID, ErrAlreadyRegistered)
	}
	s.chain = chain
	return nil
}

// Registered reports whether the scanner has a transform chain
func (s *Scanner) Registered() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.chain.Empty()
}

// Chain returns the scanner's transform chain (empty when unregistered)
func (s *Scanner) Chain() Chain {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chain
}

// GlobalBeacons returns the scanner's beacons in the reference frame
func (s *Scanner) GlobalBeacons() ([]Vector3, error) {
	chain := s.Chain()
	if chain.Empty() {
		return nil, fmt.Errorf("scanner %d: %w", s.ID, ErrNotRegistered)
	}
	return chain.ApplyAll(s.Beacons), nil
}

// Position returns the scanner's origin in the reference frame
func (s *Scanner) Position() (Vector3, error) {
	chain := s.Chain()
	if chain.Empty() {
		return Vector3{}, fmt.Errorf("scanner %d: %w", s.ID, ErrNotRegistered)
	}
	return chain.Apply(Origin()), nil
}
