package mesh

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/kwv/beaconmesh/logger"
)

// RegistrationOptions configures the registration of a set of scanners
type RegistrationOptions struct {
	// Reference is the scanner whose frame every other scanner is mapped into.
	Reference int `yaml:"reference" json:"reference"`
	// Match holds the pairwise matching thresholds.
	Match MatchOptions `yaml:",inline" json:"match"`
	// MaxPasses caps the number of frontier passes. Zero means one per scanner.
	MaxPasses int `yaml:"maxPasses,omitempty" json:"maxPasses,omitempty"`
	// Workers bounds concurrent fingerprinting and matching. Zero means GOMAXPROCS.
	Workers int `yaml:"workers,omitempty" json:"workers,omitempty"`
}

// DefaultRegistrationOptions uses scanner 0 as the reference and the default thresholds
func DefaultRegistrationOptions() RegistrationOptions {
	return RegistrationOptions{
		Reference: 0,
		Match:     DefaultMatchOptions(),
	}
}

func (o RegistrationOptions) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Registrar links scanners to the reference frame.
//
// Registration is a breadth-first walk over the unknown overlap graph. Each
// pass matches every scanner registered in the previous pass (the frontier)
// against every still-unregistered scanner. Every (registered, unregistered)
// pair is therefore tried exactly once. When a frontier is exhausted with
// scanners left over, the overlap graph is disconnected.
type Registrar struct {
	opts RegistrationOptions
}

// NewRegistrar creates a registrar with the given options
func NewRegistrar(opts RegistrationOptions) *Registrar {
	return &Registrar{opts: opts}
}

// link records the frontier scanner an unregistered scanner was matched to
type link struct {
	via   *Scanner
	match Match
}

// Register assigns a transform chain to every scanner. Scanners that are
// already registered, for example restored from a calibration cache, seed
// the first frontier together with the reference.
func (r *Registrar) Register(ctx context.Context, scanners []*Scanner) error {
	if len(scanners) == 0 {
		return ErrEmptyInput
	}

	sorted := append([]*Scanner(nil), scanners...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var ref *Scanner
	for _, s := range sorted {
		if s.ID == r.opts.Reference {
			ref = s
			break
		}
	}
	if ref == nil {
		return fmt.Errorf("scanner %d: %w", r.opts.Reference, ErrMissingReference)
	}
	if !ref.Registered() {
		if err := ref.Register(NewChain(IdentityIsometry())); err != nil {
			return err
		}
	}

	var frontier, unregistered []*Scanner
	for _, s := range sorted {
		if s.Registered() {
			frontier = append(frontier, s)
		} else {
			unregistered = append(unregistered, s)
		}
	}

	maxPasses := r.opts.MaxPasses
	if maxPasses <= 0 {
		maxPasses = len(sorted)
	}

	logger.Infof("[REGISTER] %d scanners, reference %d, %d already registered",
		len(sorted), ref.ID, len(frontier))

	passes := 0
	for len(unregistered) > 0 {
		if len(frontier) == 0 || passes >= maxPasses {
			ids := make([]int, len(unregistered))
			for i, s := range unregistered {
				ids[i] = s.ID
			}
			logger.Warnf("[REGISTER] stalled after %d passes, unregistered: %v", passes, ids)
			return &StalledError{Unregistered: ids, Passes: passes}
		}
		passes++

		links, err := r.linkPass(ctx, frontier, unregistered)
		if err != nil {
			return err
		}

		var next, remaining []*Scanner
		for i, s := range unregistered {
			l := links[i]
			if l == nil {
				remaining = append(remaining, s)
				continue
			}
			if err := s.Register(ChainThrough(l.match.Isometry, l.via.Chain())); err != nil {
				return err
			}
			logger.Infof("[REGISTER] pass %d: scanner %d -> scanner %d (overlap=%d, hypotheses=%d)",
				passes, s.ID, l.via.ID, l.match.Overlap, l.match.Hypotheses)
			next = append(next, s)
		}

		logger.Debugf("[REGISTER] pass %d registered %d, %d remaining", passes, len(next), len(remaining))
		frontier, unregistered = next, remaining
	}

	logger.Infof("[REGISTER] all %d scanners registered in %d passes", len(sorted), passes)
	return nil
}

// linkPass tries every frontier scanner against every unregistered scanner.
// Each unregistered scanner is handled by a single goroutine that stops at the
// first frontier scanner (in ID order) it overlaps, so the outcome does not
// depend on scheduling.
func (r *Registrar) linkPass(ctx context.Context, frontier, unregistered []*Scanner) ([]*link, error) {
	links := make([]*link, len(unregistered))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.workers())

	for i, u := range unregistered {
		g.Go(func() error {
			for _, f := range frontier {
				if err := ctx.Err(); err != nil {
					return err
				}
				m := FindTransform(f, u, r.opts.Match)
				if m.Found {
					links[i] = &link{via: f, match: m}
					return nil
				}
				logger.Debugf("[REGISTER] scanner %d vs %d: no overlap (pairs=%d, hypotheses=%d)",
					f.ID, u.ID, m.Pairs, m.Hypotheses)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("matching scanners: %w", err)
	}
	return links, nil
}
