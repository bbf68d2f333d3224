package mesh

// DefaultCorroboration is the number of distinct hypotheses that must agree on
// a rotation and translation before it is considered
const DefaultCorroboration = 2

// DefaultMinOverlap is the number of beacons two scanners must share for a
// transform between them to be accepted
const DefaultMinOverlap = 12

// MatchOptions tunes pairwise matching
type MatchOptions struct {
	// Corroboration is how many distinct hypotheses must produce the same (R, t).
	Corroboration int `yaml:"corroboration" json:"corroboration"`
	// MinOverlap is how many of B's beacons must land on A's beacons under a
	// corroborated (R, t). Zero skips the check and accepts the first
	// corroborated transform, which can admit spurious matches.
	MinOverlap int `yaml:"minOverlap" json:"minOverlap"`
}

// DefaultMatchOptions returns the thresholds suited to reports that share at
// least 12 beacons wherever they overlap
func DefaultMatchOptions() MatchOptions {
	return MatchOptions{
		Corroboration: DefaultCorroboration,
		MinOverlap:    DefaultMinOverlap,
	}
}

// SolveOrientation searches the 24 rotations for each hypothesis (b,x,c,y),
// keeping (R, t) when t = b - R*x equals c - R*y. The first (R, t) reached by
// corroboration hypotheses and approved by accept wins. A rejected (R, t) is not
// offered again. accept may be nil.
func SolveOrientation(hypotheses []Correspondence, corroboration int, accept func(Isometry) bool) (Isometry, bool) {
	if corroboration <= 0 {
		corroboration = DefaultCorroboration
	}

	tally := make(map[Isometry]int)
	rejected := make(map[Isometry]struct{})

	for _, h := range hypotheses {
		for _, r := range rotations {
			t := Sub(h.B, Rotate(h.X, r))
			if t != Sub(h.C, Rotate(h.Y, r)) {
				continue
			}

			candidate := Isometry{Rotation: r, Translation: t}
			if _, ok := rejected[candidate]; ok {
				continue
			}

			tally[candidate]++
			if tally[candidate] < corroboration {
				continue
			}
			if accept == nil || accept(candidate) {
				return candidate, true
			}
			rejected[candidate] = struct{}{}
		}
	}

	return Isometry{}, false
}

// CountOverlap returns how many points of b land exactly on a point of a under iso
func CountOverlap(a, b []Vector3, iso Isometry) int {
	set := make(map[Vector3]struct{}, len(a))
	for _, p := range a {
		set[p] = struct{}{}
	}

	count := 0
	for _, p := range b {
		if _, ok := set[iso.Apply(p)]; ok {
			count++
		}
	}
	return count
}

// Match describes one pairwise matching attempt between scanners A and B
type Match struct {
	// Isometry carries B's beacons into A's frame. Valid only when Found.
	Isometry   Isometry `json:"isometry"`
	Found      bool     `json:"found"`
	Pairs      int      `json:"pairs"`
	Hypotheses int      `json:"hypotheses"`
	Overlap    int      `json:"overlap"`
}

// FindTransform looks for the isometry that maps scanner b's frame into scanner a's
func FindTransform(a, b *Scanner, opts MatchOptions) Match {
	pairs := mergeUnique(a.UniqueDistances(), b.UniqueDistances())
	hypotheses := ResolveCorrespondences(pairs)

	m := Match{Pairs: len(pairs), Hypotheses: len(hypotheses)}
	if len(hypotheses) == 0 {
		return m
	}

	accept := func(iso Isometry) bool {
		m.Overlap = CountOverlap(a.Beacons, b.Beacons, iso)
		return m.Overlap >= opts.MinOverlap
	}
	if opts.MinOverlap <= 0 {
		accept = nil
	}

	iso, ok := SolveOrientation(hypotheses, opts.Corroboration, accept)
	if !ok {
		m.Overlap = 0
		return m
	}
	if accept == nil {
		m.Overlap = CountOverlap(a.Beacons, b.Beacons, iso)
	}
	m.Isometry = iso
	m.Found = true
	return m
}
