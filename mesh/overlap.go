package mesh

// DistancePair is a distance seen in scanner A and one of equal length in scanner B
type DistancePair struct {
	A Distance
	B Distance
}

// MatchDistances returns the pairs of uniquely-valued distances that two
// fingerprints have in common
func MatchDistances(a, b []Distance) []DistancePair {
	return mergeUnique(UniqueDistances(a), UniqueDistances(b))
}

// mergeUnique merge-joins two length-sorted, duplicate-free distance lists
func mergeUnique(a, b []Distance) []DistancePair {
	var pairs []DistancePair

	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Length == b[j].Length:
			pairs = append(pairs, DistancePair{A: a[i], B: b[j]})
			i++
			j++
		case a[i].Length < b[j].Length:
			i++
		default:
			j++
		}
	}

	return pairs
}
