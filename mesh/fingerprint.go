package mesh

import "sort"

// Distance is the Manhattan distance between two beacons of one scanner.
// Both endpoints are kept so matched distances can be traced back to beacons.
type Distance struct {
	First  Vector3 `json:"first"`
	Second Vector3 `json:"second"`
	Length int     `json:"length"`
}

// NewDistance measures the distance between two beacons
func NewDistance(first, second Vector3) Distance {
	return Distance{
		First:  first,
		Second: second,
		Length: ManhattanDistance(first, second),
	}
}

// Has reports whether beacon is one of the endpoints
func (d Distance) Has(beacon Vector3) bool {
	return d.First == beacon || d.Second == beacon
}

// Fingerprint returns the n*(n-1)/2 pairwise distances of beacons.
// Pairs are emitted in index order (i < j), so equal input gives equal output.
func Fingerprint(beacons []Vector3) []Distance {
	n := len(beacons)
	if n < 2 {
		return nil
	}

	distances := make([]Distance, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			distances = append(distances, NewDistance(beacons[i], beacons[j]))
		}
	}
	return distances
}

// UniqueDistances drops every distance whose length occurs more than once and
// returns the rest sorted by length. A repeated length cannot identify an edge.
func UniqueDistances(distances []Distance) []Distance {
	counts := make(map[int]int, len(distances))
	for _, d := range distances {
		counts[d.Length]++
	}

	unique := make([]Distance, 0, len(distances))
	for _, d := range distances {
		if counts[d.Length] == 1 {
			unique = append(unique, d)
		}
	}

	sort.Slice(unique, func(i, j int) bool {
		return unique[i].Length < unique[j].Length
	})
	return unique
}
