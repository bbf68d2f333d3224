package mesh

// Correspondence is a hypothesis that beacon B in scanner A is the same
// physical point as X in scanner B, and C in A is the same as Y in B
type Correspondence struct {
	B Vector3
	X Vector3
	C Vector3
	Y Vector3
}

// ResolveCorrespondences turns matched distances into beacon identity hypotheses.
//
// For a matched edge b-c (A) / {x1,x2} (B), another matched edge touching b in A
// and x1 or x2 in B decides which endpoint is x. A third matched edge touching c
// in A and y in B confirms the hypothesis. Edges without both links are dropped.
// Each distinct hypothesis is returned once, in input order.
func ResolveCorrespondences(pairs []DistancePair) []Correspondence {
	var result []Correspondence
	seen := make(map[Correspondence]struct{})

	for i, pair := range pairs {
		b, c := pair.A.First, pair.A.Second

		x, y, ok := orientEdge(pairs, i, b, pair.B)
		if !ok {
			continue
		}
		if !hasLink(pairs, i, c, y) {
			continue
		}

		h := Correspondence{B: b, X: x, C: c, Y: y}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		result = append(result, h)
	}

	return result
}

// orientEdge finds which endpoint of edge corresponds to b by looking for
// another matched pair whose A edge contains b
func orientEdge(pairs []DistancePair, skip int, b Vector3, edge Distance) (x, y Vector3, ok bool) {
	for j, other := range pairs {
		if j == skip || !other.A.Has(b) {
			continue
		}
		if other.B.Has(edge.First) {
			return edge.First, edge.Second, true
		}
		if other.B.Has(edge.Second) {
			return edge.Second, edge.First, true
		}
	}
	return Vector3{}, Vector3{}, false
}

// hasLink reports whether some other matched pair joins a (scanner A) to b (scanner B)
func hasLink(pairs []DistancePair, skip int, a, b Vector3) bool {
	for k, other := range pairs {
		if k != skip && other.A.Has(a) && other.B.Has(b) {
			return true
		}
	}
	return false
}
