package mesh

import "encoding/json"

// Isometry is a rigid transform p' = R*p + T
type Isometry struct {
	Rotation    Rotation `json:"rotation"`
	Translation Vector3  `json:"translation"`
}

// IdentityIsometry returns the transform that leaves every point in place
func IdentityIsometry() Isometry {
	return Isometry{Rotation: IdentityRotation()}
}

// Apply rotates p and then translates it
func (iso Isometry) Apply(p Vector3) Vector3 {
	return Translate(Rotate(p, iso.Rotation), iso.Translation)
}

// Inverse returns the transform that undoes iso: (R^-1, -R^-1*T)
func (iso Isometry) Inverse() Isometry {
	inv := iso.Rotation.Inverse()
	return Isometry{
		Rotation:    inv,
		Translation: Negate(Rotate(iso.Translation, inv)),
	}
}

// Compose returns a single isometry equivalent to applying first, then second
func Compose(first, second Isometry) Isometry {
	return Isometry{
		Rotation:    second.Rotation.Multiply(first.Rotation),
		Translation: second.Apply(first.Translation),
	}
}

// Chain is an ordered, immutable sequence of isometries that carries points
// from a scanner's local frame into the reference frame. Steps apply in order.
// Operations return new chains and never modify the receiver's steps.
type Chain struct {
	steps []Isometry
}

// NewChain builds a chain from the given steps
func NewChain(steps ...Isometry) Chain {
	return Chain{steps: append([]Isometry(nil), steps...)}
}

// ChainThrough returns [iso] ++ via: move into the frame of an already
// registered scanner, then follow that scanner's own chain.
func ChainThrough(iso Isometry, via Chain) Chain {
	steps := make([]Isometry, 0, len(via.steps)+1)
	steps = append(steps, iso)
	steps = append(steps, via.steps...)
	return Chain{steps: steps}
}

// Then returns a chain with iso appended after the existing steps
func (c Chain) Then(iso Isometry) Chain {
	steps := make([]Isometry, 0, len(c.steps)+1)
	steps = append(steps, c.steps...)
	steps = append(steps, iso)
	return Chain{steps: steps}
}

// Len returns the number of steps
func (c Chain) Len() int {
	return len(c.steps)
}

// Empty reports whether the chain has no steps (the scanner is unregistered)
func (c Chain) Empty() bool {
	return len(c.steps) == 0
}

// Steps returns a copy of the chain's isometries in application order
func (c Chain) Steps() []Isometry {
	return append([]Isometry(nil), c.steps...)
}

// Parent returns the chain without its first step: the chain of the scanner
// this one was linked through. The reference's chain has no parent.
func (c Chain) Parent() (Chain, bool) {
	if len(c.steps) < 2 {
		return Chain{}, false
	}
	return Chain{steps: c.steps[1:]}, true
}

// Apply folds every step over p, left to right
func (c Chain) Apply(p Vector3) Vector3 {
	for _, iso := range c.steps {
		p = iso.Apply(p)
	}
	return p
}

// ApplyAll transforms every point in points
func (c Chain) ApplyAll(points []Vector3) []Vector3 {
	result := make([]Vector3, len(points))
	for i, p := range points {
		result[i] = c.Apply(p)
	}
	return result
}

// Flatten collapses the chain into one isometry. An empty chain flattens to identity.
func (c Chain) Flatten() Isometry {
	result := IdentityIsometry()
	for _, iso := range c.steps {
		result = Compose(result, iso)
	}
	return result
}

// MarshalJSON encodes the chain as an array of isometries
func (c Chain) MarshalJSON() ([]byte, error) {
	if c.steps == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.steps)
}

// UnmarshalJSON decodes an array of isometries
func (c *Chain) UnmarshalJSON(data []byte) error {
	var steps []Isometry
	if err := json.Unmarshal(data, &steps); err != nil {
		return err
	}
	c.steps = steps
	return nil
}
