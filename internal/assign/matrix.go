package assign

// Matrix is a square compatibility matrix. Entry [i][j] is true when
// participant i may give to participant j. It need not be symmetric.
type Matrix [][]bool

// DefaultMatrix allows every pair except self-gifting.
func DefaultMatrix(n int) Matrix {
	m := make(Matrix, n)
	for i := range m {
		m[i] = make([]bool, n)
		for j := range m[i] {
			m[i][j] = i != j
		}
	}
	return m
}

// Allows reports whether giver i may give to recipient j. Out of range
// indices are never allowed.
func (m Matrix) Allows(i, j int) bool {
	if i < 0 || i >= len(m) || j < 0 || j >= len(m[i]) {
		return false
	}
	return m[i][j]
}

// Clone returns a deep copy.
func (m Matrix) Clone() Matrix {
	if m == nil {
		return nil
	}
	out := make(Matrix, len(m))
	for i, row := range m {
		out[i] = append([]bool(nil), row...)
	}
	return out
}

// Set returns a copy of m with [i][j] set to allowed.
func (m Matrix) Set(i, j int, allowed bool) Matrix {
	out := m.Clone()
	out[i][j] = allowed
	return out
}

// Assignment maps each giver name to a recipient name.
type Assignment map[string]string

// Verify checks that a is a permutation of names that m allows for every giver.
func (a Assignment) Verify(names []string, m Matrix) bool {
	if len(a) != len(names) {
		return false
	}
	index := make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i
	}
	seen := make(map[string]struct{}, len(names))
	for i, giver := range names {
		target, ok := a[giver]
		if !ok {
			return false
		}
		j, ok := index[target]
		if !ok || !m.Allows(i, j) {
			return false
		}
		if _, dup := seen[target]; dup {
			return false
		}
		seen[target] = struct{}{}
	}
	return true
}
