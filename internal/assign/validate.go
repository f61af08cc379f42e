package assign

// Validate checks that m is square with one row per name and that every
// participant has at least one permissible recipient. It stops at the first
// empty row. Passing Validate does not guarantee an assignment exists.
func Validate(names []string, m Matrix) error {
	n := len(names)
	if len(m) != n {
		return &ShapeError{Participants: n, Rows: len(m), Row: -1}
	}
	for i, row := range m {
		if len(row) != n {
			return &ShapeError{Participants: n, Rows: len(m), Row: i, Columns: len(row)}
		}
	}
	for i, row := range m {
		if !anyTrue(row) {
			return &InfeasibleRowError{Index: i, Name: names[i]}
		}
	}
	return nil
}

func anyTrue(row []bool) bool {
	for _, ok := range row {
		if ok {
			return true
		}
	}
	return false
}
