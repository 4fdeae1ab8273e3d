package entity

// PlaneFilter selects which tail codes are tracked.
// A non-empty Include list wins and Exclude is ignored.
type PlaneFilter struct {
	Include []string
	Exclude []string
}

// Allows reports whether the tail code passes the filter
func (f PlaneFilter) Allows(tailCode string) bool {
	if len(f.Include) > 0 {
		return contains(f.Include, tailCode)
	}
	if len(f.Exclude) > 0 {
		return !contains(f.Exclude, tailCode)
	}
	return true
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
