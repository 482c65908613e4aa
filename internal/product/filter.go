package product

// Filter selects records within one partition. Zero values match everything.
type Filter struct {
	ID      string
	Barcode string
	Avoided *bool
	// Limit caps the number of records returned, newest first. 0 means no limit.
	Limit int
}

// Matches reports whether p satisfies every set criterion.
func (f Filter) Matches(p *Product) bool {
	if p == nil {
		return false
	}
	if f.ID != "" && p.ID != f.ID {
		return false
	}
	if f.Barcode != "" && p.Barcode != f.Barcode {
		return false
	}
	if f.Avoided != nil && p.Avoided != *f.Avoided {
		return false
	}
	return true
}

// Bool returns a pointer to v, for optional filter flags.
func Bool(v bool) *bool {
	return &v
}
