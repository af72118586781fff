package domain

const (
	DefaultPageSize = 10
	MaxPageSize     = 1000
)

// Page is an offset window: skip From rows, return at most Size.
type Page struct {
	From int
	Size int
}

func (p Page) Normalize() Page {
	if p.From < 0 {
		p.From = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}
