package domain

const (
	DefaultPage  = 1
	DefaultCount = 10
	MaxCount     = 100
)

// Page is 1-based; Count is already clamped to [1, MaxCount] by the caller.
type Page struct {
	Page  int
	Count int
}

func (p Page) Offset() uint64 { return uint64((p.Page - 1) * p.Count) }

func (p Page) Limit() uint64 { return uint64(p.Count) }
