package repository

// Bar is an OKX candle resolution.
type Bar string

const (
	Bar15m Bar = "15m"
	Bar1H  Bar = "1H"
	Bar4H  Bar = "4H"
	Bar1D  Bar = "1D"
)

// IsValidBar returns true if b is a supported bar.
func IsValidBar(b Bar) bool {
	switch b {
	case Bar15m, Bar1H, Bar4H, Bar1D:
		return true
	default:
		return false
	}
}

// DefaultBar returns the default bar.
func DefaultBar() Bar { return Bar1H }

// NormalizeBar converts raw string to a valid bar (or default).
func NormalizeBar(s string) Bar {
	if s == "" {
		return DefaultBar()
	}
	b := Bar(s)
	if IsValidBar(b) {
		return b
	}
	return DefaultBar()
}
