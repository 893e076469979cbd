package models

// ColorRange is a named inclusive RGB bound used as a membership test.
// Lower and Upper are per-channel bounds with Lower[i] <= Upper[i].
type ColorRange struct {
	Name  string   `json:"name"`
	Lower [3]uint8 `json:"lower"`
	Upper [3]uint8 `json:"upper"`
}

// Contains reports whether the RGB triple lies inside the range.
func (cr ColorRange) Contains(r, g, b uint8) bool {
	return r >= cr.Lower[0] && r <= cr.Upper[0] &&
		g >= cr.Lower[1] && g <= cr.Upper[1] &&
		b >= cr.Lower[2] && b <= cr.Upper[2]
}
