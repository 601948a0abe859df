package combat

const (
	BarMin = 0.0
	BarMax = 100.0
)

// Bar is the oscillating timing indicator.
type Bar struct {
	Value     float64 `json:"value"`
	Direction int     `json:"direction"` // +1 or -1
}

// Advance moves the bar one step and bounces at either bound.
func (b *Bar) Advance(step float64) {
	next := b.Value + float64(b.Direction)*step
	if next >= BarMax {
		next = BarMax
		b.Direction = -1
	} else if next <= BarMin {
		next = BarMin
		b.Direction = 1
	}
	b.Value = next
}

// Reset puts the bar at its start position. Reversed bars start at the top.
func (b *Bar) Reset(reverse bool) {
	if reverse {
		b.Value, b.Direction = BarMax, -1
		return
	}
	b.Value, b.Direction = BarMin, 1
}

// Quality is the outcome band of a sampled bar position.
type Quality string

const (
	Perfect Quality = "perfect"
	Good    Quality = "good"
	Miss    Quality = "miss"
)

// Classify maps v to a hit quality and its damage multiplier.
func Classify(v float64, z Zones, m Multipliers, widened bool) (Quality, float64) {
	size := z.PerfectSize
	if widened {
		size = z.PerfectSizeWidened
	}
	switch {
	case v >= z.PerfectStart && v <= z.PerfectStart+size:
		return Perfect, m.Perfect
	case v >= z.GoodStart && v <= z.GoodEnd:
		return Good, m.Good
	default:
		return Miss, m.Miss
	}
}
