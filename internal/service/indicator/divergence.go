package indicator

import "math"

type DivergenceType string

const (
	BullishRegular DivergenceType = "bullish_regular" // price lower low, RSI higher low
	BearishRegular DivergenceType = "bearish_regular" // price higher high, RSI lower high
	BullishHidden  DivergenceType = "bullish_hidden"  // price higher low, RSI lower low
	BearishHidden  DivergenceType = "bearish_hidden"  // price lower high, RSI higher high
)

func (t DivergenceType) Bullish() bool {
	return t == BullishRegular || t == BullishHidden
}

// Divergence describes a confirmed disagreement between the price trend and
// the RSI trend across two pivots. First and Second are the pivot points,
// oldest first. Strength is a 0-1 score of how pronounced the RSI gap is.
type Divergence struct {
	Type     DivergenceType
	First    Point
	Second   Point
	Strength float64
}

// DivergenceConfig tunes pivot detection.
type DivergenceConfig struct {
	PivotOrder     int  // symmetric neighborhood half-width
	MinBarsBetween int  // minimum samples between the two pivots
	DetectHidden   bool // also report hidden (continuation) divergences
}

func (c DivergenceConfig) withDefaults() DivergenceConfig {
	if c.PivotOrder <= 0 {
		c.PivotOrder = 3
	}
	if c.MinBarsBetween <= 0 {
		c.MinBarsBetween = 5
	}
	return c
}

// findPivotHighs returns indices that are the strict maximum of their
// symmetric neighborhood. Edges cannot be confirmed pivots.
func findPivotHighs(values []float64, order int) []int {
	var out []int
	for i := order; i < len(values)-order; i++ {
		if math.IsNaN(values[i]) {
			continue
		}
		pivot := true
		for j := 1; j <= order; j++ {
			if values[i] <= values[i-j] || values[i] <= values[i+j] {
				pivot = false
				break
			}
		}
		if pivot {
			out = append(out, i)
		}
	}
	return out
}

func findPivotLows(values []float64, order int) []int {
	var out []int
	for i := order; i < len(values)-order; i++ {
		if math.IsNaN(values[i]) {
			continue
		}
		pivot := true
		for j := 1; j <= order; j++ {
			if values[i] >= values[i-j] || values[i] >= values[i+j] {
				pivot = false
				break
			}
		}
		if pivot {
			out = append(out, i)
		}
	}
	return out
}

// DetectDivergence inspects the rolling window (oldest first) and returns
// the divergence formed by the two most recent comparable price pivots,
// or nil. Regular divergences take precedence over hidden ones.
func DetectDivergence(points []Point, cfg DivergenceConfig) *Divergence {
	cfg = cfg.withDefaults()
	if len(points) < 2*cfg.PivotOrder+cfg.MinBarsBetween {
		return nil
	}

	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Price
	}
	highs := findPivotHighs(prices, cfg.PivotOrder)
	lows := findPivotLows(prices, cfg.PivotOrder)

	if d := lastPair(points, highs, cfg.MinBarsBetween, func(a, b Point) *Divergence {
		// bearish regular: higher high in price, lower high in RSI
		if b.Price > a.Price && b.RSI < a.RSI {
			return &Divergence{
				Type:     BearishRegular,
				Strength: clamp01((a.RSI - b.RSI) / math.Max(a.RSI, 1)),
			}
		}
		return nil
	}); d != nil {
		return d
	}

	if d := lastPair(points, lows, cfg.MinBarsBetween, func(a, b Point) *Divergence {
		// bullish regular: lower low in price, higher low in RSI
		if b.Price < a.Price && b.RSI > a.RSI {
			return &Divergence{
				Type:     BullishRegular,
				Strength: clamp01((b.RSI - a.RSI) / math.Max(100-a.RSI, 1)),
			}
		}
		return nil
	}); d != nil {
		return d
	}

	if !cfg.DetectHidden {
		return nil
	}

	if d := lastPair(points, lows, cfg.MinBarsBetween, func(a, b Point) *Divergence {
		// bullish hidden: higher low in price, lower low in RSI
		if b.Price > a.Price && b.RSI < a.RSI {
			return &Divergence{
				Type:     BullishHidden,
				Strength: clamp01((a.RSI - b.RSI) / math.Max(a.RSI, 1)),
			}
		}
		return nil
	}); d != nil {
		return d
	}

	return lastPair(points, highs, cfg.MinBarsBetween, func(a, b Point) *Divergence {
		// bearish hidden: lower high in price, higher high in RSI
		if b.Price < a.Price && b.RSI > a.RSI {
			return &Divergence{
				Type:     BearishHidden,
				Strength: clamp01((b.RSI - a.RSI) / math.Max(100-a.RSI, 1)),
			}
		}
		return nil
	})
}

// lastPair applies check to the two most recent pivots, if far enough apart.
func lastPair(points []Point, pivots []int, minBars int, check func(a, b Point) *Divergence) *Divergence {
	if len(pivots) < 2 {
		return nil
	}
	i, j := pivots[len(pivots)-2], pivots[len(pivots)-1]
	if j-i < minBars {
		return nil
	}
	d := check(points[i], points[j])
	if d == nil {
		return nil
	}
	d.First = points[i]
	d.Second = points[j]
	return d
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
