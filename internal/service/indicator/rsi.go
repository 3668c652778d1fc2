package indicator

import "math"

const DefaultRSIPeriod = 14

// RSI computes Wilder's RSI incrementally. Feed closes in order with
// Update; Value is meaningful once Ready reports true. The incremental
// result matches CalculateRSI over the same series.
type RSI struct {
	period  int
	seeded  bool
	count   int // number of deltas seen
	prev    float64
	avgGain float64
	avgLoss float64
}

func NewRSI(period int) *RSI {
	if period <= 0 {
		period = DefaultRSIPeriod
	}
	return &RSI{period: period}
}

func (r *RSI) Update(close float64) {
	if !r.seeded {
		r.seeded = true
		r.prev = close
		return
	}

	delta := close - r.prev
	r.prev = close
	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}
	r.count++

	if r.count <= r.period {
		// seed phase: plain average over the first period deltas
		r.avgGain += gain
		r.avgLoss += loss
		if r.count == r.period {
			r.avgGain /= float64(r.period)
			r.avgLoss /= float64(r.period)
		}
		return
	}
	r.avgGain = (r.avgGain*float64(r.period-1) + gain) / float64(r.period)
	r.avgLoss = (r.avgLoss*float64(r.period-1) + loss) / float64(r.period)
}

// Ready reports whether enough closes have been seen for a valid value.
func (r *RSI) Ready() bool {
	return r.count >= r.period
}

func (r *RSI) Value() float64 {
	if !r.Ready() {
		return math.NaN()
	}
	return rsiOf(r.avgGain, r.avgLoss)
}

func rsiOf(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// CalculateRSI computes the RSI series from scratch, aligned with closes:
// out[i] is the RSI at closes[i], NaN for the first period entries.
// Returns nil when the series is too short.
func CalculateRSI(closes []float64, period int) []float64 {
	if period <= 0 {
		period = DefaultRSIPeriod
	}
	if len(closes) < period+1 {
		return nil
	}

	out := make([]float64, len(closes))
	for i := 0; i < period; i++ {
		out[i] = math.NaN()
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss += -delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiOf(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiOf(avgGain, avgLoss)
	}
	return out
}
