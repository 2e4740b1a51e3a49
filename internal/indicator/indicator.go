package indicator

import (
	"math"

	"github.com/yucheng-lin/twscan/internal/contracts"
)

// Value is one point of an indicator series. Indices without enough history
// are undefined; an undefined value must fail any predicate that reads it,
// never default to pass.
type Value struct {
	V       float64
	Defined bool
}

// Defined wraps a computed float as a defined value
func Defined(v float64) Value {
	return Value{V: v, Defined: true}
}

// At returns the series value at index i, undefined when out of range
func At(series []Value, i int) Value {
	if i < 0 || i >= len(series) {
		return Value{}
	}
	return series[i]
}

// Closes extracts the close series from bars
func Closes(bars []contracts.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// SMA computes the simple moving average over period n, aligned with input
func SMA(values []float64, n int) []Value {
	out := make([]Value, len(values))
	if n <= 0 {
		return out
	}

	var sum float64
	for i, v := range values {
		sum += v
		if i >= n {
			sum -= values[i-n]
		}
		if i >= n-1 {
			out[i] = Defined(sum / float64(n))
		}
	}
	return out
}

// EMA computes the exponential moving average with smoothing 2/(n+1),
// seeded with the SMA of the first n values
func EMA(values []float64, n int) []Value {
	out := make([]Value, len(values))
	if n <= 0 || len(values) < n {
		return out
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += values[i]
	}
	ema := sum / float64(n)
	out[n-1] = Defined(ema)

	k := 2.0 / (float64(n) + 1.0)
	for i := n; i < len(values); i++ {
		ema = (values[i]-ema)*k + ema
		out[i] = Defined(ema)
	}
	return out
}

// RSI computes a Wilder-smoothed relative strength index, bounded [0,100].
// Defined only once n+1 values exist.
func RSI(values []float64, n int) []Value {
	out := make([]Value, len(values))
	if n <= 0 || len(values) < n+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= n; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(n)
	avgLoss /= float64(n)
	out[n] = Defined(rsiFrom(avgGain, avgLoss))

	for i := n + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(n-1) + gain) / float64(n)
		avgLoss = (avgLoss*float64(n-1) + loss) / float64(n)
		out[i] = Defined(rsiFrom(avgGain, avgLoss))
	}
	return out
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// MACD computes the convergence/divergence line, its signal average and the
// histogram (line minus signal), all aligned with input
func MACD(values []float64, fast, slow, signal int) (line, sig, hist []Value) {
	line = make([]Value, len(values))
	sig = make([]Value, len(values))
	hist = make([]Value, len(values))

	emaFast := EMA(values, fast)
	emaSlow := EMA(values, slow)

	// MACD line exists where both EMAs do
	macdVals := make([]float64, 0, len(values))
	macdIdx := make([]int, 0, len(values))
	for i := range values {
		if emaFast[i].Defined && emaSlow[i].Defined {
			line[i] = Defined(emaFast[i].V - emaSlow[i].V)
			macdVals = append(macdVals, line[i].V)
			macdIdx = append(macdIdx, i)
		}
	}

	sigSeries := EMA(macdVals, signal)
	for j, v := range sigSeries {
		if v.Defined {
			i := macdIdx[j]
			sig[i] = v
			hist[i] = Defined(line[i].V - v.V)
		}
	}
	return line, sig, hist
}

// Stochastic computes %K over period k and %D as its d-period simple
// average. A flat k-period range pins %K at 50 instead of dividing by zero.
func Stochastic(bars []contracts.Bar, k, d int) (pctK, pctD []Value) {
	pctK = make([]Value, len(bars))
	pctD = make([]Value, len(bars))
	if k <= 0 {
		return pctK, pctD
	}

	for i := range bars {
		if i < k-1 {
			continue
		}
		lowest := bars[i-k+1].Low
		highest := bars[i-k+1].High
		for j := i - k + 2; j <= i; j++ {
			if bars[j].Low < lowest {
				lowest = bars[j].Low
			}
			if bars[j].High > highest {
				highest = bars[j].High
			}
		}

		if highest == lowest {
			pctK[i] = Defined(50.0)
		} else {
			pctK[i] = Defined((bars[i].Close - lowest) / (highest - lowest) * 100.0)
		}
	}

	if d <= 0 {
		return pctK, pctD
	}
	for i := range bars {
		sum, count := 0.0, 0
		for j := i - d + 1; j <= i; j++ {
			v := At(pctK, j)
			if !v.Defined {
				count = -1
				break
			}
			sum += v.V
			count++
		}
		if count == d {
			pctD[i] = Defined(sum / float64(d))
		}
	}
	return pctK, pctD
}

// Bollinger computes volatility bands: SMA(n) ± mult × rolling stddev(n)
func Bollinger(values []float64, n int, mult float64) (mid, upper, lower []Value) {
	mid = SMA(values, n)
	upper = make([]Value, len(values))
	lower = make([]Value, len(values))

	for i := range values {
		if !mid[i].Defined {
			continue
		}
		var sumSq float64
		for j := i - n + 1; j <= i; j++ {
			d := values[j] - mid[i].V
			sumSq += d * d
		}
		sd := math.Sqrt(sumSq / float64(n))
		upper[i] = Defined(mid[i].V + mult*sd)
		lower[i] = Defined(mid[i].V - mult*sd)
	}
	return mid, upper, lower
}

// ATR computes the n-period average true range. The first bar's true range
// is high−low; later bars use max(high−low, |high−prevClose|, |low−prevClose|).
func ATR(bars []contracts.Bar, n int) []Value {
	out := make([]Value, len(bars))
	if n <= 0 || len(bars) == 0 {
		return out
	}

	tr := make([]float64, len(bars))
	for i, b := range bars {
		if i == 0 {
			tr[i] = b.High - b.Low
			continue
		}
		prevClose := bars[i-1].Close
		tr[i] = math.Max(b.High-b.Low, math.Max(math.Abs(b.High-prevClose), math.Abs(b.Low-prevClose)))
	}

	var sum float64
	for i, v := range tr {
		sum += v
		if i >= n {
			sum -= tr[i-n]
		}
		if i >= n-1 {
			out[i] = Defined(sum / float64(n))
		}
	}
	return out
}

// Donchian computes the rolling channel over the trailing n bars including
// the current bar
func Donchian(bars []contracts.Bar, n int) (upper, lower []Value) {
	upper = make([]Value, len(bars))
	lower = make([]Value, len(bars))
	if n <= 0 {
		return upper, lower
	}

	for i := range bars {
		if i < n-1 {
			continue
		}
		hi := bars[i-n+1].High
		lo := bars[i-n+1].Low
		for j := i - n + 2; j <= i; j++ {
			if bars[j].High > hi {
				hi = bars[j].High
			}
			if bars[j].Low < lo {
				lo = bars[j].Low
			}
		}
		upper[i] = Defined(hi)
		lower[i] = Defined(lo)
	}
	return upper, lower
}

// AvgVolume computes the trailing n-bar average volume excluding the current
// bar, for volume-spike comparisons
func AvgVolume(bars []contracts.Bar, n int) []Value {
	out := make([]Value, len(bars))
	if n <= 0 {
		return out
	}

	prefix := make([]int64, len(bars)+1)
	for i, b := range bars {
		prefix[i+1] = prefix[i] + b.Volume
	}
	for i := n; i < len(bars); i++ {
		out[i] = Defined(float64(prefix[i]-prefix[i-n]) / float64(n))
	}
	return out
}
