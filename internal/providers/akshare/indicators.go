package akshare

// Technical indicator math over plain float series. The akshare bridge
// serves raw bars only, so MACD/RSI/KDJ are computed locally to match the
// stk_factor shape the primary vendor serves precomputed.

// SMA returns the simple moving average with the given window; positions
// without a full window are NaN-free zeros flagged false in the ok slice.
func SMA(values []float64, window int) ([]float64, []bool) {
	out := make([]float64, len(values))
	ok := make([]bool, len(values))
	if window <= 0 {
		return out, ok
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i+1 >= window {
			out[i] = sum / float64(window)
			ok[i] = true
		}
	}
	return out, ok
}

// EMA returns the exponential moving average with smoothing 2/(span+1).
func EMA(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// emaCom is the center-of-mass parameterization (alpha = 1/(1+com)) used
// by the KDJ smoothing.
func emaCom(values []float64, com float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 1.0 / (1.0 + com)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// MACD computes the standard 12/26/9 set: DIF (fast minus slow EMA), DEA
// (9-EMA of DIF) and the doubled histogram.
func MACD(closes []float64) (dif, dea, macd []float64) {
	fast := EMA(closes, 12)
	slow := EMA(closes, 26)
	dif = make([]float64, len(closes))
	for i := range closes {
		dif[i] = fast[i] - slow[i]
	}
	dea = EMA(dif, 9)
	macd = make([]float64, len(closes))
	for i := range closes {
		macd[i] = 2 * (dif[i] - dea[i])
	}
	return dif, dea, macd
}

// RSI computes the 14-period relative strength index over rolling mean
// gains and losses. Positions without a full window report ok=false.
func RSI(closes []float64, window int) ([]float64, []bool) {
	n := len(closes)
	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}
	avgGain, okG := SMA(gains, window)
	avgLoss, _ := SMA(losses, window)
	out := make([]float64, n)
	ok := make([]bool, n)
	for i := 0; i < n; i++ {
		if !okG[i] {
			continue
		}
		ok[i] = true
		if avgLoss[i] == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100 - 100/(1+rs)
	}
	return out, ok
}

// KDJ computes the 9/3/3 stochastic: RSV over a 9-bar high/low channel,
// K and D smoothed with com=2, J = 3K - 2D.
func KDJ(closes, highs, lows []float64) (k, d, j []float64) {
	n := len(closes)
	rsv := make([]float64, n)
	for i := 0; i < n; i++ {
		lo, hi := lows[i], highs[i]
		start := i - 8
		if start < 0 {
			start = 0
		}
		for p := start; p <= i; p++ {
			if lows[p] < lo {
				lo = lows[p]
			}
			if highs[p] > hi {
				hi = highs[p]
			}
		}
		if hi > lo {
			rsv[i] = (closes[i] - lo) / (hi - lo) * 100
		} else {
			rsv[i] = 50
		}
	}
	k = emaCom(rsv, 2)
	d = emaCom(k, 2)
	j = make([]float64, n)
	for i := 0; i < n; i++ {
		j[i] = 3*k[i] - 2*d[i]
	}
	return k, d, j
}
