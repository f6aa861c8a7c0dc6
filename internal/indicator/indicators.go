package indicator

import "math"

// MACD returns the DIF, DEA and histogram lines. The histogram is
// (DIF-DEA)*2, matching the convention of Chinese charting software.
func MACD(close []float64, short, long, mid int) (dif, dea, hist []float64) {
	dif = sub(EMA(close, short), EMA(close, long))
	dea = EMA(dif, mid)
	hist = make([]float64, len(close))
	for i := range hist {
		hist[i] = (dif[i] - dea[i]) * 2
	}
	return dif, dea, hist
}

// KDJ computes the stochastic K, D and J lines. K and D are EMA-smoothed
// with spans m1*2-1 and m2*2-1, J = 3K - 2D.
func KDJ(close, high, low []float64, n, m1, m2 int) (k, d, j []float64) {
	llv := LLV(low, n)
	hhv := HHV(high, n)
	rsv := make([]float64, len(close))
	for i := range rsv {
		rsv[i] = (close[i] - llv[i]) / (hhv[i] - llv[i]) * 100
	}
	k = EMA(rsv, m1*2-1)
	d = EMA(k, m2*2-1)
	j = make([]float64, len(close))
	for i := range j {
		j[i] = 3*k[i] - 2*d[i]
	}
	return k, d, j
}

// RSI is the SMA-smoothed relative strength index. Warm-up positions are
// filled with the neutral 50 so early rows read as balanced rather than
// missing.
func RSI(close []float64, n int) []float64 {
	diff := sub(close, Ref(close, 1))
	up := make([]float64, len(diff))
	abs := make([]float64, len(diff))
	for i, v := range diff {
		up[i] = math.Max(v, 0)
		abs[i] = math.Abs(v)
	}
	out := ratio(SMA(up, n, 1), SMA(abs, n, 1), 100)
	return fillNaN(out, 50)
}

// WR is Williams %R over n periods: 100 means the close sits at the
// period low, 0 at the period high.
func WR(close, high, low []float64, n int) []float64 {
	hhv := HHV(high, n)
	llv := LLV(low, n)
	out := make([]float64, len(close))
	for i := range out {
		out[i] = (hhv[i] - close[i]) / (hhv[i] - llv[i]) * 100
	}
	return out
}

// BIAS measures how far the close has drifted from its n-period mean,
// in percent.
func BIAS(close []float64, n int) []float64 {
	ma := MA(close, n)
	out := make([]float64, len(close))
	for i := range out {
		out[i] = (close[i] - ma[i]) / ma[i] * 100
	}
	return out
}

// BOLL returns the Bollinger upper, middle and lower bands: the n-period
// mean plus/minus p population standard deviations.
func BOLL(close []float64, n int, p float64) (upper, mid, lower []float64) {
	mid = MA(close, n)
	std := Std(close, n)
	upper = make([]float64, len(close))
	lower = make([]float64, len(close))
	for i := range close {
		upper[i] = mid[i] + p*std[i]
		lower[i] = mid[i] - p*std[i]
	}
	return upper, mid, lower
}

// PSY is the share of up days over the last n periods, in percent, with
// its m-period mean.
func PSY(close []float64, n, m int) (psy, psyma []float64) {
	prev := Ref(close, 1)
	up := make([]float64, len(close))
	for i := range up {
		if close[i] > prev[i] {
			up[i] = 1
		}
	}
	psy = Sum(up, n)
	for i := range psy {
		psy[i] = psy[i] / float64(n) * 100
	}
	psyma = MA(psy, m)
	return psy, psyma
}

// CCI is the commodity channel index on the typical price (H+L+C)/3.
func CCI(close, high, low []float64, n int) []float64 {
	tp := make([]float64, len(close))
	for i := range tp {
		tp[i] = (high[i] + low[i] + close[i]) / 3
	}
	ma := MA(tp, n)
	md := AveDev(tp, n)
	out := make([]float64, len(close))
	for i := range out {
		out[i] = (tp[i] - ma[i]) / (0.015 * md[i])
	}
	return out
}

// ATR is the n-period mean of the true range.
func ATR(close, high, low []float64, n int) []float64 {
	prev := Ref(close, 1)
	tr := make([]float64, len(close))
	for i := range tr {
		tr[i] = math.Max(math.Max(high[i]-low[i], math.Abs(prev[i]-high[i])), math.Abs(prev[i]-low[i]))
	}
	return MA(tr, n)
}

// DMI returns the directional movement lines PDI and MDI plus the trend
// strength lines ADX and ADXR. Directional movement and true range are
// accumulated over n periods, ADX is the m-period mean of DX.
func DMI(close, high, low []float64, n, m int) (pdi, mdi, adx, adxr []float64) {
	length := len(close)
	prevC := Ref(close, 1)
	prevH := Ref(high, 1)
	prevL := Ref(low, 1)
	tr := make([]float64, length)
	dmp := make([]float64, length)
	dmm := make([]float64, length)
	for i := 0; i < length; i++ {
		tr[i] = math.Max(math.Max(high[i]-low[i], math.Abs(high[i]-prevC[i])), math.Abs(low[i]-prevC[i]))
		hd := high[i] - prevH[i]
		ld := prevL[i] - low[i]
		if hd > 0 && hd > ld {
			dmp[i] = hd
		}
		if ld > 0 && ld > hd {
			dmm[i] = ld
		}
	}
	trSum := Sum(tr, n)
	pdi = ratio(Sum(dmp, n), trSum, 100)
	mdi = ratio(Sum(dmm, n), trSum, 100)
	dx := make([]float64, length)
	for i := range dx {
		dx[i] = math.Abs(mdi[i]-pdi[i]) / (pdi[i] + mdi[i]) * 100
	}
	adx = MA(dx, m)
	ref := Ref(adx, m)
	adxr = make([]float64, length)
	for i := range adxr {
		adxr[i] = (adx[i] + ref[i]) / 2
	}
	return pdi, mdi, adx, adxr
}

// TRIX is the rate of change of the triple-smoothed EMA, with its
// m-period mean.
func TRIX(close []float64, n, m int) (trix, trma []float64) {
	tr := EMA(EMA(EMA(close, n), n), n)
	prev := Ref(tr, 1)
	trix = make([]float64, len(close))
	for i := range trix {
		trix[i] = (tr[i] - prev[i]) / prev[i] * 100
	}
	trma = MA(trix, m)
	return trix, trma
}

// VR compares accumulated up-day volume against down-or-flat-day volume
// over n periods, in percent. Readings above 160 suggest an active
// market, below 40 a quiet one.
func VR(close, volume []float64, n int) []float64 {
	prev := Ref(close, 1)
	upVol := make([]float64, len(close))
	downVol := make([]float64, len(close))
	for i := range close {
		switch {
		case close[i] > prev[i]:
			upVol[i] = volume[i]
		case close[i] <= prev[i]:
			downVol[i] = volume[i]
		}
	}
	return ratio(Sum(upVol, n), Sum(downVol, n), 100)
}

// EMV is the ease-of-movement value over n periods with its m-period
// mean: positive when price advances on light volume and wide range.
func EMV(high, low, volume []float64, n, m int) (emv, maemv []float64) {
	length := len(high)
	hl := make([]float64, length)
	rng := make([]float64, length)
	for i := 0; i < length; i++ {
		hl[i] = high[i] + low[i]
		rng[i] = high[i] - low[i]
	}
	prevHL := Ref(hl, 1)
	volMA := MA(volume, n)
	rngMA := MA(rng, n)
	raw := make([]float64, length)
	for i := 0; i < length; i++ {
		mid := 100 * (hl[i] - prevHL[i]) / hl[i]
		raw[i] = mid * (volMA[i] / volume[i]) * rng[i] / rngMA[i]
	}
	emv = MA(raw, n)
	maemv = MA(emv, m)
	return emv, maemv
}

// DPO removes the long trend by subtracting the displaced n-period mean
// from the close; shift is the displacement, m smooths the result.
func DPO(close []float64, n, shift, m int) (dpo, madpo []float64) {
	dpo = sub(close, Ref(MA(close, n), shift))
	madpo = MA(dpo, m)
	return dpo, madpo
}

// BRAR returns the sentiment lines AR and BR over n periods. AR relates
// intraday strength to the open, BR to the previous close.
func BRAR(open, close, high, low []float64, n int) (ar, br []float64) {
	prevC := Ref(close, 1)
	length := len(close)
	brUp := make([]float64, length)
	brDown := make([]float64, length)
	for i := 0; i < length; i++ {
		brUp[i] = math.Max(0, high[i]-prevC[i])
		brDown[i] = math.Max(0, prevC[i]-low[i])
	}
	ar = ratio(Sum(sub(high, open), n), Sum(sub(open, low), n), 100)
	br = ratio(Sum(brUp, n), Sum(brDown, n), 100)
	return ar, br
}

// DMA is the spread between a short and a long simple mean, with its own
// m-period mean.
func DMA(close []float64, short, long, m int) (dif, difma []float64) {
	dif = sub(MA(close, short), MA(close, long))
	difma = MA(dif, m)
	return dif, difma
}

// MTM is the n-period momentum close - close[n ago], with its m-period
// mean.
func MTM(close []float64, n, m int) (mtm, mtmma []float64) {
	mtm = sub(close, Ref(close, n))
	mtmma = MA(mtm, m)
	return mtm, mtmma
}

// ROC is the n-period rate of change in percent, with its m-period mean.
func ROC(close []float64, n, m int) (roc, maroc []float64) {
	prev := Ref(close, n)
	roc = make([]float64, len(close))
	for i := range roc {
		roc[i] = 100 * (close[i] - prev[i]) / prev[i]
	}
	maroc = MA(roc, m)
	return roc, maroc
}
