package indicator

import (
	"math"
	"testing"
)

func TestMACDFlatSeriesIsZero(t *testing.T) {
	closes := repeat(10, 40)
	dif, dea, hist := MACD(closes, 12, 26, 9)
	for i := range closes {
		if !approx(dif[i], 0) || !approx(dea[i], 0) || !approx(hist[i], 0) {
			t.Errorf("Expected zero MACD on flat series at %d, got dif=%f dea=%f hist=%f",
				i, dif[i], dea[i], hist[i])
		}
	}
}

func TestMACDHistogramIsTwiceTheSpread(t *testing.T) {
	closes := trending(60, 10, 0.3)
	dif, dea, hist := MACD(closes, 12, 26, 9)
	for i := range closes {
		if !approx(hist[i], (dif[i]-dea[i])*2) {
			t.Errorf("Expected hist = 2*(dif-dea) at %d, got %f", i, hist[i])
		}
	}
}

func TestKDJBounds(t *testing.T) {
	closes, high, low := ohlc(trending(50, 20, 0.5))
	k, d, _ := KDJ(closes, high, low, 9, 3, 3)
	for i := range closes {
		if math.IsNaN(k[i]) {
			continue
		}
		if k[i] < 0 || k[i] > 100 {
			t.Errorf("Expected K within [0,100] at %d, got %f", i, k[i])
		}
		if !math.IsNaN(d[i]) && (d[i] < 0 || d[i] > 100) {
			t.Errorf("Expected D within [0,100] at %d, got %f", i, d[i])
		}
	}
}

func TestRSI(t *testing.T) {
	t.Run("warm-up filled with neutral 50", func(t *testing.T) {
		got := RSI(trending(30, 10, 0.1), 14)
		for i := 0; i < 14; i++ {
			if !approx(got[i], 50) {
				t.Errorf("Expected neutral 50 at warm-up position %d, got %f", i, got[i])
			}
		}
	})

	t.Run("monotonic rise reads 100", func(t *testing.T) {
		got := RSI(trending(30, 10, 0.2), 14)
		if !approx(got[29], 100) {
			t.Errorf("Expected RSI 100 on straight rise, got %f", got[29])
		}
	})

	t.Run("monotonic fall reads 0", func(t *testing.T) {
		got := RSI(trending(30, 50, -0.2), 14)
		if !approx(got[29], 0) {
			t.Errorf("Expected RSI 0 on straight fall, got %f", got[29])
		}
	})

	t.Run("flat series stays neutral", func(t *testing.T) {
		got := RSI(repeat(25, 20), 14)
		for i, v := range got {
			if !approx(v, 50) {
				t.Errorf("Expected 50 on flat series at %d, got %f", i, v)
			}
		}
	})
}

func TestWR(t *testing.T) {
	closes, high, low := ohlc(trending(20, 30, 0.4))
	got := WR(closes, high, low, 10)
	// On a steady rise the close hugs the period high, so %R stays low.
	last := got[len(got)-1]
	if math.IsNaN(last) || last > 50 {
		t.Errorf("Expected low WR on a rising series, got %f", last)
	}
}

func TestBIAS(t *testing.T) {
	// Flat series: close equals its mean, bias is zero.
	got := BIAS(repeat(12, 10), 6)
	for i := 5; i < 10; i++ {
		if !approx(got[i], 0) {
			t.Errorf("Expected zero bias on flat series at %d, got %f", i, got[i])
		}
	}
}

func TestBOLL(t *testing.T) {
	closes := trending(30, 15, 0.25)
	up, mid, low := BOLL(closes, 20, 2)

	wantMid := MA(closes, 20)
	assertSeries(t, mid, wantMid)

	for i := 19; i < len(closes); i++ {
		if !approx(up[i]+low[i], 2*mid[i]) {
			t.Errorf("Expected bands symmetric around mid at %d", i)
		}
		if up[i] < low[i] {
			t.Errorf("Expected upper band above lower at %d", i)
		}
	}
}

func TestPSY(t *testing.T) {
	// 12 straight up days: every window position is an up day.
	psy, _ := PSY(trending(20, 10, 0.5), 12, 6)
	if !approx(psy[19], 100) {
		t.Errorf("Expected PSY 100 on straight rise, got %f", psy[19])
	}

	psy, _ = PSY(trending(20, 50, -0.5), 12, 6)
	if !approx(psy[19], 0) {
		t.Errorf("Expected PSY 0 on straight fall, got %f", psy[19])
	}
}

func TestATRConstantRange(t *testing.T) {
	// Bars with a constant 2-point range and no gaps: TR is always 2.
	closes := trending(30, 20, 0.1)
	high := make([]float64, len(closes))
	low := make([]float64, len(closes))
	for i, c := range closes {
		high[i] = c + 1
		low[i] = c - 1
	}
	got := ATR(closes, high, low, 20)
	if !approx(got[len(got)-1], 2) {
		t.Errorf("Expected ATR 2, got %f", got[len(got)-1])
	}
}

func TestDMIDirectional(t *testing.T) {
	closes, high, low := ohlc(trending(40, 20, 0.5))
	pdi, mdi, _, _ := DMI(closes, high, low, 14, 6)
	last := len(closes) - 1
	// A one-way rise produces positive directional movement only.
	if !(pdi[last] > mdi[last]) {
		t.Errorf("Expected PDI > MDI on rising series, got pdi=%f mdi=%f", pdi[last], mdi[last])
	}
	if !approx(mdi[last], 0) {
		t.Errorf("Expected MDI 0 with no down moves, got %f", mdi[last])
	}
}

func TestVR(t *testing.T) {
	closes := []float64{10, 11, 10.5, 11.5}
	volume := []float64{100, 200, 300, 400}
	got := VR(closes, volume, 3)
	// Window 1..3: up volume 200+400, down volume 300.
	if !approx(got[3], 200) {
		t.Errorf("Expected VR 200, got %f", got[3])
	}
	// Window 0..2: the first bar has no previous close and counts as zero.
	if !approx(got[2], 200.0/300.0*100) {
		t.Errorf("Expected VR %.4f, got %f", 200.0/300.0*100, got[2])
	}
}

func TestMTMAndROC(t *testing.T) {
	closes := trending(20, 10, 1) // 10, 11, 12, ...
	mtm, _ := MTM(closes, 12, 6)
	if !approx(mtm[19], 12) {
		t.Errorf("Expected MTM 12 on unit steps, got %f", mtm[19])
	}

	roc, _ := ROC(closes, 12, 6)
	want := 100 * 12.0 / closes[7]
	if !approx(roc[19], want) {
		t.Errorf("Expected ROC %.4f, got %f", want, roc[19])
	}
}

func TestDPOFlatSeries(t *testing.T) {
	dpo, _ := DPO(repeat(30, 40), 20, 10, 6)
	if !approx(dpo[39], 0) {
		t.Errorf("Expected zero DPO on flat series, got %f", dpo[39])
	}
}

func TestBRARBalanced(t *testing.T) {
	// Symmetric bars around the open: AR numerator equals denominator.
	n := 30
	open := repeat(10, n)
	closes := repeat(10, n)
	high := repeat(11, n)
	low := repeat(9, n)
	ar, br := BRAR(open, closes, high, low, 26)
	if !approx(ar[n-1], 100) {
		t.Errorf("Expected AR 100 on symmetric bars, got %f", ar[n-1])
	}
	if !approx(br[n-1], 100) {
		t.Errorf("Expected BR 100 on symmetric bars, got %f", br[n-1])
	}
}

func TestDMATracksSpread(t *testing.T) {
	closes := trending(60, 10, 0.5)
	dif, _ := DMA(closes, 10, 50, 10)
	want := sub(MA(closes, 10), MA(closes, 50))
	assertSeries(t, dif, want)
}

// repeat returns n copies of v.
func repeat(v float64, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

// trending returns n values starting at base with a fixed step per bar.
func trending(n int, base, step float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = base + float64(i)*step
	}
	return s
}

// ohlc derives a high/low envelope half a point around the closes.
func ohlc(closes []float64) (c, high, low []float64) {
	high = make([]float64, len(closes))
	low = make([]float64, len(closes))
	for i, v := range closes {
		high[i] = v + 0.5
		low[i] = v - 0.5
	}
	return closes, high, low
}
