// Package indicator derives technical analysis columns from OHLCV
// candles. Compute builds the full table consumed by the signal rules,
// the strategy votes and the report charts: trend (MACD, TRIX, DMI, DMA,
// moving averages), momentum (KDJ, RSI, WR, BIAS, CCI, ROC, MTM, DPO),
// volume (VR, AR/BR, EMV) and volatility (BOLL, ATR) families. Warm-up
// positions hold NaN in the raw columns and are simply absent from the
// materialized rows.
package indicator

import (
	"errors"
	"fmt"
	"math"

	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/pkg/model"
)

// ErrInsufficientData is returned when too few candles are supplied to
// compute anything meaningful.
var ErrInsufficientData = errors.New("insufficient candle data")

const minCandles = 2

// MAPeriods are the moving average windows always present in the table.
var MAPeriods = []int{5, 10, 20, 60}

// Table holds the computed indicator columns aligned with the source
// candles. All columns have the same length as the candle series.
type Table struct {
	candles []model.Candle
	cols    map[string][]float64
	order   []string
}

// Compute calculates every indicator column for the candle series.
// Parameters follow the defaults of mainstream Chinese charting software
// so report values line up with what users see in their own terminal.
func Compute(candles []model.Candle) (*Table, error) {
	if len(candles) < minCandles {
		return nil, fmt.Errorf("%w: got %d candles, need at least %d", ErrInsufficientData, len(candles), minCandles)
	}

	n := len(candles)
	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	volume := make([]float64, n)
	for i, c := range candles {
		open[i], high[i], low[i] = c.Open, c.High, c.Low
		closes[i], volume[i] = c.Close, c.Volume
	}

	t := &Table{candles: candles, cols: make(map[string][]float64, 48)}

	// Trend
	dif, dea, hist := MACD(closes, 12, 26, 9)
	t.add(model.FieldDIF, dif)
	t.add(model.FieldDEA, dea)
	t.add(model.FieldMACD, hist)
	trix, trma := TRIX(closes, 12, 20)
	t.add(model.FieldTRIX, trix)
	t.add(model.FieldTRMA, trma)
	pdi, mdi, adx, adxr := DMI(closes, high, low, 14, 6)
	t.add(model.FieldPDI, pdi)
	t.add(model.FieldMDI, mdi)
	t.add(model.FieldADX, adx)
	t.add(model.FieldADXR, adxr)
	dmaDif, dmaDifma := DMA(closes, 10, 50, 10)
	t.add(model.FieldDIFDMA, dmaDif)
	t.add(model.FieldDMADMA, dmaDifma)
	for _, p := range MAPeriods {
		t.add(fmt.Sprintf("MA%d", p), MA(closes, p))
	}

	// Momentum
	k, d, j := KDJ(closes, high, low, 9, 3, 3)
	t.add(model.FieldK, k)
	t.add(model.FieldD, d)
	t.add(model.FieldJ, j)
	t.add(model.FieldRSI, RSI(closes, 14))
	psy, psyma := PSY(closes, 12, 6)
	t.add(model.FieldPSY, psy)
	t.add(model.FieldPSYMA, psyma)
	t.add(model.FieldWR, WR(closes, high, low, 10))
	t.add(model.FieldWR1, WR(closes, high, low, 6))
	t.add(model.FieldBIAS1, BIAS(closes, 6))
	t.add(model.FieldBIAS2, BIAS(closes, 12))
	t.add(model.FieldBIAS3, BIAS(closes, 24))
	t.add(model.FieldCCI, CCI(closes, high, low, 14))
	roc, maroc := ROC(closes, 12, 6)
	t.add(model.FieldROC, roc)
	t.add(model.FieldMAROC, maroc)
	mtm, mtmma := MTM(closes, 12, 6)
	t.add(model.FieldMTM, mtm)
	t.add(model.FieldMTMMA, mtmma)
	dpo, madpo := DPO(closes, 20, 10, 6)
	t.add(model.FieldDPO, dpo)
	t.add(model.FieldMADPO, madpo)

	// Volume
	t.add(model.FieldVR, VR(closes, volume, 26))
	ar, br := BRAR(open, closes, high, low, 26)
	t.add(model.FieldAR, ar)
	t.add(model.FieldBR, br)
	emv, maemv := EMV(high, low, volume, 14, 9)
	t.add(model.FieldEMV, emv)
	t.add(model.FieldMAEMV, maemv)

	// Volatility
	up, mid, lowBand := BOLL(closes, 20, 2)
	t.add(model.FieldBollUp, up)
	t.add(model.FieldBollMid, mid)
	t.add(model.FieldBollLow, lowBand)
	t.add(model.FieldATR, ATR(closes, high, low, 20))

	return t, nil
}

func (t *Table) add(name string, col []float64) {
	t.cols[name] = col
	t.order = append(t.order, name)
}

// Len returns the number of rows in the table.
func (t *Table) Len() int { return len(t.candles) }

// Candles returns the source candle series.
func (t *Table) Candles() []model.Candle { return t.candles }

// Columns lists the column names in computation order.
func (t *Table) Columns() []string { return t.order }

// Column returns the raw values of the named column, NaN included, or
// nil when the column does not exist.
func (t *Table) Column(name string) []float64 { return t.cols[name] }

// Latest returns the most recent finite value of the named column.
func (t *Table) Latest(name string) (float64, bool) {
	col, ok := t.cols[name]
	if !ok || len(col) == 0 {
		return 0, false
	}
	v := col[len(col)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Rows materializes the table as per-bar indicator rows. Columns still
// in their warm-up window are absent from the row's value map.
func (t *Table) Rows() []model.IndicatorRow {
	rows := make([]model.IndicatorRow, len(t.candles))
	for i, c := range t.candles {
		row := model.IndicatorRow{
			Timestamp: c.Time,
			Close:     c.Close,
			Volume:    c.Volume,
			Values:    make(map[string]float64, len(t.cols)),
		}
		for name, col := range t.cols {
			row.Set(name, col[i])
		}
		rows[i] = row
	}
	return rows
}

// LastRows returns the most recent n rows, or all rows when fewer exist.
func (t *Table) LastRows(n int) []model.IndicatorRow {
	rows := t.Rows()
	if n >= len(rows) {
		return rows
	}
	return rows[len(rows)-n:]
}
