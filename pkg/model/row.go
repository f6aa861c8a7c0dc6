package model

import (
	"math"
	"time"
)

// Indicator field names as produced by the indicator engine. Values follow
// the conventional Chinese charting column names (DIF/DEA/MACD for the MACD
// family, BOLL_UP/BOLL_MID/BOLL_LOW for Bollinger bands, and so on).
const (
	FieldDIF     = "DIF"
	FieldDEA     = "DEA"
	FieldMACD    = "MACD" // histogram, (DIF-DEA)*2
	FieldK       = "K"
	FieldD       = "D"
	FieldJ       = "J"
	FieldRSI     = "RSI"
	FieldBollUp  = "BOLL_UP"
	FieldBollMid = "BOLL_MID"
	FieldBollLow = "BOLL_LOW"
	FieldPDI     = "PDI"
	FieldMDI     = "MDI"
	FieldADX     = "ADX"
	FieldADXR    = "ADXR"
	FieldVR      = "VR"
	FieldROC     = "ROC"
	FieldMAROC   = "MAROC"
	FieldWR      = "WR"
	FieldWR1     = "WR1"
	FieldCCI     = "CCI"
	FieldPSY     = "PSY"
	FieldPSYMA   = "PSYMA"
	FieldBIAS1   = "BIAS1"
	FieldBIAS2   = "BIAS2"
	FieldBIAS3   = "BIAS3"
	FieldATR     = "ATR"
	FieldMTM     = "MTM"
	FieldMTMMA   = "MTMMA"
	FieldTRIX    = "TRIX"
	FieldTRMA    = "TRMA"
	FieldEMV     = "EMV"
	FieldMAEMV   = "MAEMV"
	FieldDPO     = "DPO"
	FieldMADPO   = "MADPO"
	FieldAR      = "AR"
	FieldBR      = "BR"
	FieldDIFDMA  = "DIF_DMA"
	FieldDMADMA  = "DIFMA_DMA"
)

// IndicatorRow holds one period's close price, volume and whatever indicator
// values the upstream computation managed to produce. Indicator fields are
// optional: a field that could not be computed (warmup period, missing input)
// is simply absent from Values.
type IndicatorRow struct {
	Timestamp time.Time          `json:"timestamp"`
	Close     float64            `json:"close"`
	Volume    float64            `json:"volume"`
	Values    map[string]float64 `json:"values,omitempty"`
}

// Get returns the named indicator value and whether it is present.
func (r IndicatorRow) Get(name string) (float64, bool) {
	v, ok := r.Values[name]
	return v, ok
}

// Has reports whether every named field is present on the row.
func (r IndicatorRow) Has(names ...string) bool {
	for _, n := range names {
		if _, ok := r.Values[n]; !ok {
			return false
		}
	}
	return true
}

// Set stores an indicator value. NaN and Inf are dropped so that undefined
// warmup values stay absent instead of poisoning comparisons.
func (r *IndicatorRow) Set(name string, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	if r.Values == nil {
		r.Values = make(map[string]float64)
	}
	r.Values[name] = v
}
