package model

import "time"

// Frequency identifies the bar interval of a candle series
type Frequency string

const (
	Daily   Frequency = "1d"
	Weekly  Frequency = "1w"
	Monthly Frequency = "1M"
)

// Valid reports whether f is a supported bar interval
func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

// Candle represents a single candlestick (OHLCV data)
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Stock represents basic stock information
type Stock struct {
	Code     string `json:"code"` // canonical form, e.g. sh600036
	Name     string `json:"name"`
	Exchange string `json:"exchange"`           // SSE, SZSE
	Category string `json:"category,omitempty"` // 银行, 白酒, ...
}

// Quote is a realtime price snapshot for one stock
type Quote struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	PrevClose float64   `json:"prev_close"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Volume    float64   `json:"volume"`   // 手
	Turnover  float64   `json:"turnover"` // 万元
	Time      time.Time `json:"time"`
}

// Change returns the absolute price change versus the previous close
func (q Quote) Change() float64 {
	return q.Price - q.PrevClose
}

// ChangePct returns the percentage change versus the previous close
func (q Quote) ChangePct() float64 {
	if q.PrevClose == 0 {
		return 0
	}
	return (q.Price - q.PrevClose) / q.PrevClose * 100
}
