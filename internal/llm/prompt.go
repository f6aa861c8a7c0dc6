package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/news"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/pkg/model"
)

// recentWindow is how many trailing bars go into the prompt unsampled.
// Everything older is thinned to every second bar to stay inside the
// context budget.
const recentWindow = 60

// systemPrompt fixes the response structure so parseNarrative can split
// it back into sections. The section headings and the trailing 情感分数
// line are load-bearing; the rest is analyst guidance.
const systemPrompt = `你是一名专业的证券技术分析师，将收到一只A股股票的完整历史行情与技术指标数据（JSON格式），可能附带近期新闻标题。

请基于全部数据进行深入分析，要求：
- 结论要有具体数据支撑，必要时引用日期和数值
- 结合多个指标交叉验证，注意指标间的背离现象
- 不要包含任何markdown标记

请严格按照下列固定结构输出，各部分以单独一行的标题开头：

技术分析
1. 长期趋势分析：趋势判断、突破情况、形态分析
2. 支撑和压力：关键支撑位、关键压力位、突破可能性
3. 技术指标研判：MACD、KDJ、RSI、布林带及其他关键指标

走势分析
1. 当前趋势：方向、强度、持续性
2. 价量配合：成交量变化、量价关系、市场活跃度
3. 关键位置：当前位置、突破机会、调整空间

投资建议
1. 操作策略：总体建议、买卖时机、仓位控制
2. 具体参数：止损位设置、目标价位、持仓周期
3. 分类建议：激进、稳健、保守投资者分别如何操作

风险提示
1. 风险因素：技术面风险、趋势风险、位置风险
2. 防范措施：止损设置、仓位控制、注意事项
3. 持续关注：重点指标、关键价位、市场变化

总体总结：用一段话概括核心观点。

最后单独输出一行：
情感分数: <分数>
分数取值范围[-1,1]，1为极度看多，-1为极度看空，0为中性。`

// promptPayload is the JSON document embedded in the user message.
type promptPayload struct {
	History    map[string]dayBar        `json:"历史数据"`
	Indicators map[string]dayIndicators `json:"技术指标"`
	Trend      marketTrend              `json:"市场趋势"`
}

type dayBar struct {
	Open   string `json:"开盘价"`
	Close  string `json:"收盘价"`
	High   string `json:"最高价"`
	Low    string `json:"最低价"`
	Volume string `json:"成交量"`
}

type dayIndicators struct {
	Trend      map[string]string `json:"趋势指标"`
	Oscillator map[string]string `json:"摆动指标"`
	Boll       map[string]string `json:"布林带"`
	Direction  map[string]string `json:"动向指标"`
	Volume     map[string]string `json:"成交量指标"`
	Momentum   map[string]string `json:"动量指标"`
	Other      map[string]string `json:"其他指标"`
}

type marketTrend struct {
	DayChange   string `json:"日涨跌幅"`
	WeekChange  string `json:"周涨跌幅"`
	MonthChange string `json:"月涨跌幅"`
	LatestClose string `json:"最新收盘价"`
	High        string `json:"最高价"`
	Low         string `json:"最低价"`
	AvgVolume   string `json:"平均成交量"`
}

// formatPayload renders candles and indicator rows into the prompt
// document. Dates inside each JSON object sort chronologically because
// the keys are YYYY-MM-DD.
func formatPayload(candles []model.Candle, rows []model.IndicatorRow) (string, error) {
	if len(candles) == 0 {
		return "", errors.New("llm: no candles to format")
	}

	rowByDate := make(map[string]model.IndicatorRow, len(rows))
	for _, r := range rows {
		rowByDate[r.Timestamp.Format("2006-01-02")] = r
	}

	p := promptPayload{
		History:    make(map[string]dayBar),
		Indicators: make(map[string]dayIndicators),
	}
	for _, i := range sampleIndexes(len(candles)) {
		c := candles[i]
		date := c.Time.Format("2006-01-02")
		p.History[date] = dayBar{
			Open:   fmt.Sprintf("%.2f", c.Open),
			Close:  fmt.Sprintf("%.2f", c.Close),
			High:   fmt.Sprintf("%.2f", c.High),
			Low:    fmt.Sprintf("%.2f", c.Low),
			Volume: thousands(int64(c.Volume)),
		}
		if row, ok := rowByDate[date]; ok {
			p.Indicators[date] = groupRow(row)
		}
	}
	p.Trend = trendSummary(candles)

	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("llm: marshal payload: %w", err)
	}
	return string(b), nil
}

// sampleIndexes keeps every second early bar and the full recent window.
func sampleIndexes(n int) []int {
	if n <= recentWindow {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	early := n - recentWindow
	idx := make([]int, 0, early/2+1+recentWindow)
	for i := 0; i < early; i += 2 {
		idx = append(idx, i)
	}
	for i := early; i < n; i++ {
		idx = append(idx, i)
	}
	return idx
}

// groupRow buckets one row's values the way Chinese charting software
// groups them. Missing values render as "nan" so the model sees where
// an indicator had not warmed up yet.
func groupRow(row model.IndicatorRow) dayIndicators {
	v := func(name string) string {
		x, ok := row.Get(name)
		if !ok {
			return "nan"
		}
		return fmt.Sprintf("%.2f", x)
	}
	return dayIndicators{
		Trend: map[string]string{
			"MACD": v(model.FieldMACD), "DIF": v(model.FieldDIF), "DEA": v(model.FieldDEA),
			"MA5": v("MA5"), "MA10": v("MA10"), "MA20": v("MA20"), "MA60": v("MA60"),
			"TRIX": v(model.FieldTRIX), "TRMA": v(model.FieldTRMA),
		},
		Oscillator: map[string]string{
			"KDJ-K": v(model.FieldK), "KDJ-D": v(model.FieldD), "KDJ-J": v(model.FieldJ),
			"RSI": v(model.FieldRSI), "CCI": v(model.FieldCCI),
			"BIAS1": v(model.FieldBIAS1), "BIAS2": v(model.FieldBIAS2), "BIAS3": v(model.FieldBIAS3),
		},
		Boll: map[string]string{
			"上轨": v(model.FieldBollUp), "中轨": v(model.FieldBollMid), "下轨": v(model.FieldBollLow),
		},
		Direction: map[string]string{
			"PDI": v(model.FieldPDI), "MDI": v(model.FieldMDI),
			"ADX": v(model.FieldADX), "ADXR": v(model.FieldADXR),
		},
		Volume: map[string]string{
			"VR": v(model.FieldVR), "AR": v(model.FieldAR), "BR": v(model.FieldBR),
		},
		Momentum: map[string]string{
			"ROC": v(model.FieldROC), "MAROC": v(model.FieldMAROC),
			"MTM": v(model.FieldMTM), "MTMMA": v(model.FieldMTMMA),
			"DPO": v(model.FieldDPO), "MADPO": v(model.FieldMADPO),
		},
		Other: map[string]string{
			"EMV": v(model.FieldEMV), "MAEMV": v(model.FieldMAEMV),
			"DIF_DMA": v(model.FieldDIFDMA), "DIFMA_DMA": v(model.FieldDMADMA),
		},
	}
}

func trendSummary(candles []model.Candle) marketTrend {
	last := candles[len(candles)-1]
	prev := last
	if len(candles) > 1 {
		prev = candles[len(candles)-2]
	}
	week := prev
	if len(candles) > 5 {
		week = candles[len(candles)-6]
	}
	month := prev
	if len(candles) > 20 {
		month = candles[len(candles)-21]
	}

	high, low, volSum := last.High, last.Low, 0.0
	for _, c := range candles {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
		volSum += c.Volume
	}

	return marketTrend{
		DayChange:   pctChange(last.Close, prev.Close),
		WeekChange:  pctChange(last.Close, week.Close),
		MonthChange: pctChange(last.Close, month.Close),
		LatestClose: fmt.Sprintf("%.2f", last.Close),
		High:        fmt.Sprintf("%.2f", high),
		Low:         fmt.Sprintf("%.2f", low),
		AvgVolume:   thousands(int64(volSum / float64(len(candles)))),
	}
}

func buildUserMessage(stock model.Stock, payload string, items []news.Item) string {
	var b strings.Builder
	if stock.Name != "" {
		fmt.Fprintf(&b, "请分析股票 %s（%s）的以下数据并给出专业的分析意见：\n", stock.Name, stock.Code)
	} else {
		fmt.Fprintf(&b, "请分析股票 %s 的以下数据并给出专业的分析意见：\n", stock.Code)
	}
	b.WriteString(payload)
	if len(items) > 0 {
		b.WriteString("\n\n最新相关新闻（请结合消息面评估其影响）：\n")
		for i, n := range items {
			fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, n.Time, n.Title)
		}
	}
	return b.String()
}

func pctChange(cur, base float64) string {
	if base == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", (cur-base)/base*100)
}

// thousands renders an integer with comma separators.
func thousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if len(s) > 3 {
		var b strings.Builder
		head := len(s) % 3
		if head > 0 {
			b.WriteString(s[:head])
		}
		for i := head; i < len(s); i += 3 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(s[i : i+3])
		}
		s = b.String()
	}
	if neg {
		return "-" + s
	}
	return s
}
