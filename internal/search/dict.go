package search

// Entry is one stock in the embedded dictionary.
type Entry struct {
	Name     string
	Code     string // canonical, e.g. sh600036
	Market   string // display label, e.g. A股-上海
	Category string
}

// baseStocks is the embedded name dictionary: widely-followed A-share
// names plus the major indices. It backs offline search and keyword
// suggestions; anything outside it still resolves through code
// normalization and a live quote.
var baseStocks = []Entry{
	// 银行
	{"招商银行", "sh600036", "A股-上海", "银行"},
	{"平安银行", "sz000001", "A股-深圳", "银行"},
	{"工商银行", "sh601398", "A股-上海", "银行"},
	{"建设银行", "sh601939", "A股-上海", "银行"},
	{"农业银行", "sh601288", "A股-上海", "银行"},
	{"中国银行", "sh601988", "A股-上海", "银行"},
	{"交通银行", "sh601328", "A股-上海", "银行"},
	{"浦发银行", "sh600000", "A股-上海", "银行"},
	{"兴业银行", "sh601166", "A股-上海", "银行"},
	{"民生银行", "sh600016", "A股-上海", "银行"},
	{"中信银行", "sh601998", "A股-上海", "银行"},
	{"光大银行", "sh601818", "A股-上海", "银行"},

	// 消费
	{"贵州茅台", "sh600519", "A股-上海", "白酒"},
	{"五粮液", "sz000858", "A股-深圳", "白酒"},
	{"中国中免", "sh601888", "A股-上海", "消费"},
	{"格力电器", "sz000651", "A股-深圳", "家电"},
	{"美的集团", "sz000333", "A股-深圳", "家电"},

	// 金融/地产
	{"中国平安", "sh601318", "A股-上海", "保险"},
	{"万科A", "sz000002", "A股-深圳", "地产"},

	// 科技
	{"海康威视", "sz002415", "A股-深圳", "科技"},
	{"中兴通讯", "sz000063", "A股-深圳", "科技"},
	{"京东方A", "sz000725", "A股-深圳", "科技"},
	{"TCL科技", "sz000100", "A股-深圳", "科技"},
	{"立讯精密", "sz002475", "A股-深圳", "科技"},
	{"歌尔股份", "sz002241", "A股-深圳", "科技"},
	{"蓝思科技", "sz300433", "A股-创业板", "科技"},
	{"欧菲光", "sz002456", "A股-深圳", "科技"},

	// 新能源
	{"比亚迪", "sz002594", "A股-深圳", "新能源车"},
	{"宁德时代", "sz300750", "A股-创业板", "新能源"},
	{"隆基绿能", "sh601012", "A股-上海", "新能源"},
	{"阳光电源", "sz300274", "A股-创业板", "新能源"},
	{"通威股份", "sh600438", "A股-上海", "新能源"},
	{"天合光能", "sh688599", "A股-科创板", "新能源"},
	{"晶澳科技", "sz002459", "A股-深圳", "新能源"},
	{"福斯特", "sh603806", "A股-上海", "新能源"},
	{"中环股份", "sz002129", "A股-深圳", "新能源"},

	// 医药
	{"恒瑞医药", "sh600276", "A股-上海", "医药"},
	{"药明康德", "sh603259", "A股-上海", "医药"},
	{"复星医药", "sh600196", "A股-上海", "医药"},
	{"云南白药", "sz000538", "A股-深圳", "医药"},
	{"片仔癀", "sh600436", "A股-上海", "医药"},
	{"同仁堂", "sh600085", "A股-上海", "医药"},
	{"东阿阿胶", "sz000423", "A股-深圳", "医药"},
	{"华润三九", "sz000999", "A股-深圳", "医药"},
	{"丽珠集团", "sz000513", "A股-深圳", "医药"},
	{"长春高新", "sz000661", "A股-深圳", "医药"},

	// 军工/材料
	{"北方稀土", "sh600111", "A股-上海", "稀土"},
	{"中航沈飞", "sh600760", "A股-上海", "军工"},
	{"中国船舶", "sh600150", "A股-上海", "军工"},
	{"航发动力", "sh600893", "A股-上海", "军工"},

	// 指数
	{"上证指数", "sh000001", "指数-上海", "指数"},
	{"深证成指", "sz399001", "指数-深圳", "指数"},
	{"创业板指", "sz399006", "指数-创业板", "指数"},
	{"科创50", "sh000688", "指数-科创板", "指数"},
	{"沪深300", "sh000300", "指数-沪深", "指数"},
	{"中证500", "sh000905", "指数-中证", "指数"},
}

// marketOf labels a canonical code the way the dictionary does, for
// codes resolved outside it.
func marketOf(code string) string {
	switch {
	case len(code) < 8:
		return "未知市场"
	case code[:2] == "sh" && code[2:5] == "000":
		return "指数-上海"
	case code[:2] == "sh" && code[2:5] == "688":
		return "A股-科创板"
	case code[:2] == "sh":
		return "A股-上海"
	case code[:2] == "sz" && code[2:5] == "399":
		return "指数-深圳"
	case code[:2] == "sz" && code[2:5] == "300":
		return "A股-创业板"
	case code[:2] == "sz":
		return "A股-深圳"
	}
	return "未知市场"
}
