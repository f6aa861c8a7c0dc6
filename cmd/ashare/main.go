package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/analyzer"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/cache"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/config"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/daemon"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/llm"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/logging"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/metrics"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/news"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/notify"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/provider"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/report"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/scanner"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/search"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/signal"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/internal/web"
	"github.com/ZhiweiChen-coder/Ashare-AI-Strategy-Analyst/pkg/model"
)

var version = "dev"

var (
	cfgFile     string
	count       int
	freq        string
	format      string
	noLLM       bool
	pushNotify  bool
	concurrency int
	serveAddr   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ashare",
		Short: "A股技术分析报告生成器",
		Long: `A-share technical analysis report generator.

Fetches candles from Tencent/Sina, computes the indicator table, runs the
signal rule engine, optionally asks an LLM for a narrative opinion, and
emits HTML reports, CLI tables or a web UI.

Examples:
  ashare analyze 600036 000001 --format html
  ashare analyze 贵州茅台 --no-llm
  ashare search 银行
  ashare serve --addr :8080`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [codes or names...]",
		Short: "Analyze stocks and print or save the report",
		RunE:  runAnalyze,
	}
	analyzeCmd.Flags().IntVar(&count, "count", 0, "candles to fetch (default from config)")
	analyzeCmd.Flags().StringVar(&freq, "freq", "", "bar interval: 1d, 1w, 1M")
	analyzeCmd.Flags().StringVar(&format, "format", "table", "output format: table, json, html")
	analyzeCmd.Flags().BoolVar(&noLLM, "no-llm", false, "skip the AI narrative")
	analyzeCmd.Flags().BoolVar(&pushNotify, "notify", false, "push the summary to the configured channels")
	analyzeCmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel analyses (default from config)")

	searchCmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Search the stock dictionary by code, name or category",
		Args:  cobra.ExactArgs(1),
		RunE:  runSearch,
	}

	quoteCmd := &cobra.Command{
		Use:   "quote <code>",
		Short: "Print a realtime quote",
		Args:  cobra.ExactArgs(1),
		RunE:  runQuote,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web UI and REST API",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")

	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the daily scheduled analysis",
		RunE:  runDaemon,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("ashare", version)
		},
	}

	rootCmd.AddCommand(analyzeCmd, searchCmd, quoteCmd, serveCmd, daemonCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles the wired components every command draws from.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	rec      *metrics.Recorder
	store    cache.Store
	provider provider.Provider
	searcher *search.Searcher
	analyzer *analyzer.Analyzer
	scanner  *scanner.Scanner
	writer   *report.Writer
	notifier *notify.Dispatcher
}

// buildApp wires the pipeline from configuration: providers with
// fallback, caching and metrics, then searcher, evaluator, optional
// news/LLM, analyzer, scanner, report writer and push channels.
func buildApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	rec := metrics.New(prometheus.DefaultRegisterer)

	var store cache.Store
	switch cfg.Cache.Backend {
	case "redis":
		store, err = cache.NewRedis(cfg.Cache.Redis.Addr, cfg.Cache.Redis.Password, cfg.Cache.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	case "memory":
		store = cache.NewMemory()
	}

	var providers []provider.Provider
	switch cfg.Data.Provider {
	case "tencent":
		providers = []provider.Provider{provider.NewTencent()}
	case "sina":
		providers = []provider.Provider{provider.NewSina()}
	default: // auto
		providers = []provider.Provider{provider.NewTencent(), provider.NewSina()}
	}
	var prov provider.Provider = provider.NewFallback(providers...)
	if store != nil {
		prov = provider.NewCaching(prov, store, cfg.Data.CacheTTL)
	}
	prov = metrics.InstrumentProvider(prov, rec)

	searcher := search.NewSearcher(prov)
	evaluator := signal.New(cfg.Signal)

	var newsClient *news.Client
	if cfg.News.Enabled {
		newsClient = news.NewClient(cfg.News.MaxHeadlines)
	}

	llmClient := llm.New(llm.Options{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		MaxRetries:  cfg.LLM.MaxRetries,
	})

	opts := analyzer.DefaultOptions()
	opts.Frequency = model.Frequency(cfg.Data.Frequency)
	opts.CandleCount = cfg.Data.Count
	opts.WithNews = cfg.News.Enabled
	if count > 0 {
		opts.CandleCount = count
	}
	if freq != "" {
		f := model.Frequency(freq)
		if !f.Valid() {
			return nil, fmt.Errorf("invalid frequency %q (want 1d, 1w or 1M)", freq)
		}
		opts.Frequency = f
	}
	if noLLM {
		opts.WithLLM = false
	}

	a, err := analyzer.New(analyzer.Deps{
		Provider:  prov,
		Searcher:  searcher,
		Evaluator: evaluator,
		News:      newsClient,
		LLM:       llmClient,
		Metrics:   rec,
	}, opts, log)
	if err != nil {
		return nil, err
	}

	workers := cfg.Scanner.Workers
	if concurrency > 0 {
		workers = concurrency
	}
	sc := scanner.New(a, workers, cfg.Scanner.Timeout, log)

	renderer, err := report.NewRenderer()
	if err != nil {
		return nil, err
	}
	writer, err := report.NewWriter(cfg.Report.OutputDir, cfg.Report.KeepRuns, renderer)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      log,
		rec:      rec,
		store:    store,
		provider: prov,
		searcher: searcher,
		analyzer: a,
		scanner:  sc,
		writer:   writer,
		notifier: buildNotifier(cfg, rec, log),
	}, nil
}

func buildNotifier(cfg *config.Config, rec *metrics.Recorder, log zerolog.Logger) *notify.Dispatcher {
	if !cfg.Notify.Enabled {
		return nil
	}
	var channels []notify.Notifier
	for _, m := range cfg.Notify.Methods {
		switch m {
		case "serverchan":
			channels = append(channels, notify.NewServerChan(cfg.Notify.ServerChanKey))
		case "wecom":
			channels = append(channels, notify.NewWecom(cfg.Notify.WecomWebhook))
		case "email":
			channels = append(channels, notify.NewEmail(notify.SMTPOptions{
				Host:     cfg.Notify.SMTP.Host,
				Port:     cfg.Notify.SMTP.Port,
				User:     cfg.Notify.SMTP.User,
				Password: cfg.Notify.SMTP.Password,
				From:     cfg.Notify.SMTP.From,
				To:       cfg.Notify.SMTP.To,
			}))
		}
	}
	return notify.NewDispatcher(channels, rec, log)
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
}

// interruptContext cancels on SIGINT/SIGTERM.
func interruptContext() (context.Context, context.CancelFunc) {
	return ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	queries := args
	if len(queries) == 0 {
		queries = a.cfg.Stocks
	}
	if len(queries) == 0 {
		return fmt.Errorf("no stocks given: pass codes as arguments or set stocks in %s", cfgFile)
	}

	ctx, cancel := interruptContext()
	defer cancel()

	if format == "table" && len(queries) > 1 {
		bar := progressbar.NewOptions(len(queries),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("分析中"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]█[reset]",
				SaucerHead:    "[green]█[reset]",
				SaucerPadding: "░",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
		a.scanner.SetProgressCallback(func(done, total int) {
			bar.Set(done)
		})
		defer fmt.Println()
	}

	results, summary, err := a.scanner.Run(ctx, queries)
	if err != nil {
		return fmt.Errorf("run interrupted: %w", err)
	}

	rep := report.NewReport(results, summary)

	switch format {
	case "table":
		outputTable(results, summary)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
	case "html":
		entry, err := a.writer.Save(rep)
		if err != nil {
			return err
		}
		fmt.Printf("报告已保存: %s\n", entry.File)
	default:
		return fmt.Errorf("unknown format %q (want table, json or html)", format)
	}

	if pushNotify || (a.cfg.Notify.Enabled && a.cfg.Daemon.Notify && format == "html") {
		if a.notifier.Enabled() {
			msg := notify.Summarize(results, summary, rep.GeneratedAt)
			if err := a.notifier.Dispatch(ctx, msg); err != nil {
				a.log.Warn().Err(err).Msg("some push channels failed")
			}
		} else if pushNotify {
			return fmt.Errorf("--notify given but no push channel is configured")
		}
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d stocks failed", summary.Failed, summary.Total)
	}
	return nil
}

// outputTable prints the run as a score table plus per-stock signal
// detail.
func outputTable(results []*analyzer.Result, summary analyzer.MarketSummary) {
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"代码", "名称", "现价", "涨跌", "评分", "判断", "建议"}),
	)
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.Failed {
			table.Append([]string{r.Stock.Code, r.Stock.Name, "-", "-", "-", "分析不可用", "-"})
			continue
		}
		table.Append([]string{
			r.Stock.Code,
			r.Stock.Name,
			fmt.Sprintf("%.2f", r.LatestClose()),
			fmt.Sprintf("%+.2f%%", r.ChangePct()),
			fmt.Sprintf("%d/5", r.Score.Score),
			r.Score.Label,
			r.Vote.Action.Label(),
		})
	}
	table.Render()

	for _, r := range results {
		if r == nil || r.Failed || len(r.Score.Signals) == 0 {
			continue
		}
		fmt.Printf("\n[%s] %s\n", r.Stock.Code, r.Stock.Name)
		for _, s := range r.Score.Signals {
			fmt.Printf("  - %s\n", s.Text)
		}
		if r.Narrative != nil && r.Narrative.Summary != "" {
			fmt.Printf("  AI: %s\n", r.Narrative.Summary)
		}
	}

	fmt.Printf("\n共%d只", summary.Total)
	if summary.Failed > 0 {
		fmt.Printf(" (失败%d)", summary.Failed)
	}
	fmt.Printf(" · 看多%d 中性%d 看空%d · 均分%.1f · %s\n",
		summary.BullishCount, summary.NeutralCount, summary.BearishCount,
		summary.AverageScore, summary.Mood)
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	results := a.searcher.Search(args[0], 20)
	if len(results) == 0 {
		fmt.Println("未找到匹配的股票。")
		return nil
	}

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"代码", "名称", "市场", "类别", "匹配"}),
	)
	for _, r := range results {
		table.Append([]string{r.Code, r.Name, r.Market, r.Category, string(r.Match)})
	}
	table.Render()
	return nil
}

func runQuote(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Data.Timeout)
	defer cancel()

	quote, err := a.provider.GetQuote(ctx, args[0])
	if err != nil {
		return fmt.Errorf("quote %s: %w", args[0], err)
	}

	fmt.Printf("%s (%s)\n", quote.Name, quote.Code)
	fmt.Printf("现价 %.2f  %+.2f (%+.2f%%)\n", quote.Price, quote.Change(), quote.ChangePct())
	fmt.Printf("开 %.2f  高 %.2f  低 %.2f  昨收 %.2f\n", quote.Open, quote.High, quote.Low, quote.PrevClose)
	fmt.Printf("量 %.0f手  额 %.0f万元  %s\n", quote.Volume, quote.Turnover, quote.Time.Format("2006-01-02 15:04:05"))
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	addr := a.cfg.Web.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv, err := web.New(web.Deps{
		Analyzer: a.analyzer,
		Provider: a.provider,
		Searcher: a.searcher,
		Writer:   a.writer,
	}, web.Options{
		Addr:       addr,
		JWTSecret:  a.cfg.Web.JWTSecret,
		Workers:    a.cfg.Scanner.Workers,
		RunTimeout: a.cfg.Scanner.Timeout,
	}, a.log)
	if err != nil {
		return err
	}

	ctx, cancel := interruptContext()
	defer cancel()
	return srv.Start(ctx)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	if len(a.cfg.Stocks) == 0 {
		return fmt.Errorf("daemon mode needs stocks in %s or STOCK_CODES", cfgFile)
	}

	loc, err := time.LoadLocation(a.cfg.Daemon.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	run := func(ctx context.Context) error {
		results, summary, err := a.scanner.Run(ctx, a.cfg.Stocks)
		if err != nil {
			return err
		}
		rep := report.NewReport(results, summary)
		entry, err := a.writer.Save(rep)
		if err != nil {
			return err
		}
		a.log.Info().Str("file", entry.File).Msg("daily report saved")

		if a.cfg.Daemon.Notify && a.notifier.Enabled() {
			msg := notify.Summarize(results, summary, rep.GeneratedAt)
			if err := a.notifier.Dispatch(ctx, msg); err != nil {
				a.log.Warn().Err(err).Msg("some push channels failed")
			}
		}
		if summary.Failed > 0 {
			a.log.Warn().Int("failed", summary.Failed).Msg("some stocks failed in the daily run")
		}
		return nil
	}

	d, err := daemon.New(a.cfg.Daemon.RunAt, loc, run, a.log)
	if err != nil {
		return err
	}

	ctx, cancel := interruptContext()
	defer cancel()
	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
