package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"unifex/config"
	"unifex/internal/exchange"
	"unifex/internal/paginate"
	"unifex/internal/sign"
	"unifex/logger"

	_ "unifex/internal/exchange/bingx"
	_ "unifex/internal/exchange/btcex"
	_ "unifex/internal/exchange/hollaex"
	_ "unifex/internal/exchange/oxfun"
	_ "unifex/internal/exchange/toobit"
)

const usage = `usage: unifex [-config path] <command> [args]

commands:
  exchanges                                  list registered exchanges
  markets   <exchange>                       list markets
  currencies <exchange>                      list currencies
  ticker    <exchange> <symbol>              24h ticker
  book      <exchange> <symbol> [limit]      order book snapshot
  ohlcv     <exchange> <symbol> <timeframe>  recent candles
  balance   <exchange>                       account balances
  order     <exchange> <id> [symbol]         fetch one order
`

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if args[0] == "exchanges" {
		for _, name := range exchange.Names() {
			fmt.Println(name)
		}
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	if cfg.Logging.DashboardName != "" {
		logger.InitCloudWatch("", cfg.Unifex.Name, cfg.Logging.DashboardName)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Unifex.Name,
		"version": cfg.Unifex.Version,
	}).Info("starting unifex")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	if len(args) < 2 {
		flag.Usage()
		os.Exit(2)
	}
	ad, err := buildAdapter(cfg, args[1], log)
	if err != nil {
		log.WithError(err).Error("failed to build adapter")
		os.Exit(1)
	}

	out, err := run(ctx, ad, args)
	if err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
	print(out)
}

func buildAdapter(cfg *config.Config, name string, log *logger.Log) (exchange.Adapter, error) {
	ex := cfg.Exchanges[name]
	timeout := ex.Timeout
	if timeout == 0 {
		timeout = cfg.HTTP.Timeout
	}
	return exchange.New(name, exchange.Config{
		Credentials: sign.Credentials{APIKey: ex.APIKey, Secret: ex.Secret},
		BaseURL:     ex.BaseURL,
		Sandbox:     ex.Sandbox,
		RateLimit:   ex.RequestsPerSecond,
		Burst:       ex.BurstSize,
		Timeout:     timeout,
		Retry:       paginate.RetryPolicy{Attempts: cfg.Retry.MaxAttempts, Delay: cfg.Retry.Delay},
	}, log.WithComponent(name))
}

func run(ctx context.Context, ad exchange.Adapter, args []string) (any, error) {
	switch args[0] {
	case "markets":
		return ad.FetchMarkets(ctx, nil)
	case "currencies":
		return ad.FetchCurrencies(ctx, nil)
	case "ticker":
		if len(args) < 3 {
			return nil, fmt.Errorf("ticker requires a symbol")
		}
		return ad.FetchTicker(ctx, args[2], nil)
	case "book":
		if len(args) < 3 {
			return nil, fmt.Errorf("book requires a symbol")
		}
		limit := 0
		if len(args) > 3 {
			v, err := strconv.Atoi(args[3])
			if err != nil {
				return nil, fmt.Errorf("bad limit %q: %w", args[3], err)
			}
			limit = v
		}
		return ad.FetchOrderBook(ctx, args[2], limit, nil)
	case "ohlcv":
		if len(args) < 4 {
			return nil, fmt.Errorf("ohlcv requires a symbol and timeframe")
		}
		return ad.FetchOHLCV(ctx, args[2], args[3], time.Time{}, 0, nil)
	case "balance":
		return ad.FetchBalance(ctx, nil)
	case "order":
		if len(args) < 3 {
			return nil, fmt.Errorf("order requires an order id")
		}
		symbol := ""
		if len(args) > 3 {
			symbol = args[3]
		}
		return ad.FetchOrder(ctx, args[2], symbol, nil)
	default:
		return nil, fmt.Errorf("unknown command %q", args[0])
	}
}

func print(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}
