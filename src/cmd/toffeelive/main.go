package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/bililive-go/toffeelive-go/src/browser"
	"github.com/bililive-go/toffeelive-go/src/cmd/toffeelive/internal/flag"
	"github.com/bililive-go/toffeelive-go/src/configs"
	"github.com/bililive-go/toffeelive-go/src/consts"
	"github.com/bililive-go/toffeelive-go/src/emitter"
	"github.com/bililive-go/toffeelive-go/src/log"
	"github.com/bililive-go/toffeelive-go/src/metrics"
	"github.com/bililive-go/toffeelive-go/src/pkg/proxy"
	bilisentry "github.com/bililive-go/toffeelive-go/src/pkg/sentry"
	"github.com/bililive-go/toffeelive-go/src/scraper"
)

var (
	// SentryDSN 编译时注入，为空时使用配置或环境变量 TOFFEE_SENTRY_DSN
	SentryDSN = ""
	// SentryEnv Sentry Environment (编译时注入)
	SentryEnv = "production"
)

func getConfig() (*configs.Config, error) {
	var config *configs.Config
	if *flag.Conf != "" {
		c, err := configs.NewConfigWithFile(*flag.Conf)
		if err != nil {
			return nil, err
		}
		config = c
	} else {
		config = flag.GenConfigFromFlags()
	}
	config.ApplyEnv(os.Getenv)
	if SentryDSN != "" {
		config.Sentry.DSN = SentryDSN
	}
	return config, config.Verify()
}

func chromeFactory(config *configs.Config, logger *logrus.Entry) browser.Factory {
	return func(ctx context.Context) (browser.Session, error) {
		c, err := browser.NewChrome(ctx, browser.Options{
			Headless:    config.Browser.Headless,
			ExecPath:    config.Browser.ExecPath,
			ProxyServer: proxy.BrowserProxyServer(config),
			Timeout:     config.Browser.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	if err := flag.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 2
	}
	// .env 不存在时忽略
	_ = godotenv.Load()

	config, err := getConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	if *flag.GenConfig != "" {
		config.File = *flag.GenConfig
		if err := config.Marshal(); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return 1
		}
		fmt.Printf("config written to %s\n", config.File)
		return 0
	}
	configs.SetCurrentConfig(config)

	logger, closer, err := log.New(config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	defer closer.Close()

	if config.Sentry.Enable && config.Sentry.DSN != "" {
		environment := SentryEnv
		if config.Debug {
			environment = "development"
		}
		if err := bilisentry.Init(config.Sentry.DSN, environment, consts.AppVersion, map[string]string{
			"base_url": config.BaseURL,
		}); err != nil {
			// Sentry 初始化失败不影响运行
			logger.WithError(err).Warn("failed to init sentry")
		}
	}
	defer bilisentry.Flush(2 * time.Second)
	defer bilisentry.Recover()

	logger.Infof("%s Version: %s Link Start", consts.AppName, consts.AppVersion)
	if config.File != "" {
		logger.Debugf("config path: %s.", config.File)
		logger.Debugf("other flags have been ignored.")
	}
	logger.Debugf("%+v", consts.GetAppInfo())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	entry := logrus.NewEntry(logger)
	m := metrics.New()
	var factory browser.Factory
	if config.Browser.Enable {
		factory = chromeFactory(config, entry)
	}

	res, err := scraper.New(config, factory, m, entry).Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("\nScript terminated by user.")
			return 130
		}
		logger.WithError(err).Error("discovery failed")
		bilisentry.CaptureException(err)
		return 1
	}

	w := &emitter.Writer{
		ChannelsFile: config.Output.JSONFile,
		PlaylistFile: config.Output.PlaylistFile,
		StreamHost:   config.StreamHost,
	}
	writeErr := w.Write(res.Channels, res.Credential)
	if writeErr != nil {
		logger.WithError(writeErr).Error("failed to write output")
		bilisentry.CaptureException(writeErr)
	}
	if err := m.WriteTextfile(config.Output.MetricsFile); err != nil {
		logger.WithError(err).Warn("failed to write metrics")
	}

	printSummary(os.Stdout, res, w, writeErr)
	return 0
}
