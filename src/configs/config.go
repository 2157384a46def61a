package configs

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bililive-go/toffeelive-go/src/consts"
)

// Retry 重试策略
type Retry struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	Delay       time.Duration `yaml:"delay" json:"delay"`
}

// Browser 浏览器后端配置
type Browser struct {
	Enable   bool          `yaml:"enable" json:"enable"`
	Headless bool          `yaml:"headless" json:"headless"`
	ExecPath string        `yaml:"exec_path" json:"exec_path"` // 留空时由 chromedp 自动查找
	Settle   time.Duration `yaml:"settle" json:"settle"`       // 打开观看页后等待播放器发起请求的时间
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`     // 单次导航超时
}

// Output 输出文件
type Output struct {
	JSONFile     string `yaml:"json_file" json:"json_file"`
	PlaylistFile string `yaml:"playlist_file" json:"playlist_file"`
	MetricsFile  string `yaml:"metrics_file" json:"metrics_file"` // 留空表示不输出
}

type Log struct {
	OutPutFolder string `yaml:"out_put_folder" json:"out_put_folder"`
	SaveLastLog  bool   `yaml:"save_last_log" json:"save_last_log"`
	SaveEveryLog bool   `yaml:"save_every_log" json:"save_every_log"`
	// RotateDays 按"天"滚动日志时最多保留的天数（<=0 表示不清理）
	RotateDays int `yaml:"rotate_days" json:"rotate_days"`
}

// Proxy 代理配置
type Proxy struct {
	// Enable 是否启用配置的代理（false 时使用系统环境变量 HTTP_PROXY 等）
	Enable bool `yaml:"enable" json:"enable"`
	// URL 代理地址，支持 http://host:port 或 socks5://host:port
	URL string `yaml:"url" json:"url"`
}

type Sentry struct {
	Enable bool   `yaml:"enable" json:"enable"`
	DSN    string `yaml:"dsn" json:"dsn"`
}

// Config content all config info.
type Config struct {
	File  string `yaml:"-" json:"-"`
	Debug bool   `yaml:"debug" json:"debug"`

	BaseURL      string `yaml:"base_url" json:"base_url"`
	LivePath     string `yaml:"live_path" json:"live_path"`
	WatchSegment string `yaml:"watch_segment" json:"watch_segment"`
	StreamHost   string `yaml:"stream_host" json:"stream_host"`

	Retry             Retry         `yaml:"retry" json:"retry"`
	Browser           Browser       `yaml:"browser" json:"browser"`
	UserAgents        []string      `yaml:"user_agents" json:"user_agents"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	MinAccessInterval time.Duration `yaml:"min_access_interval" json:"min_access_interval"`

	Output Output `yaml:"output" json:"output"`
	Log    Log    `yaml:"log" json:"log"`
	Proxy  Proxy  `yaml:"proxy" json:"proxy"`
	Sentry Sentry `yaml:"sentry" json:"sentry"`
}

// 使用 atomic.Value 存放当前配置指针，避免并发读写造成 data race
var config atomic.Value // stores *Config

func SetCurrentConfig(cfg *Config) {
	config.Store(cfg)
}

func GetCurrentConfig() *Config {
	v := config.Load()
	if v == nil {
		return nil
	}
	return v.(*Config)
}

var defaultConfig = Config{
	Debug:        false,
	BaseURL:      consts.DefaultBaseURL,
	LivePath:     consts.DefaultLivePath,
	WatchSegment: consts.DefaultWatchSegment,
	StreamHost:   consts.DefaultStreamHost,
	Retry: Retry{
		MaxAttempts: 3,
		Delay:       5 * time.Second,
	},
	Browser: Browser{
		Enable:   true,
		Headless: true,
		Settle:   10 * time.Second,
		Timeout:  60 * time.Second,
	},
	UserAgents:        consts.DesktopUserAgents,
	Timeout:           30 * time.Second,
	MinAccessInterval: time.Second,
	Output: Output{
		JSONFile:     "toffee_channels.json",
		PlaylistFile: "toffee_channels.m3u",
	},
	Log: Log{
		OutPutFolder: "./",
		SaveLastLog:  false,
		SaveEveryLog: false,
		RotateDays:   7,
	},
}

func NewConfig() *Config {
	config := defaultConfig
	config.UserAgents = append([]string(nil), defaultConfig.UserAgents...)
	return &config
}

func NewConfigWithBytes(b []byte) (*Config, error) {
	config := NewConfig()
	if err := yaml.Unmarshal(b, config); err != nil {
		return nil, err
	}
	return config, nil
}

func NewConfigWithFile(file string) (*Config, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("can`t open file: %s: %w", file, err)
	}
	config, err := NewConfigWithBytes(b)
	if err != nil {
		return nil, err
	}
	config.File = file
	return config, nil
}

// 可通过 .env 或环境变量覆盖的配置项
const (
	EnvBaseURL   = "TOFFEE_BASE_URL"
	EnvProxy     = "TOFFEE_PROXY"
	EnvSentryDSN = "TOFFEE_SENTRY_DSN"
	EnvChromium  = "TOFFEE_CHROME_PATH"
)

// ApplyEnv 用环境变量覆盖配置
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := getenv(EnvProxy); v != "" {
		c.Proxy.Enable = true
		c.Proxy.URL = v
	}
	if v := getenv(EnvSentryDSN); v != "" {
		c.Sentry.DSN = v
	}
	if v := getenv(EnvChromium); v != "" {
		c.Browser.ExecPath = v
	}
}

// LiveURL 直播目录页地址
func (c *Config) LiveURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(c.LivePath, "/")
}

// Verify will return an error when this config has problem.
func (c *Config) Verify() error {
	if c == nil {
		return errors.New("配置不存在")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("无效的 base_url: %q", c.BaseURL)
	}
	if strings.TrimSpace(c.StreamHost) == "" {
		return errors.New("stream_host 不能为空")
	}
	if strings.TrimSpace(c.WatchSegment) == "" {
		return errors.New("watch_segment 不能为空")
	}
	if c.Retry.MaxAttempts < 1 {
		return errors.New("retry.max_attempts 必须大于 0")
	}
	if c.Retry.Delay < 0 || c.Browser.Settle < 0 || c.Browser.Timeout < 0 || c.Timeout < 0 || c.MinAccessInterval < 0 {
		return errors.New("时间间隔不能为负数")
	}
	if len(c.UserAgents) == 0 {
		return errors.New("user_agents 不能为空")
	}
	if c.Output.JSONFile == "" || c.Output.PlaylistFile == "" {
		return errors.New("输出文件名不能为空")
	}
	if c.Proxy.Enable {
		if _, err := url.Parse(c.Proxy.URL); err != nil || c.Proxy.URL == "" {
			return fmt.Errorf("无效的代理地址: %q", c.Proxy.URL)
		}
	}
	return nil
}

// Marshal 将配置写回 File
func (c *Config) Marshal() error {
	if c.File == "" {
		return errors.New("config path not set")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.File, b, 0o644)
}
