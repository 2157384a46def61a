// Package flag 命令行参数
package flag

import (
	"fmt"

	"github.com/alecthomas/kingpin"

	"github.com/bililive-go/toffeelive-go/src/configs"
	"github.com/bililive-go/toffeelive-go/src/consts"
)

var (
	app = kingpin.New(consts.AppName, "Discover Toffee Live channels and write a player playlist.")

	Conf      = app.Flag("config", "配置文件路径，指定后忽略其他参数").Short('c').Default("").String()
	GenConfig = app.Flag("gen-config", "将当前参数对应的配置写入该文件后退出").Default("").String()

	Debug        = app.Flag("debug", "输出调试日志").Short('d').Default("false").Bool()
	BaseURL      = app.Flag("base-url", "站点地址").Default("").String()
	NoBrowser    = app.Flag("no-browser", "不启动浏览器，只扫描目录页").Default("false").Bool()
	Headful      = app.Flag("headful", "显示浏览器窗口").Default("false").Bool()
	ChromePath   = app.Flag("chrome-path", "Chrome/Chromium 可执行文件路径").Default("").String()
	Retries      = app.Flag("retries", "凭证获取和频道解析的最大尝试次数").Default("0").Int()
	Delay        = app.Flag("delay", "两次尝试之间的间隔").Default("0s").Duration()
	Settle       = app.Flag("settle", "打开观看页后等待的时间").Default("0s").Duration()
	Proxy        = app.Flag("proxy", "代理地址，支持 http:// 和 socks5://").Default("").String()
	JSONFile     = app.Flag("json-file", "频道列表输出文件").Default("").String()
	PlaylistFile = app.Flag("playlist-file", "播放列表输出文件").Default("").String()
	MetricsFile  = app.Flag("metrics-file", "prometheus textfile 输出文件").Default("").String()
)

// Parse 解析命令行参数
func Parse(args []string) error {
	app.Version(fmt.Sprintf("%s %s (%s)", consts.AppName, consts.AppVersion, consts.GitHash))
	app.HelpFlag.Short('h')
	_, err := app.Parse(args)
	return err
}

// GenConfigFromFlags 在默认配置上应用命令行参数，未指定的参数保持默认值
func GenConfigFromFlags() *configs.Config {
	config := configs.NewConfig()
	config.Debug = *Debug
	if *BaseURL != "" {
		config.BaseURL = *BaseURL
	}
	config.Browser.Enable = !*NoBrowser
	config.Browser.Headless = !*Headful
	if *ChromePath != "" {
		config.Browser.ExecPath = *ChromePath
	}
	if *Retries > 0 {
		config.Retry.MaxAttempts = *Retries
	}
	if *Delay > 0 {
		config.Retry.Delay = *Delay
	}
	if *Settle > 0 {
		config.Browser.Settle = *Settle
	}
	if *Proxy != "" {
		config.Proxy = configs.Proxy{Enable: true, URL: *Proxy}
	}
	if *JSONFile != "" {
		config.Output.JSONFile = *JSONFile
	}
	if *PlaylistFile != "" {
		config.Output.PlaylistFile = *PlaylistFile
	}
	if *MetricsFile != "" {
		config.Output.MetricsFile = *MetricsFile
	}
	return config
}
