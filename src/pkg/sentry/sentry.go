// Package sentry 提供 Sentry 错误监控的封装
// 上报前会清理 cookie、token 等敏感数据
package sentry

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
)

var (
	initialized bool
	initMu      sync.RWMutex
)

// 敏感关键字列表，用于过滤敏感数据
var sensitiveKeywords = []string{
	"cookie", "token", "password", "passwd", "secret", "key", "auth",
	"credential", "api_key", "apikey", "access_token", "refresh_token",
	"signature",
}

// 敏感 URL 参数正则表达式
var sensitiveURLPattern = regexp.MustCompile(`[?&](token|key|secret|password|auth|access_token|session)[=][^&]*`)

// keyword=value 或 keyword: value 格式
var sensitiveValuePatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(sensitiveKeywords))
	for _, keyword := range sensitiveKeywords {
		patterns = append(patterns, regexp.MustCompile(`(?i)(`+regexp.QuoteMeta(keyword)+`)\s*[=:]\s*[^\s,;}"\]]+`))
	}
	return patterns
}()

// Init 初始化 Sentry SDK，dsn 为空时不启用
func Init(dsn, environment, release string, tags map[string]string) error {
	if dsn == "" {
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: true,
		BeforeSend:       beforeSendHook,
		SampleRate:       1.0,
	})
	if err != nil {
		return err
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
	})

	initMu.Lock()
	initialized = true
	initMu.Unlock()
	return nil
}

// IsInitialized 返回 Sentry 是否已初始化
func IsInitialized() bool {
	initMu.RLock()
	defer initMu.RUnlock()
	return initialized
}

// Flush 刷新所有待发送事件（程序退出前调用）
func Flush(timeout time.Duration) {
	if !IsInitialized() {
		return
	}
	sentry.Flush(timeout)
}

// Recover 用于 panic 恢复，应使用 defer 调用。
// 必须先调用 recover()，再检查 Sentry 状态，否则 panic 不会被捕获
func Recover() {
	err := recover()
	if err == nil {
		return
	}
	if IsInitialized() {
		if hub := sentry.CurrentHub(); hub != nil {
			hub.Recover(err)
		}
	}
}

// CaptureException 捕获异常
func CaptureException(err error) {
	if !IsInitialized() || err == nil {
		return
	}
	sentry.CaptureException(err)
}

// beforeSendHook 在发送事件前清理敏感数据
func beforeSendHook(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if event.Message != "" {
		event.Message = sanitizeString(event.Message)
	}
	for i := range event.Exception {
		if event.Exception[i].Value != "" {
			event.Exception[i].Value = sanitizeString(event.Exception[i].Value)
		}
		if event.Exception[i].Stacktrace != nil {
			for j := range event.Exception[i].Stacktrace.Frames {
				frame := &event.Exception[i].Stacktrace.Frames[j]
				frame.Vars = sanitizeMap(frame.Vars)
			}
		}
	}
	event.Extra = sanitizeMap(event.Extra)
	for key, ctxData := range event.Contexts {
		event.Contexts[key] = sanitizeMap(ctxData)
	}
	event.Tags = sanitizeTags(event.Tags)
	if event.Request != nil {
		event.Request = sanitizeRequest(event.Request)
	}
	return event
}

// sanitizeString 清理字符串中的敏感数据
func sanitizeString(s string) string {
	result := sensitiveURLPattern.ReplaceAllString(s, "$1=[REDACTED]")
	for _, pattern := range sensitiveValuePatterns {
		result = pattern.ReplaceAllString(result, "$1=[REDACTED]")
	}
	return result
}

// sanitizeMap 清理 map 中的敏感数据
func sanitizeMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	result := make(map[string]interface{}, len(m))
	for key, value := range m {
		switch v := value.(type) {
		case string:
			if isSensitiveKey(key) {
				result[key] = "[REDACTED]"
			} else {
				result[key] = sanitizeString(v)
			}
		case map[string]interface{}:
			result[key] = sanitizeMap(v)
		default:
			if isSensitiveKey(key) {
				result[key] = "[REDACTED]"
			} else {
				result[key] = value
			}
		}
	}
	return result
}

// sanitizeTags 清理 tags 中的敏感数据
func sanitizeTags(tags map[string]string) map[string]string {
	if tags == nil {
		return nil
	}
	result := make(map[string]string, len(tags))
	for key, value := range tags {
		if isSensitiveKey(key) {
			result[key] = "[REDACTED]"
		} else {
			result[key] = sanitizeString(value)
		}
	}
	return result
}

// sanitizeRequest 清理 HTTP 请求中的敏感数据
func sanitizeRequest(req *sentry.Request) *sentry.Request {
	if req.URL != "" {
		req.URL = sensitiveURLPattern.ReplaceAllString(req.URL, "$1=[REDACTED]")
	}
	if req.QueryString != "" {
		req.QueryString = sanitizeString(req.QueryString)
	}
	for header := range req.Headers {
		if isSensitiveKey(header) {
			req.Headers[header] = "[REDACTED]"
		}
	}
	if req.Cookies != "" {
		req.Cookies = "[REDACTED]"
	}
	if req.Data != "" {
		req.Data = sanitizeString(req.Data)
	}
	return req
}

// isSensitiveKey 检查键名是否为敏感键
func isSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(keyLower, keyword) {
			return true
		}
	}
	return false
}
