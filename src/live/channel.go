package live

import (
	"net/http"
	"strings"
	"time"
)

// UnknownChannelName 无法从地址推导出频道名时使用的名称
const UnknownChannelName = "Unknown Channel"

// Credential 边缘缓存的访问凭证，形如 "Edge-Cache-Cookie=xxx"。
// 上游不告知有效期，失效时整体丢弃并重新获取，不做修改。
type Credential string

// IsZero 是否未持有凭证
func (c Credential) IsZero() bool {
	return c == ""
}

// Value 返回 "=" 之后的 cookie 值
func (c Credential) Value() string {
	if _, v, ok := strings.Cut(string(c), "="); ok {
		return v
	}
	return ""
}

// Masked 用于日志输出，最多保留前 8 个字符且不超过值的一半
func (c Credential) Masked() string {
	v := c.Value()
	return CookieName + "=" + v[:min(8, len(v)/2)] + "..."
}

// CookieName 边缘缓存 cookie 的名称
const CookieName = "Edge-Cache-Cookie"

// ChannelReference 尚未解析出 m3u8 的频道，由 locator 产生，仅在一次运行中使用
type ChannelReference struct {
	Name    string
	PageURL string
}

// Channel 解析完成的频道，构造后不再修改
type Channel struct {
	Name         string
	PageURL      string
	StreamURL    string
	DiscoveredAt time.Time
}

// Page 一次 GET 请求的结果
type Page struct {
	URL    string
	Status int
	Header http.Header
	Body   []byte
}

// OK 状态码是否为 200
func (p *Page) OK() bool {
	return p != nil && p.Status == http.StatusOK
}
