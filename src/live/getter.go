package live

import "context"

// Getter 发起 GET 请求。
// 只有网络层面失败才返回 error（TransportError），状态码由调用方自行判断。
type Getter interface {
	Get(ctx context.Context, rawURL string) (*Page, error)
}
