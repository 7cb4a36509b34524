package server

import (
	"fmt"
	"net/url"

	"github.com/offline-hub/offline-hub/internal/config"
)

// Origin 将缓存配置与预解析的源站 URL 聚合在一起，供安装/代理层直接复用，
// 避免重复解析配置。
type Origin struct {
	// URL 是构造时解析完成的源站基地址。
	URL *url.URL
	// CacheName 是当前生效的缓存版本标识。
	CacheName string
	// Assets 是安装阶段预取的资源清单副本，避免外部修改。
	Assets []string
	// ListenPort 记录当前 CLI 监听端口，方便日志/转发头输出。
	ListenPort int
}

// NewOrigin 根据配置构造 Origin，假定 config.Validate 已经通过。
func NewOrigin(cfg *config.Config) (*Origin, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	parsed, err := url.Parse(cfg.Cache.Upstream)
	if err != nil {
		return nil, fmt.Errorf("parse upstream: %w", err)
	}

	assets := append([]string(nil), cfg.Cache.Assets...)

	return &Origin{
		URL:        parsed,
		CacheName:  cfg.Cache.CacheName,
		Assets:     assets,
		ListenPort: cfg.Global.ListenPort,
	}, nil
}

// AssetURL 将清单中的绝对路径解析为完整的源站 URL。
func (o *Origin) AssetURL(asset string) *url.URL {
	relative := &url.URL{Path: asset}
	return o.URL.ResolveReference(relative)
}
