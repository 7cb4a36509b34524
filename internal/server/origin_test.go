package server

import (
	"testing"

	"github.com/offline-hub/offline-hub/internal/config"
)

func TestNewOriginParsesUpstream(t *testing.T) {
	cfg := &config.Config{
		Global: config.GlobalConfig{ListenPort: 5000},
		Cache: config.CacheConfig{
			CacheName: "bakgomong-cache-v1",
			Upstream:  "https://bakgomong.example.com",
			Assets:    []string{"/", "/static/css/style.css"},
		},
	}

	origin, err := NewOrigin(cfg)
	if err != nil {
		t.Fatalf("NewOrigin 返回错误: %v", err)
	}
	if origin.URL.Host != "bakgomong.example.com" {
		t.Fatalf("unexpected host: %s", origin.URL.Host)
	}
	if origin.CacheName != "bakgomong-cache-v1" {
		t.Fatalf("unexpected cache name: %s", origin.CacheName)
	}
	if len(origin.Assets) != 2 {
		t.Fatalf("unexpected assets: %v", origin.Assets)
	}

	got := origin.AssetURL("/static/css/style.css").String()
	if got != "https://bakgomong.example.com/static/css/style.css" {
		t.Fatalf("AssetURL 解析错误: %s", got)
	}
}

func TestNewOriginCopiesAssets(t *testing.T) {
	cfg := &config.Config{
		Cache: config.CacheConfig{
			CacheName: "bakgomong-cache-v1",
			Upstream:  "https://bakgomong.example.com",
			Assets:    []string{"/"},
		},
	}

	origin, err := NewOrigin(cfg)
	if err != nil {
		t.Fatalf("NewOrigin 返回错误: %v", err)
	}

	cfg.Cache.Assets[0] = "/mutated"
	if origin.Assets[0] != "/" {
		t.Fatalf("Origin 应持有清单副本，got %s", origin.Assets[0])
	}
}
