package config

import "testing"

func TestLoadFailsWithMissingFields(t *testing.T) {
	if _, err := Load(testConfigPath(t, "missing.toml")); err == nil {
		t.Fatalf("缺失字段的配置应返回错误")
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	cfg := `
LogLevel = "info"
StoragePath = "./data"
UpstreamTimeout = "boom"

[Cache]
CacheName = "bakgomong-cache-v1"
Upstream = "https://bakgomong.example.com"
Assets = ["/"]
`
	path := writeTempConfig(t, cfg)
	if _, err := Load(path); err == nil {
		t.Fatalf("无效 Duration 应失败")
	}
}

func TestLoadAcceptsSecondsAsDuration(t *testing.T) {
	cfg := `
LogLevel = "info"
StoragePath = "./data"
UpstreamTimeout = 15

[Cache]
CacheName = "bakgomong-cache-v1"
Upstream = "https://bakgomong.example.com"
Assets = ["/"]
`
	path := writeTempConfig(t, cfg)
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("纯秒数配置应当可以解析: %v", err)
	}
	if got := loaded.Global.UpstreamTimeout.DurationValue().Seconds(); got != 15 {
		t.Fatalf("UpstreamTimeout 解析错误: %v", got)
	}
}
