package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if g.StoragePath == "" {
		return newFieldError("Global.StoragePath", "不能为空")
	}
	if g.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError("Global.UpstreamTimeout", "必须大于 0")
	}
	if g.InstallTimeout.DurationValue() < 0 {
		return newFieldError("Global.InstallTimeout", "不能为负数")
	}

	if err := validateCacheName(c.Cache.CacheName); err != nil {
		return fmt.Errorf("%s: %w", cacheField("CacheName"), err)
	}
	if err := validateUpstream(c.Cache.Upstream); err != nil {
		return fmt.Errorf("%s: %w", cacheField("Upstream"), err)
	}

	if len(c.Cache.Assets) == 0 {
		return newFieldError(cacheField("Assets"), "至少需要一个预取资源")
	}
	seen := map[string]struct{}{}
	for i, asset := range c.Cache.Assets {
		if asset == "" {
			return newFieldError(assetField(i), "不能为空")
		}
		if !strings.HasPrefix(asset, "/") {
			return newFieldError(assetField(i), "必须以 / 开头的绝对路径")
		}
		if strings.Contains(asset, " ") {
			return newFieldError(assetField(i), "不允许包含空格")
		}
		if _, exists := seen[asset]; exists {
			return newFieldError(assetField(i), "重复")
		}
		seen[asset] = struct{}{}
	}

	return nil
}

// validateCacheName 保证缓存名可以安全用作磁盘目录名。
func validateCacheName(name string) error {
	if name == "" {
		return errors.New("不能为空")
	}
	if strings.ContainsAny(name, "/\\") {
		return errors.New("不允许包含路径分隔符")
	}
	if name == "." || name == ".." {
		return errors.New("非法名称")
	}
	if strings.Contains(name, " ") {
		return errors.New("不允许包含空格")
	}
	return nil
}

func validateUpstream(raw string) error {
	if raw == "" {
		return errors.New("缺少源站地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，源站: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("源站缺少 Host: %s", raw)
	}
	return nil
}
