package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields 提供请求路径/方法/命中状态字段，供代理请求日志复用。
func RequestFields(method, path string, cacheHit bool, cacheName string) logrus.Fields {
	fields := logrus.Fields{
		"method":    method,
		"path":      path,
		"cache_hit": cacheHit,
	}
	if cacheName != "" {
		fields["cache_name"] = cacheName
	}
	return fields
}

// InstallFields 构建安装阶段的通用字段，cacheName 为当前缓存版本。
func InstallFields(cacheName string) logrus.Fields {
	return logrus.Fields{
		"action":     "install",
		"cache_name": cacheName,
	}
}
