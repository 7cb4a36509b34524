package lifecycle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/offline-hub/offline-hub/internal/cache"
	"github.com/offline-hub/offline-hub/internal/logging"
	"github.com/offline-hub/offline-hub/internal/server"
)

// State 描述缓存生命周期状态：未安装 → 已安装 → 已激活。
type State string

const (
	StateUninstalled State = "uninstalled"
	StateInstalled   State = "installed"
	StateActive      State = "active"
)

// Handler 拥有当前命名缓存的生命周期：安装阶段预取资源清单，激活阶段
// 清理过期缓存版本。请求处理不经过它，未安装时请求自然退化为纯回源。
type Handler struct {
	client         *http.Client
	logger         *logrus.Logger
	store          cache.Store
	origin         *server.Origin
	installTimeout time.Duration

	mu    sync.Mutex
	state State
}

// NewHandler 构造生命周期处理器，installTimeout 为 0 时安装阶段不设总超时。
func NewHandler(client *http.Client, logger *logrus.Logger, store cache.Store, origin *server.Origin, installTimeout time.Duration) *Handler {
	return &Handler{
		client:         client,
		logger:         logger,
		store:          store,
		origin:         origin,
		installTimeout: installTimeout,
		state:          StateUninstalled,
	}
}

// State 返回当前生命周期状态，供诊断端使用。
func (h *Handler) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// CacheName 返回当前生效的缓存版本标识。
func (h *Handler) CacheName() string {
	return h.origin.CacheName
}

func (h *Handler) setState(s State) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
}

// Install 预取清单中的全部资源并写入当前缓存名。整体为 all-or-nothing：
// 任何一个资源拉取失败（网络错误或非 2xx 响应）都会中止安装、删除已写入
// 的部分条目并返回错误，状态保持未安装，由外层监督进程决定何时重试。
func (h *Handler) Install(ctx context.Context) error {
	if h.installTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.installTimeout)
		defer cancel()
	}

	started := time.Now()
	for _, asset := range h.origin.Assets {
		if err := h.prefetchAsset(ctx, asset); err != nil {
			h.cleanupFailedInstall()

			fields := logging.InstallFields(h.origin.CacheName)
			fields["asset"] = asset
			fields["error"] = err.Error()
			h.logger.WithFields(fields).Error("install_failed")

			return fmt.Errorf("预取资源 %s 失败: %w", asset, err)
		}
	}

	h.setState(StateInstalled)

	fields := logging.InstallFields(h.origin.CacheName)
	fields["assets"] = len(h.origin.Assets)
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	h.logger.WithFields(fields).Info("install_complete")
	return nil
}

// prefetchAsset 拉取单个资源并写入缓存，文件时间戳取源站 Last-Modified。
func (h *Handler) prefetchAsset(ctx context.Context, asset string) error {
	assetURL := h.origin.AssetURL(asset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL.String(), http.NoBody)
	if err != nil {
		return err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		// 排空正文以便复用连接
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, assetURL)
	}

	key := cache.Key{CacheName: h.origin.CacheName, Path: asset}
	opts := cache.PutOptions{ModTime: extractModTime(resp.Header)}
	entry, err := h.store.Put(ctx, key, resp.Body, opts)
	if err != nil {
		return fmt.Errorf("write cache: %w", err)
	}

	fields := logging.InstallFields(h.origin.CacheName)
	fields["asset"] = asset
	fields["size_bytes"] = entry.SizeBytes
	h.logger.WithFields(fields).Debug("asset_prefetched")
	return nil
}

// cleanupFailedInstall 删除安装中途写入的条目，保证不存在半成品缓存。
// 使用独立 context，安装超时不应阻止清理。
func (h *Handler) cleanupFailedInstall() {
	cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := h.store.Delete(cleanupCtx, h.origin.CacheName); err != nil {
		fields := logging.InstallFields(h.origin.CacheName)
		fields["error"] = err.Error()
		h.logger.WithFields(fields).Warn("install_cleanup_failed")
	}
}

// Activate 枚举全部缓存名并删除所有不等于当前缓存名的版本。重复执行是
// 幂等的：第二次运行不会再产生删除动作。单个删除失败只记录日志并留给
// 下一次激活重试，不会使激活整体失败。
func (h *Handler) Activate(ctx context.Context) error {
	names, err := h.store.Names(ctx)
	if err != nil {
		return fmt.Errorf("枚举缓存失败: %w", err)
	}

	removed := 0
	for _, name := range names {
		if name == h.origin.CacheName {
			continue
		}
		existed, err := h.store.Delete(ctx, name)
		if err != nil {
			h.logger.WithFields(logrus.Fields{
				"action":      "activate",
				"cache_name":  h.origin.CacheName,
				"stale_cache": name,
				"error":       err.Error(),
			}).Warn("stale_cache_delete_failed")
			continue
		}
		if existed {
			removed++
			h.logger.WithFields(logrus.Fields{
				"action":      "activate",
				"cache_name":  h.origin.CacheName,
				"stale_cache": name,
			}).Info("stale_cache_removed")
		}
	}

	h.setState(StateActive)

	h.logger.WithFields(logrus.Fields{
		"action":     "activate",
		"cache_name": h.origin.CacheName,
		"removed":    removed,
	}).Info("activate_complete")
	return nil
}

// extractModTime 解析 Last-Modified，缺失或非法时退回当前时间。
func extractModTime(header http.Header) time.Time {
	if last := header.Get("Last-Modified"); last != "" {
		if parsed, err := http.ParseTime(last); err == nil {
			return parsed.UTC()
		}
	}
	return time.Now().UTC()
}
