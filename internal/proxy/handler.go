package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/offline-hub/offline-hub/internal/cache"
	"github.com/offline-hub/offline-hub/internal/logging"
	"github.com/offline-hub/offline-hub/internal/server"
)

// Handler 负责 orchestrate “缓存命中 → 回源透传” 的全流程，对外暴露
// Fiber handler，内部复用共享 http.Client 与磁盘缓存。缓存只在安装阶段
// 写入：回源响应不会写回缓存，这是刻意保留的 write-once 设计。
type Handler struct {
	client *http.Client
	logger *logrus.Logger
	store  cache.Store
	origin *server.Origin
}

// NewHandler constructs a fetch handler with shared HTTP client/logger/store.
func NewHandler(client *http.Client, logger *logrus.Logger, store cache.Store, origin *server.Origin) *Handler {
	return &Handler{
		client: client,
		logger: logger,
		store:  store,
		origin: origin,
	}
}

// Handle 执行跨缓存查找与回源透传，任何阶段出错都会输出结构化日志。
// 未命中时只发起一次回源请求，响应原样返回。
func (h *Handler) Handle(c fiber.Ctx) error {
	started := time.Now()
	requestID := server.RequestID(c)
	method := c.Method()
	cleanPath := normalizeRequestPath(string(c.Request().URI().Path()))

	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// 请求标识包含查询串：安装阶段写入的条目都没有查询串，带参请求
	// 直接视为未命中回源。
	hasQuery := len(c.Request().URI().QueryString()) > 0

	if (method == http.MethodGet || method == http.MethodHead) && !hasQuery {
		result, err := h.store.Match(ctx, cleanPath, h.origin.CacheName)
		switch {
		case err == nil:
			defer result.Reader.Close()
			return h.serveCache(c, result, requestID, started)
		case errors.Is(err, cache.ErrNotFound):
			// miss, continue
		default:
			h.logger.WithError(err).
				WithFields(logrus.Fields{"path": cleanPath, "cache_name": h.origin.CacheName}).
				Warn("cache_match_failed")
		}
	}

	return h.fetchUpstream(c, cleanPath, requestID, started, ctx)
}

func (h *Handler) serveCache(
	c fiber.Ctx,
	result *cache.ReadResult,
	requestID string,
	started time.Time,
) error {
	method := c.Method()

	if contentType := inferContentType(result.Entry.Key.Path); contentType != "" {
		c.Set("Content-Type", contentType)
	} else {
		c.Response().Header.Del("Content-Type")
	}

	length := result.Entry.SizeBytes
	if length > 0 {
		c.Response().Header.SetContentLength(int(length))
	} else {
		c.Response().Header.Del("Content-Length")
	}

	c.Set("X-Offline-Hub-Cache", result.Entry.Key.CacheName)
	c.Set("X-Offline-Hub-Cache-Hit", "true")
	if requestID != "" {
		c.Set("X-Request-ID", requestID)
	}

	status := fiber.StatusOK
	c.Status(status)

	if method == http.MethodHead {
		h.logResult(method, result.Entry.Key.Path, "", requestID, status, true, result.Entry.Key.CacheName, started, nil)
		return nil
	}

	_, err := io.Copy(c.Response().BodyWriter(), result.Reader)
	h.logResult(method, result.Entry.Key.Path, "", requestID, status, true, result.Entry.Key.CacheName, started, err)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, fmt.Sprintf("read cache failed: %v", err))
	}
	return nil
}

// fetchUpstream 发起单次回源请求并原样透传响应，失败时返回 502。
func (h *Handler) fetchUpstream(
	c fiber.Ctx,
	cleanPath string,
	requestID string,
	started time.Time,
	ctx context.Context,
) error {
	method := c.Method()
	upstreamURL := h.resolveUpstreamURL(c, cleanPath)

	req, err := h.buildUpstreamRequest(c, ctx, upstreamURL, method)
	if err != nil {
		h.logResult(method, cleanPath, upstreamURL.String(), requestID, 0, false, "", started, err)
		return h.writeError(c, fiber.StatusBadGateway, "upstream_failed")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.logResult(method, cleanPath, upstreamURL.String(), requestID, 0, false, "", started, err)
		return h.writeError(c, fiber.StatusBadGateway, "upstream_failed")
	}
	defer resp.Body.Close()

	copyResponseHeaders(c, resp.Header)
	c.Set("X-Offline-Hub-Upstream", upstreamURL.String())
	c.Set("X-Offline-Hub-Cache-Hit", "false")
	if requestID != "" {
		c.Set("X-Request-ID", requestID)
	}
	c.Status(resp.StatusCode)

	if method == http.MethodHead {
		h.logResult(method, cleanPath, upstreamURL.String(), requestID, resp.StatusCode, false, "", started, nil)
		return nil
	}

	_, err = io.Copy(c.Response().BodyWriter(), resp.Body)
	h.logResult(method, cleanPath, upstreamURL.String(), requestID, resp.StatusCode, false, "", started, err)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, fmt.Sprintf("proxy stream failed: %v", err))
	}
	return nil
}

func (h *Handler) buildUpstreamRequest(
	c fiber.Ctx,
	ctx context.Context,
	upstream *url.URL,
	method string,
) (*http.Request, error) {
	body := bytesReader(c.Body())

	req, err := http.NewRequestWithContext(ctx, method, upstream.String(), body)
	if err != nil {
		return nil, err
	}

	requestHeaders := fiberHeadersAsHTTP(c)
	server.CopyHeaders(req.Header, requestHeaders)
	req.Header.Del("Accept-Encoding")
	req.Host = upstream.Host
	req.Header.Set("Host", upstream.Host)
	req.Header.Set("X-Forwarded-Host", c.Hostname())
	if ip := c.IP(); ip != "" {
		if prior := req.Header.Get("X-Forwarded-For"); prior != "" {
			req.Header.Set("X-Forwarded-For", prior+", "+ip)
		} else {
			req.Header.Set("X-Forwarded-For", ip)
		}
	}
	req.Header.Set("X-Forwarded-Proto", c.Protocol())
	req.Header.Set("X-Forwarded-Port", fmt.Sprintf("%d", h.origin.ListenPort))

	return req, nil
}

func (h *Handler) resolveUpstreamURL(c fiber.Ctx, cleanPath string) *url.URL {
	relative := &url.URL{Path: cleanPath, RawPath: cleanPath}
	if query := c.Request().URI().QueryString(); len(query) > 0 {
		relative.RawQuery = string(query)
	}
	return h.origin.URL.ResolveReference(relative)
}

func (h *Handler) writeError(c fiber.Ctx, status int, code string) error {
	return c.Status(status).JSON(fiber.Map{"error": code})
}

func (h *Handler) logResult(
	method string,
	path string,
	upstream string,
	requestID string,
	status int,
	cacheHit bool,
	cacheName string,
	started time.Time,
	err error,
) {
	fields := logging.RequestFields(method, path, cacheHit, cacheName)
	fields["action"] = "fetch"
	fields["status"] = status
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	if upstream != "" {
		fields["upstream"] = upstream
	}
	if requestID != "" {
		fields["request_id"] = requestID
	}
	if err != nil {
		fields["error"] = err.Error()
		h.logger.WithFields(fields).Error("fetch_failed")
		return
	}
	h.logger.WithFields(fields).Info("fetch_complete")
}

// inferContentType 根据路径后缀推断静态资源的 Content-Type，磁盘缓存只保
// 存正文，类型信息需要在服务时还原。
func inferContentType(p string) string {
	if p == "/" || strings.HasSuffix(p, "/") {
		return "text/html; charset=utf-8"
	}
	switch {
	case strings.HasSuffix(p, ".html"), strings.HasSuffix(p, ".htm"):
		return "text/html; charset=utf-8"
	case strings.HasSuffix(p, ".css"):
		return "text/css; charset=utf-8"
	case strings.HasSuffix(p, ".js"), strings.HasSuffix(p, ".mjs"):
		return "application/javascript"
	case strings.HasSuffix(p, ".json"), strings.HasSuffix(p, ".map"):
		return "application/json"
	case strings.HasSuffix(p, ".webmanifest"):
		return "application/manifest+json"
	case strings.HasSuffix(p, ".svg"):
		return "image/svg+xml"
	case strings.HasSuffix(p, ".png"):
		return "image/png"
	case strings.HasSuffix(p, ".jpg"), strings.HasSuffix(p, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(p, ".gif"):
		return "image/gif"
	case strings.HasSuffix(p, ".webp"):
		return "image/webp"
	case strings.HasSuffix(p, ".ico"):
		return "image/x-icon"
	case strings.HasSuffix(p, ".woff2"):
		return "font/woff2"
	case strings.HasSuffix(p, ".woff"):
		return "font/woff"
	case strings.HasSuffix(p, ".ttf"):
		return "font/ttf"
	case strings.HasSuffix(p, ".txt"):
		return "text/plain; charset=utf-8"
	}

	return ""
}

func normalizeRequestPath(raw string) string {
	if raw == "" {
		raw = "/"
	}
	clean := path.Clean("/" + raw)
	if clean != "/" && strings.HasSuffix(raw, "/") {
		clean += "/"
	}
	return clean
}

func bytesReader(b []byte) io.Reader {
	if len(b) == 0 {
		return http.NoBody
	}
	return bytes.NewReader(b)
}

func fiberHeadersAsHTTP(c fiber.Ctx) http.Header {
	header := http.Header{}
	c.Request().Header.VisitAll(func(key, value []byte) {
		header.Add(string(key), string(value))
	})
	return header
}

func copyResponseHeaders(c fiber.Ctx, headers http.Header) {
	for key, values := range headers {
		if server.IsHopByHopHeader(key) {
			continue
		}
		for _, value := range values {
			c.Set(key, value)
		}
	}
}
