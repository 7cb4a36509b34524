package cache

import (
	"context"
	"errors"
	"io"
	"time"
)

// Store 负责管理磁盘上的命名缓存集合。磁盘布局遵循：
//
//	<StoragePath>/<CacheName>/<path>    # 资源正文
//
// 每个缓存名对应一个目录，同一路径在同一缓存名下至多存在一个条目，
// 文件的 ModTime/Size 由文件系统提供。
type Store interface {
	// Get 返回指定缓存名下的可流式读取条目。若不存在则返回 ErrNotFound。
	Get(ctx context.Context, key Key) (*ReadResult, error)

	// Put 将响应正文写入缓存，并产出新的 Entry 描述。实现需通过临时文件 + rename
	// 保证写入原子性，并在失败时清理临时文件。可选地根据 opts.ModTime 设置文件时间戳。
	Put(ctx context.Context, key Key, body io.Reader, opts PutOptions) (*Entry, error)

	// Remove 删除单个条目，条目不存在时不视为错误。
	Remove(ctx context.Context, key Key) error

	// Match 在所有缓存名中查找路径，prefer 指定的缓存名优先。
	// 任何缓存都未命中时返回 ErrNotFound。
	Match(ctx context.Context, path string, prefer string) (*ReadResult, error)

	// Names 枚举当前存在的全部缓存名。
	Names(ctx context.Context) ([]string, error)

	// Delete 整体删除一个命名缓存，返回删除前该缓存是否存在。
	// 删除不存在的缓存名不是错误。
	Delete(ctx context.Context, name string) (bool, error)

	// Count 返回指定缓存名下的条目数量，缓存不存在时为 0。
	Count(ctx context.Context, name string) (int, error)
}

// PutOptions 控制写入过程中的可选属性。
type PutOptions struct {
	ModTime time.Time
}

// Key 唯一定位一个缓存条目（缓存名 + 请求路径），路径均为 URL 路径风格。
type Key struct {
	CacheName string
	Path      string
}

// Entry 表示一次缓存命中结果，包含绝对文件路径及文件信息。
type Entry struct {
	Key       Key    `json:"key"`
	FilePath  string `json:"file_path"`
	SizeBytes int64  `json:"size_bytes"`
	ModTime   time.Time
}

// ReadResult 组合 Entry 与正文 Reader，便于代理层直接将 Body 流式返回。
type ReadResult struct {
	Entry  Entry
	Reader io.ReadSeekCloser
}

// ErrNotFound 表示缓存不存在。
var ErrNotFound = errors.New("cache entry not found")
