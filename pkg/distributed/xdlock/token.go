package xdlock

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/omeyang/xlock/pkg/util/xid"
	"github.com/omeyang/xlock/pkg/util/xproc"
)

// hostname 缓存主机名，获取失败时为 "unknown"。
var hostname = sync.OnceValue(func() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "unknown"
	}
	return h
})

// NewToken 生成锁 token，格式为 host:pid:id:rand。
//
//   - host、pid 标识进程
//   - id 为 Sonyflake ID（base36），同一进程内单调递增且包含时间分量
//   - rand 为随机 UUID（去掉连字符）
func NewToken() (string, error) {
	id, err := xid.NewString()
	if err != nil {
		return "", fmt.Errorf("xdlock: generate token: %w", err)
	}

	var b strings.Builder
	b.Grow(96)
	b.WriteString(hostname())
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(xproc.ProcessID()))
	b.WriteByte(':')
	b.WriteString(id)
	b.WriteByte(':')
	b.WriteString(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return b.String(), nil
}
