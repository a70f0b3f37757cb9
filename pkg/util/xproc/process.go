// Package xproc 提供当前进程的标识信息。
package xproc

import (
	"os"
	"path/filepath"
	"sync"
)

var osExecutable = os.Executable

// ProcessID 返回当前进程 ID。
func ProcessID() int {
	return os.Getpid()
}

// ProcessName 返回当前进程名称（不含路径），首次调用后缓存。
//
// 优先使用 os.Executable，失败时回退到 os.Args[0]；都不可用时返回空字符串。
var ProcessName = sync.OnceValue(resolveProcessName)

func resolveProcessName() string {
	if exe, err := osExecutable(); err == nil && exe != "" {
		if name := baseName(exe); name != "" {
			return name
		}
	}
	if len(os.Args) == 0 || os.Args[0] == "" {
		return ""
	}
	return baseName(os.Args[0])
}

func baseName(path string) string {
	name := filepath.Base(path)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return ""
	}
	return name
}
