// xlockctl 在分布式锁的保护下执行命令，并提供锁状态查询与后端诊断。
//
// 用法:
//
//	xlockctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config          配置文件（yaml/json），命令行参数优先
//	    --backend         后端类型 redis|etcd (默认: redis)
//	    --redis-addr      Redis 地址 (默认: localhost:6379)
//	    --etcd-endpoints  etcd 端点，可重复 (默认: localhost:2379)
//	    --prefix          锁 key 前缀
//	    --log-level       日志级别 (默认: info)
//	-t, --timeout         status/warmup/ping 的超时时间 (默认: 10s)
//
// 命令:
//
//	run <name> -- <cmd> [args...]   持锁执行命令，期间自动续期
//	status <name>                   查看锁是否被持有及持有者 token
//	warmup                          预加载 Lua 脚本（仅 redis）
//	ping                            带重试的后端健康检查
//
// 退出码:
//
//	0: 成功（run 命令: 子进程退出码）
//	1: 执行失败
//	2: 参数错误
//	3: 锁被占用（run 命令未能在等待窗口内获取锁）
//
// 示例:
//
//	xlockctl run --ttl 30s --wait 5s nightly -- ./backup.sh
//	xlockctl --backend etcd --etcd-endpoints 10.0.0.1:2379 status nightly
//	xlockctl -c /etc/xlock.yaml ping
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"
)

// 版本信息，通过 -ldflags "-X main.Version=..." 注入。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
	exitBusy  = 3
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandler(cancel)

	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// createApp 创建 CLI 应用。
func createApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "xlockctl",
		Usage:     "分布式锁命令行工具",
		Version:   fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     globalFlags(),
		Commands:  createCommands(),
		// 退出码由 run 统一映射，禁止框架直接 os.Exit。
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
}

// run 执行 CLI 并返回退出码。
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	err := createApp(stdout, stderr).Run(ctx, args)
	if err == nil {
		return exitOK
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		if exitErr.msg != "" {
			fmt.Fprintln(stderr, exitErr.msg)
		}
		return exitErr.code
	}
	var usageErr *usageError
	if errors.As(err, &usageErr) || isCLIUsageError(err) {
		fmt.Fprintf(stderr, "参数错误: %v\n", err)
		return exitUsage
	}
	fmt.Fprintf(stderr, "错误: %v\n", err)
	return exitFail
}

// exitError 携带指定退出码，msg 为空时不输出。
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return fmt.Sprintf("exit status %d", e.code)
}

// usageError 参数错误，退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// isCLIUsageError 识别 urfave/cli 自身产生的参数错误（未知 flag、非法取值等）。
func isCLIUsageError(err error) bool {
	msg := err.Error()
	for _, s := range []string{
		"flag provided but not defined",
		"invalid value",
		"No help topic for",
		"Required flag",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// setupSignalHandler 第一次信号取消 ctx，第二次信号强制退出。
func setupSignalHandler(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()

		<-sigCh
		signal.Stop(sigCh)
		os.Exit(130)
	}()
}
