// Package xlog 基于 log/slog 的结构化日志库。
//
// 使用 Builder 配置输出目标、级别、格式与文件轮转（first-error-wins：
// 第一个配置错误之后的 Set 调用被跳过，由 Build 返回该错误）：
//
//	logger, cleanup, err := xlog.New().
//	    SetLevelString("debug").
//	    SetFormat("json").
//	    SetRotation("/var/log/xlockctl.log", xlog.WithMaxSizeMB(50)).
//	    Build()
//	if err != nil {
//	    return err
//	}
//	defer cleanup()
//
// 所有方法都需要 context，Handle 时从 context 中的 OpenTelemetry span
// 提取 trace_id 与 span_id 注入日志，锁操作日志可与 xmetrics 的 span 关联。
//
// 级别可在运行时通过 [Leveler.SetLevel] 调整，派生 logger 共享同一级别。
package xlog
