// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展，支持文件轮转与 trace 字段注入
//   - xmetrics: 统一观测接口，OpenTelemetry 实现（span + 计数器 + 耗时直方图）
package observability
