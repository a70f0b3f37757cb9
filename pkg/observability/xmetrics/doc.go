// Package xmetrics 定义锁操作的统一观测接口，并提供 OpenTelemetry 实现。
//
// 每个操作对应一个 Span：
//
//	ctx, span := xmetrics.Start(ctx, observer, xmetrics.SpanOptions{
//	    Component: "xdlock",
//	    Operation: "acquire",
//	    Kind:      xmetrics.KindClient,
//	})
//	ok, err := store.SetIfAbsent(ctx, key, token, ttl)
//	span.End(xmetrics.Result{Err: err})
//
// OTel 实现为每个 Span 创建一个 trace span，并记录两个指标：
//
//	xlock.operation.total     计数，属性 component/operation/status
//	xlock.operation.duration  直方图（秒），属性同上
//
// observer 为 nil 时 Start 返回空 Span，调用方无需判空。
package xmetrics
