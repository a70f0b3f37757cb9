// Package xid 基于 Sonyflake 的分布式 ID 生成。
//
// ID 由 39 位时间（10ms 单位）、8 位序列号与 16 位机器 ID 组成，
// 同一生成器内严格递增。字符串形式为 base36。
//
// 机器 ID 默认来源见 [DefaultMachineID]，多实例部署建议通过
// XID_MACHINE_ID 显式分配。
package xid
