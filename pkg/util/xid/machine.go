package xid

import (
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"net/netip"
	"os"
	"strconv"
)

var (
	osHostname        = os.Hostname
	netInterfaceAddrs = net.InterfaceAddrs
)

const (
	// EnvMachineID 直接指定机器 ID（0-65535）
	EnvMachineID = "XID_MACHINE_ID"
	// EnvPodName K8s Downward API 注入的 Pod 名称
	EnvPodName  = "POD_NAME"
	EnvHostname = "HOSTNAME"
)

// ErrNoPrivateAddress 没有可用的私有 IPv4 地址。
var ErrNoPrivateAddress = errors.New("xid: no private IP address found")

// DefaultMachineID 依次尝试：
//
//  1. XID_MACHINE_ID 环境变量
//  2. POD_NAME 的哈希
//  3. HOSTNAME 环境变量的哈希
//  4. os.Hostname() 的哈希
//  5. 私有 IPv4 地址的低 16 位
//
// 哈希方式存在碰撞可能，实例较多时应显式设置 XID_MACHINE_ID。
func DefaultMachineID() (uint16, error) {
	if s := os.Getenv(EnvMachineID); s != "" {
		id, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return 0, fmt.Errorf("xid: invalid %s value %q: %w", EnvMachineID, s, err)
		}
		return uint16(id), nil
	}
	for _, env := range []string{EnvPodName, EnvHostname} {
		if v := os.Getenv(env); v != "" {
			return hashToMachineID(v), nil
		}
	}

	host, hostErr := osHostname()
	if hostErr == nil && host != "" {
		return hashToMachineID(host), nil
	}

	ip, err := privateIPv4()
	if err != nil {
		return 0, fmt.Errorf("xid: all machine ID strategies exhausted (hostname: %v): %w", hostErr, err)
	}
	b := ip.As4()
	return uint16(b[2])<<8 | uint16(b[3]), nil
}

// hashToMachineID FNV-1a 哈希后将高低 16 位异或折叠。
func hashToMachineID(s string) uint16 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	b := h.Sum(nil)
	return (uint16(b[0])<<8 | uint16(b[1])) ^ (uint16(b[2])<<8 | uint16(b[3]))
}

func privateIPv4() (netip.Addr, error) {
	addrs, err := netInterfaceAddrs()
	if err != nil {
		return netip.Addr{}, err
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip, ok := netip.AddrFromSlice(ipnet.IP)
		if !ok {
			continue
		}
		ip = ip.Unmap()
		if ip.Is4() && ip.IsPrivate() {
			return ip, nil
		}
	}
	return netip.Addr{}, ErrNoPrivateAddress
}
