// Package xconf 基于 koanf 的配置加载，支持 YAML/JSON 与文件变更热加载。
//
//	cfg, err := xconf.New("/etc/xlockctl/config.yaml", xconf.WithTag("yaml"))
//	var c Config
//	err = cfg.Unmarshal("", &c)
//
//	w, err := xconf.Watch(cfg, func(cfg xconf.Config, err error) {
//	    // 重新读取需要热更新的字段，例如日志级别
//	})
//	w.StartAsync()
//	defer w.Stop()
//
// 基础操作请直接使用 Client() 返回的 *koanf.Koanf。
package xconf
