package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"handshakewatch/internal/logger"
)

// Watch reloads the config file on every write and hands valid results to
// onChange. Invalid edits are logged and ignored so the running monitor keeps
// its last good settings.
func Watch(v *viper.Viper, onChange func(Config)) {
	if v.ConfigFileUsed() == "" {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := Load(v)
		if err != nil {
			logger.Warn("Ignoring invalid config change", "file", e.Name, "error", err)
			return
		}
		logger.Info("Config reloaded", "file", e.Name)
		onChange(cfg)
	})
	v.WatchConfig()
}
