package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/platinummonkey/lineage/pkg/observability"
)

// ChangeFunc receives the previous and the reloaded configuration
type ChangeFunc func(previous, current *Config)

// Loader loads configuration and optionally reloads it when the config file
// changes
type Loader struct {
	v        *viper.Viper
	explicit bool
	logger   *logrus.Logger

	mu      sync.Mutex
	current *Config
}

// NewLoader creates a loader. An empty path searches for .lineage.yaml.
func NewLoader(path string, logger *logrus.Logger) *Loader {
	return &Loader{
		v:        newViper(path),
		explicit: path != "",
		logger:   observability.OrDefault(logger),
	}
}

// Load reads and validates the configuration
func (l *Loader) Load() (*Config, error) {
	if err := read(l.v, l.explicit); err != nil {
		return nil, err
	}
	cfg, err := decode(l.v)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.current = cfg
	l.mu.Unlock()
	return cfg, nil
}

// Current returns the last successfully loaded configuration
func (l *Loader) Current() *Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// ConfigFile returns the file in use, if any
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Watch reloads the configuration whenever the config file is written and
// calls fn with the previous and new values. Invalid reloads are logged and
// leave the current configuration in place. Load must have succeeded first.
func (l *Loader) Watch(fn ChangeFunc) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		l.reload(e.Name, fn)
	})
	l.v.WatchConfig()
}

func (l *Loader) reload(file string, fn ChangeFunc) {
	cfg, err := decode(l.v)
	if err != nil {
		l.logger.WithField("file", file).WithError(err).Error("ignoring invalid configuration change")
		return
	}

	l.mu.Lock()
	previous := l.current
	l.current = cfg
	l.mu.Unlock()

	l.logger.WithField("file", file).Info("configuration reloaded")
	if fn != nil {
		fn(previous, cfg)
	}
}
