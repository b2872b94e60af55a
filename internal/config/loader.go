package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"modelshim/internal/common/fsutil"
)

// Config holds the paths and binaries the supervisor works with.
// Zero values mean "unspecified" and are replaced by Default() in Merge.
type Config struct {
	ProxyBin          string `json:"proxy_bin" yaml:"proxy_bin" toml:"proxy_bin"`
	ProxyTemplate     string `json:"proxy_template" yaml:"proxy_template" toml:"proxy_template"`
	ProxyConfig       string `json:"proxy_config" yaml:"proxy_config" toml:"proxy_config"`
	AppServerBin      string `json:"app_server_bin" yaml:"app_server_bin" toml:"app_server_bin"`
	SocketBind        string `json:"socket_bind" yaml:"socket_bind" toml:"socket_bind"`
	WorkerClass       string `json:"worker_class" yaml:"worker_class" toml:"worker_class"`
	ConnsPerWorker    int    `json:"conns_per_worker" yaml:"conns_per_worker" toml:"conns_per_worker"`
	ModelServerBin    string `json:"model_server_bin" yaml:"model_server_bin" toml:"model_server_bin"`
	ModelServerTmpl   string `json:"model_server_template" yaml:"model_server_template" toml:"model_server_template"`
	ModelServerConfig string `json:"model_server_config" yaml:"model_server_config" toml:"model_server_config"`
	ArchiverBin       string `json:"archiver_bin" yaml:"archiver_bin" toml:"archiver_bin"`
	HandlerRef        string `json:"handler_ref" yaml:"handler_ref" toml:"handler_ref"`
	ArchiveTimeoutSec int    `json:"archive_timeout_sec" yaml:"archive_timeout_sec" toml:"archive_timeout_sec"`
}

// Default returns the container layout used in production images.
func Default() Config {
	return Config{
		ProxyBin:          "nginx",
		ProxyTemplate:     "/etc/modelshim/nginx.conf.template",
		ProxyConfig:       "/etc/modelshim-nginx.conf",
		AppServerBin:      "gunicorn",
		SocketBind:        "unix:/tmp/gunicorn.sock",
		WorkerClass:       "gevent",
		ConnsPerWorker:    1000,
		ModelServerBin:    "mxnet-model-server",
		ModelServerTmpl:   "/etc/modelshim/config.properties.template",
		ModelServerConfig: "/etc/modelshim-mms.conf",
		ArchiverBin:       "model-archiver",
		HandlerRef:        "modelshim.bridge:transform",
	}
}

// Merge fills zero fields of c from d.
func (c Config) Merge(d Config) Config {
	str := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	str(&c.ProxyBin, d.ProxyBin)
	str(&c.ProxyTemplate, d.ProxyTemplate)
	str(&c.ProxyConfig, d.ProxyConfig)
	str(&c.AppServerBin, d.AppServerBin)
	str(&c.SocketBind, d.SocketBind)
	str(&c.WorkerClass, d.WorkerClass)
	str(&c.ModelServerBin, d.ModelServerBin)
	str(&c.ModelServerTmpl, d.ModelServerTmpl)
	str(&c.ModelServerConfig, d.ModelServerConfig)
	str(&c.ArchiverBin, d.ArchiverBin)
	str(&c.HandlerRef, d.HandlerRef)
	if c.ConnsPerWorker <= 0 {
		c.ConnsPerWorker = d.ConnsPerWorker
	}
	if c.ArchiveTimeoutSec <= 0 {
		c.ArchiveTimeoutSec = d.ArchiveTimeoutSec
	}
	return c
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	path, err := fsutil.ExpandHome(path)
	if err != nil {
		return cfg, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// LoadOrDefault loads path (if set) and fills the rest from Default().
func LoadOrDefault(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	cfg, err := Load(path)
	if err != nil {
		return Config{}, err
	}
	return cfg.Merge(Default()), nil
}
