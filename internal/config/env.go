package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Environment variable names read by LoadServingEnv.
const (
	EnvHTTPPort        = "MODELSHIM_HTTP_PORT"
	EnvUseProxy        = "MODELSHIM_USE_PROXY"
	EnvWorkers         = "MODELSHIM_WORKERS"
	EnvTimeout         = "MODELSHIM_TIMEOUT"
	EnvSafePortRange   = "MODELSHIM_SAFE_PORT_RANGE"
	EnvModuleDir       = "MODELSHIM_MODULE_DIR"
	EnvModuleName      = "MODELSHIM_MODULE_NAME"
	EnvModelDir        = "MODELSHIM_MODEL_DIR"
	EnvFrameworkModule = "MODELSHIM_FRAMEWORK_MODULE"
	EnvLogLevel        = "MODELSHIM_LOG_LEVEL"
)

// ServingEnv is the runtime view of the container environment. It is built
// once per process and not modified afterwards.
type ServingEnv struct {
	HTTPPort        int
	UseProxy        bool
	Workers         int
	TimeoutSec      int
	SafePortRange   string
	ModuleDir       string
	ModuleName      string
	ModelDir        string
	FrameworkModule string
}

// FrameworkSupport returns the framework identifier, i.e. the part of
// FrameworkModule before ':'.
func (e ServingEnv) FrameworkSupport() string {
	fw, _, _ := strings.Cut(e.FrameworkModule, ":")
	return fw
}

// LoadServingEnv reads ServingEnv from the process environment. A variable
// that is set but does not parse fails the load.
func LoadServingEnv() (ServingEnv, error) {
	var errs []error
	num := func(key string, def int) int {
		n, err := envInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return n
	}
	flag := func(key string, def bool) bool {
		b, err := envBool(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return b
	}
	env := ServingEnv{
		HTTPPort:        num(EnvHTTPPort, 8080),
		UseProxy:        flag(EnvUseProxy, true),
		Workers:         num(EnvWorkers, runtime.NumCPU()),
		TimeoutSec:      num(EnvTimeout, 60),
		SafePortRange:   envStr(EnvSafePortRange, ""),
		ModuleDir:       envStr(EnvModuleDir, "/opt/ml/code"),
		ModuleName:      envStr(EnvModuleName, ""),
		ModelDir:        envStr(EnvModelDir, "/opt/ml/model"),
		FrameworkModule: envStr(EnvFrameworkModule, ""),
	}
	if len(errs) > 0 {
		return env, errors.Join(errs...)
	}
	if env.HTTPPort <= 0 || env.HTTPPort > 65535 {
		return env, fmt.Errorf("%s: invalid port %d", EnvHTTPPort, env.HTTPPort)
	}
	if env.Workers <= 0 {
		return env, fmt.Errorf("%s: workers must be positive, got %d", EnvWorkers, env.Workers)
	}
	if env.TimeoutSec < 0 {
		return env, fmt.Errorf("%s: timeout must not be negative", EnvTimeout)
	}
	return env, nil
}

// LogLevel returns the configured log level name, default "info".
func LogLevel() string { return envStr(EnvLogLevel, "info") }

// Env helpers
func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return def, fmt.Errorf("%s: invalid boolean %q", key, v)
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
