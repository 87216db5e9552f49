package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAPIURL     = "http://localhost:5000"
	defaultAPITimeout = 30 * time.Second
	defaultStubPort   = "5000"
)

// Config 聚合客户端与本地替身服务的配置项。
type Config struct {
	API     APIConfig
	Session SessionConfig
	Log     LogConfig
	Stub    StubConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	api, err := loadAPIConfig()
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	stub, err := loadStubConfig()
	if err != nil {
		return nil, err
	}

	return &Config{API: api, Session: session, Log: logCfg, Stub: stub}, nil
}

// APIConfig 描述远端分析服务的地址与传输超时。
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SessionConfig 描述登录身份的本地存储位置。
type SessionConfig struct {
	IdentityFile string
}

// LogConfig 描述 zap 日志配置。
type LogConfig struct {
	Level       string
	Development bool
	File        string
}

// StubConfig 描述本地替身服务的监听地址与回放脚本。
type StubConfig struct {
	Addr       string
	ScriptPath string
}

func loadAPIConfig() (APIConfig, error) {
	baseURL, err := NormalizeBaseURL(getEnvOrDefault("MINDPEERS_API_URL", defaultAPIURL))
	if err != nil {
		return APIConfig{}, err
	}

	timeout, err := parseDurationEnv("MINDPEERS_API_TIMEOUT", defaultAPITimeout)
	if err != nil {
		return APIConfig{}, err
	}
	if timeout <= 0 {
		return APIConfig{}, fmt.Errorf("invalid MINDPEERS_API_TIMEOUT value %q: must be positive", timeout)
	}

	return APIConfig{BaseURL: baseURL, Timeout: timeout}, nil
}

func loadSessionConfig() (SessionConfig, error) {
	if path := strings.TrimSpace(os.Getenv("MINDPEERS_IDENTITY_FILE")); path != "" {
		return SessionConfig{IdentityFile: path}, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return SessionConfig{}, fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return SessionConfig{IdentityFile: filepath.Join(home, ".mindpeers", "identity.yaml")}, nil
}

func loadLogConfig() (LogConfig, error) {
	development, err := parseBoolEnv("MINDPEERS_LOG_DEV", false)
	if err != nil {
		return LogConfig{}, err
	}

	level := strings.ToLower(getEnvOrDefault("MINDPEERS_LOG_LEVEL", "info"))
	switch level {
	case "debug", "info", "warn", "error":
	default:
		return LogConfig{}, fmt.Errorf("invalid MINDPEERS_LOG_LEVEL value %q", level)
	}

	return LogConfig{
		Level:       level,
		Development: development,
		File:        strings.TrimSpace(os.Getenv("MINDPEERS_LOG_FILE")),
	}, nil
}

// loadStubConfig 解析替身服务监听地址。
func loadStubConfig() (StubConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = defaultStubPort
	}

	var addr string
	switch {
	case strings.Contains(port, ":"):
		// 允许直接传入 ":5000" 或 "127.0.0.1:5000"。
		addr = port
	case strings.Contains(port, " "):
		return StubConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	default:
		addr = ":" + port
	}

	return StubConfig{
		Addr:       addr,
		ScriptPath: strings.TrimSpace(os.Getenv("MINDPEERS_STUB_SCRIPT")),
	}, nil
}

// NormalizeBaseURL 补全协议并去掉路径与末尾斜杠，返回 scheme://host[:port]。
func NormalizeBaseURL(raw string) (string, error) {
	server := strings.TrimSpace(raw)
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}

	u, err := url.Parse(server)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid MINDPEERS_API_URL value %q", raw)
	}
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host), nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	// 纯数字按秒处理。
	if seconds, err := strconv.Atoi(raw); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}
