/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme" validate:"oneof=system light dark"`
	EnableServer   bool   `yaml:"enable_server"`
}

// StorageConfig selects where saved layouts live.
// The postgres DSN is not stored on disk; it lives in the OS keychain.
type StorageConfig struct {
	Driver string `yaml:"driver" validate:"oneof=file sqlite postgres memory"`
	Dir    string `yaml:"dir"`
	Slot   string `yaml:"slot" validate:"required"`
}

type EditorConfig struct {
	MinSize        float64 `yaml:"min_size" validate:"gte=0"`
	ColumnMinWidth float64 `yaml:"column_min_width" validate:"gte=0"`
	ColumnMaxWidth float64 `yaml:"column_max_width" validate:"gte=0"`
	UndoDepth      int     `yaml:"undo_depth" validate:"gte=0"`
	UndoMaxBytes   int     `yaml:"undo_max_bytes" validate:"gte=0"`
	CoalesceMs     int     `yaml:"coalesce_ms" validate:"gte=0"`
}

// BrowserConfig points the live editor at a Chromium instance.
// An empty RemoteURL launches a local browser.
type BrowserConfig struct {
	RemoteURL string `yaml:"remote_url"`
	Headless  bool   `yaml:"headless"`
	TimeoutMs int    `yaml:"timeout_ms" validate:"gte=0"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
	// MaxSizeMB caps one rotated log file; 0 keeps the logger default.
	MaxSizeMB int `yaml:"max_size_mb" validate:"gte=0"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Storage       StorageConfig `yaml:"storage"`
	Editor        EditorConfig  `yaml:"editor"`
	Browser       BrowserConfig `yaml:"browser"`
	Server        ServerConfig  `yaml:"server"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Theme: "system", EnableServer: false},
		Storage:       StorageConfig{Driver: "file", Dir: "", Slot: "layoutConfigurations"},
		Editor:        EditorConfig{MinSize: 20, ColumnMinWidth: 50, ColumnMaxWidth: 500, UndoDepth: 100, CoalesceMs: 250},
		Browser:       BrowserConfig{Headless: true, TimeoutMs: 30000},
		Server:        ServerConfig{Addr: "127.0.0.1:8787"},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath     = "PCF_CONFIG"
	EnvTheme          = "PCF_THEME"
	EnvTelemetryOptIn = "PCF_TELEMETRY_OPT_IN"
	EnvEnableServer   = "PCF_ENABLE_SERVER"
	EnvStorageDriver  = "PCF_STORAGE_DRIVER"
	EnvStorageDir     = "PCF_STORAGE_DIR"
	EnvStorageSlot    = "PCF_STORAGE_SLOT"
	EnvMinSize        = "PCF_MIN_SIZE"
	EnvUndoDepth      = "PCF_UNDO_DEPTH"
	EnvBrowserURL     = "PCF_BROWSER_URL"
	EnvBrowserHeadful = "PCF_BROWSER_HEADFUL"
	EnvServerAddr     = "PCF_SERVER_ADDR"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "PCF_LOG_LEVEL"
	EnvLogFormat = "PCF_LOG_FORMAT"
	EnvLogSource = "PCF_LOG_SOURCE"
	EnvLogFile   = "PCF_LOG_FILE"
	EnvLogMaxMB  = "PCF_LOG_MAX_MB"
	// EnvPostgresDSN wins over the keychain entry.
	EnvPostgresDSN = "PCF_POSTGRES_DSN"
)

// Service/keys for OS keyring.
const (
	keyringService = "Pagecraft"
	keyringDSN     = "postgres_dsn"
)

// secretStore abstracts keyring, so we can stub in tests.
var secretStore SecretStore = osKeyring{}

type SecretStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements SecretStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	base, err := userDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "config.yaml"), nil
}

// DataDir returns the default directory for file and sqlite storage.
func DataDir() (string, error) {
	base, err := userDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "layouts"), nil
}

func userDir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "Pagecraft")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Pagecraft")
	default: // linux and others
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "pagecraft")
		} else if h := os.Getenv("HOME"); h != "" {
			base = filepath.Join(h, ".config", "pagecraft")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// It also resolves the postgres DSN (not kept inside the struct; returned separately).
// A file that parses but fails validation is reported; the defaults are still returned.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	}
	applyEnvOverrides(&cfg)
	if err := Validate(cfg); err != nil {
		return Defaults(), "", err
	}
	return cfg, PostgresDSN(), nil
}

// PostgresDSN returns the DSN from the environment or the OS keychain.
func PostgresDSN() string {
	if v := strings.TrimSpace(os.Getenv(EnvPostgresDSN)); v != "" {
		return v
	}
	dsn, _ := secretStore.Get(keyringService, keyringDSN)
	return dsn
}

var validate = validator.New()

// Validate checks field constraints and cross-field rules.
func Validate(cfg AppConfig) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			parts := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(parts, "; "))
		}
		return err
	}
	if e := cfg.Editor; e.ColumnMaxWidth > 0 && e.ColumnMinWidth > e.ColumnMaxWidth {
		return fmt.Errorf("invalid config: column_min_width %g exceeds column_max_width %g", e.ColumnMinWidth, e.ColumnMaxWidth)
	}
	return nil
}

// Save writes the user config YAML and persists the DSN into OS keyring (if non-empty).
func Save(cfg AppConfig, dsn string) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if dsn != "" {
		if err := secretStore.Set(keyringService, keyringDSN, dsn); err != nil {
			return err
		}
	}
	return nil
}

// ForgetPostgresDSN removes the stored DSN from the keychain.
func ForgetPostgresDSN() error {
	err := secretStore.Delete(keyringService, keyringDSN)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = strings.ToLower(strings.TrimSpace(src.General.Theme))
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	dst.General.EnableServer = src.General.EnableServer
	// storage
	if v := strings.TrimSpace(src.Storage.Driver); v != "" {
		dst.Storage.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Storage.Dir); v != "" {
		dst.Storage.Dir = v
	}
	if v := strings.TrimSpace(src.Storage.Slot); v != "" {
		dst.Storage.Slot = v
	}
	// editor
	if src.Editor.MinSize != 0 {
		dst.Editor.MinSize = src.Editor.MinSize
	}
	if src.Editor.ColumnMinWidth != 0 {
		dst.Editor.ColumnMinWidth = src.Editor.ColumnMinWidth
	}
	if src.Editor.ColumnMaxWidth != 0 {
		dst.Editor.ColumnMaxWidth = src.Editor.ColumnMaxWidth
	}
	if src.Editor.UndoDepth != 0 {
		dst.Editor.UndoDepth = src.Editor.UndoDepth
	}
	if src.Editor.UndoMaxBytes != 0 {
		dst.Editor.UndoMaxBytes = src.Editor.UndoMaxBytes
	}
	if src.Editor.CoalesceMs != 0 {
		dst.Editor.CoalesceMs = src.Editor.CoalesceMs
	}
	// browser
	if v := strings.TrimSpace(src.Browser.RemoteURL); v != "" {
		dst.Browser.RemoteURL = v
	}
	dst.Browser.Headless = src.Browser.Headless
	if src.Browser.TimeoutMs != 0 {
		dst.Browser.TimeoutMs = src.Browser.TimeoutMs
	}
	if v := strings.TrimSpace(src.Server.Addr); v != "" {
		dst.Server.Addr = v
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
	if src.Logging.MaxSizeMB != 0 {
		dst.Logging.MaxSizeMB = src.Logging.MaxSizeMB
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvTheme)); v != "" {
		cfg.General.Theme = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvEnableServer)); v != "" {
		cfg.General.EnableServer = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageDriver)); v != "" {
		cfg.Storage.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageDir)); v != "" {
		cfg.Storage.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageSlot)); v != "" {
		cfg.Storage.Slot = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvMinSize)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Editor.MinSize = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvUndoDepth)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Editor.UndoDepth = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvBrowserURL)); v != "" {
		cfg.Browser.RemoteURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBrowserHeadful)); v != "" {
		cfg.Browser.Headless = !truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerAddr)); v != "" {
		cfg.Server.Addr = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogMaxMB)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Logging.MaxSizeMB = n
		}
	}
}

var envKeys = map[string]string{
	"general.theme":            EnvTheme,
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"general.enable_server":    EnvEnableServer,
	"storage.driver":           EnvStorageDriver,
	"storage.dir":              EnvStorageDir,
	"storage.slot":             EnvStorageSlot,
	"editor.min_size":          EnvMinSize,
	"editor.undo_depth":        EnvUndoDepth,
	"browser.remote_url":       EnvBrowserURL,
	"browser.headless":         EnvBrowserHeadful,
	"server.addr":              EnvServerAddr,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
	"logging.max_size_mb":      EnvLogMaxMB,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := envKeys[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// Timeout returns the browser timeout; zero or negative falls back to the default.
func (b BrowserConfig) Timeout() time.Duration {
	if b.TimeoutMs <= 0 {
		return time.Duration(Defaults().Browser.TimeoutMs) * time.Millisecond
	}
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

// Coalesce returns the undo coalescing window.
func (e EditorConfig) Coalesce() time.Duration { return time.Duration(e.CoalesceMs) * time.Millisecond }

// StorageDir returns Storage.Dir or the per-user default.
func (c AppConfig) StorageDir() (string, error) {
	if c.Storage.Dir != "" {
		return c.Storage.Dir, nil
	}
	return DataDir()
}
