package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"llamabot/internal/common/fsutil"
)

// Defaults applied by WithDefaults when fields are unset.
const (
	DefaultAddress    = "localhost"
	DefaultPort       = 11434
	DefaultDeviceName = "llama-bot"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "auto"
)

// ErrNoPassword is returned when neither a password nor a password file is configured.
// Its text is printed verbatim as the process exit message.
//
//lint:ignore ST1005 user-facing exit message
var ErrNoPassword = errors.New("Either a password file or password is required.")

// Config holds runtime parameters for the bot.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	Homeserver          string   `json:"homeserver" yaml:"homeserver" toml:"homeserver"`
	Username            string   `json:"username" yaml:"username" toml:"username"`
	Password            string   `json:"password" yaml:"password" toml:"password"`
	PasswordFile        string   `json:"password_file" yaml:"password_file" toml:"password_file"`
	Address             string   `json:"address" yaml:"address" toml:"address"`
	Port                int      `json:"port" yaml:"port" toml:"port"`
	Models              []string `json:"models" yaml:"models" toml:"models"`
	DeviceName          string   `json:"device_name" yaml:"device_name" toml:"device_name"`
	AdminAddr           string   `json:"admin_addr" yaml:"admin_addr" toml:"admin_addr"`
	AdminCORSOrigins    []string `json:"admin_cors_origins" yaml:"admin_cors_origins" toml:"admin_cors_origins"`
	LogLevel            string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat           string   `json:"log_format" yaml:"log_format" toml:"log_format"`
	InferenceTimeoutSec int      `json:"inference_timeout_seconds" yaml:"inference_timeout_seconds" toml:"inference_timeout_seconds"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return cfg, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(p)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", filepath.Base(p), err)
	}
	return cfg, nil
}

// Merge returns c with every non-zero field of o applied on top.
func (c Config) Merge(o Config) Config {
	if o.Homeserver != "" {
		c.Homeserver = o.Homeserver
	}
	if o.Username != "" {
		c.Username = o.Username
	}
	if o.Password != "" {
		c.Password = o.Password
	}
	if o.PasswordFile != "" {
		c.PasswordFile = o.PasswordFile
	}
	if o.Address != "" {
		c.Address = o.Address
	}
	if o.Port != 0 {
		c.Port = o.Port
	}
	if len(o.Models) > 0 {
		c.Models = append([]string(nil), o.Models...)
	}
	if o.DeviceName != "" {
		c.DeviceName = o.DeviceName
	}
	if o.AdminAddr != "" {
		c.AdminAddr = o.AdminAddr
	}
	if len(o.AdminCORSOrigins) > 0 {
		c.AdminCORSOrigins = append([]string(nil), o.AdminCORSOrigins...)
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		c.LogFormat = o.LogFormat
	}
	if o.InferenceTimeoutSec != 0 {
		c.InferenceTimeoutSec = o.InferenceTimeoutSec
	}
	return c
}

// FromEnv reads LLAMABOT_* variables. Unset or unparsable values stay zero.
func FromEnv() Config {
	return Config{
		Homeserver:          os.Getenv("LLAMABOT_HOMESERVER"),
		Username:            os.Getenv("LLAMABOT_USERNAME"),
		Password:            os.Getenv("LLAMABOT_PASSWORD"),
		PasswordFile:        os.Getenv("LLAMABOT_PASSWORD_FILE"),
		Address:             os.Getenv("LLAMABOT_ADDRESS"),
		Port:                envInt("LLAMABOT_PORT"),
		Models:              SplitCSV(os.Getenv("LLAMABOT_MODELS")),
		AdminAddr:           os.Getenv("LLAMABOT_ADMIN_ADDR"),
		AdminCORSOrigins:    SplitCSV(os.Getenv("LLAMABOT_ADMIN_CORS_ORIGINS")),
		LogLevel:            os.Getenv("LLAMABOT_LOG_LEVEL"),
		LogFormat:           os.Getenv("LLAMABOT_LOG_FORMAT"),
		InferenceTimeoutSec: envInt("LLAMABOT_INFERENCE_TIMEOUT_SECONDS"),
	}
}

func envInt(key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return 0
	}
	return n
}

// WithDefaults fills unset fields.
func (c Config) WithDefaults() Config {
	if c.Address == "" {
		c.Address = DefaultAddress
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.DeviceName == "" {
		c.DeviceName = DefaultDeviceName
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	return c
}

// Validate checks the fields needed to start the bot.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Homeserver) == "" {
		return errors.New("homeserver is required")
	}
	if strings.TrimSpace(c.Username) == "" {
		return errors.New("username is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.InferenceTimeoutSec < 0 {
		return fmt.Errorf("inference timeout %d must not be negative", c.InferenceTimeoutSec)
	}
	return nil
}

// Endpoint is the inference generate URL built from Address and Port.
func (c Config) Endpoint() string {
	return "http://" + net.JoinHostPort(c.Address, strconv.Itoa(c.Port)) + "/api/generate"
}

// ResolvePassword returns Password, or the contents of PasswordFile when no
// password was given.
func (c Config) ResolvePassword() (string, error) {
	if c.Password != "" {
		return c.Password, nil
	}
	if c.PasswordFile == "" {
		return "", ErrNoPassword
	}
	return fsutil.ReadSecret(c.PasswordFile)
}

// SplitCSV splits a comma-separated list, trimming items and dropping empties.
func SplitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
