// Package config loads settings from an optional YAML file, a .env file and
// the environment, in increasing order of precedence.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/TobiSchelling/auditreports/internal/airtable"
	"github.com/TobiSchelling/auditreports/internal/images"
	"github.com/TobiSchelling/auditreports/internal/logging"
)

// AppName names the XDG config and data directories.
const AppName = "auditreports"

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Airtable Airtable `yaml:"airtable"`
	Output   Output   `yaml:"output"`
	Sources  Sources  `yaml:"sources"`
	Images   Images   `yaml:"images"`
	Report   Report   `yaml:"report"`
	Server   Server   `yaml:"server"`
	Logging  Logging  `yaml:"logging"`

	// Set from the environment only.
	Dev      bool   `yaml:"-"`
	RecordID string `yaml:"-"`
}

type Airtable struct {
	APIKeyEnv string `yaml:"api_key_env"`
	BaseID    string `yaml:"base_id"`
	Table     string `yaml:"table"`
	BaseURL   string `yaml:"base_url"`

	APIKey string `yaml:"-"`
}

type Output struct {
	Dir        string `yaml:"dir"`
	DataDir    string `yaml:"data_dir"`
	KeepStyles int    `yaml:"keep_styles"`
}

type Sources struct {
	Templates  string `yaml:"templates"`
	Styles     string `yaml:"styles"`
	Fonts      string `yaml:"fonts"`
	Scripts    string `yaml:"scripts"`
	Images     string `yaml:"images"`
	SassBinary string `yaml:"sass_binary"`
}

type Images struct {
	Profiles map[string]images.Profile `yaml:"profiles"`
	Fields   map[string]string         `yaml:"fields"`
}

type Report struct {
	ContactEmail string `yaml:"contact_email"`
}

type Server struct {
	Port       int           `yaml:"port"`
	ReloadPort int           `yaml:"reload_port"`
	Debounce   time.Duration `yaml:"debounce"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ConfigDir returns the XDG config directory for auditreports.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DataDir returns the XDG data directory for auditreports.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// ResolveConfigPath finds the config file following priority:
// explicit path > $XDG_CONFIG_HOME/auditreports/config.yaml > ./config.yaml.
// It returns "" when no file exists; defaults apply in that case.
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", nil
}

// Load reads and parses a config YAML file. An empty path yields defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// LoadDotEnv loads KEY=value pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Airtable: Airtable{APIKeyEnv: "AIRTABLE_API_KEY"},
		Output:   Output{Dir: "output", KeepStyles: 3},
		Sources: Sources{
			Styles:  filepath.Join("web", "styles"),
			Fonts:   filepath.Join("web", "fonts"),
			Scripts: filepath.Join("web", "js"),
			Images:  filepath.Join("web", "images"),
		},
		Report:  Report{ContactEmail: "conversion@journeyfurther.com"},
		Server:  Server{Port: 3000, ReloadPort: 3001, Debounce: 300 * time.Millisecond},
		Logging: Logging{Level: "info"},
	}
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from environment variables read via getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if c.Airtable.APIKeyEnv != "" {
		c.Airtable.APIKey = getenv(c.Airtable.APIKeyEnv)
	}
	strs := []struct {
		env  string
		dest *string
	}{
		{"AIRTABLE_BASE_ID", &c.Airtable.BaseID},
		{"AIRTABLE_TABLE_NAME", &c.Airtable.Table},
		{"OUTPUT_DIR", &c.Output.Dir},
		{"AUDIT_RECORD_ID", &c.RecordID},
		{"LOG_LEVEL", &c.Logging.Level},
		{"LOG_FORMAT", &c.Logging.Format},
	}
	for _, s := range strs {
		if v := strings.TrimSpace(getenv(s.env)); v != "" {
			*s.dest = v
		}
	}

	if v := strings.TrimSpace(getenv("PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: invalid value %q", v)
		}
		c.Server.Port = port
	}
	if v := strings.TrimSpace(getenv("DEV")); v != "" {
		dev, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DEV: invalid value %q", v)
		}
		c.Dev = dev
	}
	if strings.EqualFold(getenv("NODE_ENV"), "development") {
		c.Dev = true
	}
	return nil
}

// Validate checks settings that do not depend on Airtable credentials.
func (c *Config) Validate() error {
	if c.Output.Dir == "" {
		return errors.New("output.dir must not be empty")
	}
	if c.Output.KeepStyles < 1 {
		return fmt.Errorf("output.keep_styles must be at least 1, got %d", c.Output.KeepStyles)
	}
	for _, port := range []struct {
		name  string
		value int
	}{
		{"server.port", c.Server.Port},
		{"server.reload_port", c.Server.ReloadPort},
	} {
		if port.value < 1 || port.value > 65535 {
			return fmt.Errorf("%s must be between 1 and 65535, got %d", port.name, port.value)
		}
	}
	if c.Server.Port == c.Server.ReloadPort {
		return fmt.Errorf("server.port and server.reload_port must differ (both %d)", c.Server.Port)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if _, err := c.ImageProfiles(); err != nil {
		return fmt.Errorf("images: %w", err)
	}
	return nil
}

// AirtableConfig returns the record source settings.
func (c *Config) AirtableConfig() airtable.Config {
	return airtable.Config{
		APIKey:  c.Airtable.APIKey,
		BaseID:  c.Airtable.BaseID,
		Table:   c.Airtable.Table,
		BaseURL: c.Airtable.BaseURL,
	}
}

// ImageProfiles builds the image profile resolver.
func (c *Config) ImageProfiles() (*images.Profiles, error) {
	return images.NewProfiles(c.Images.Profiles, c.Images.Fields)
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// LoggingOptions returns logger settings for the logging package.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{Level: c.Logging.Level, Format: c.Logging.Format}
}
