package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Placeholder is the slot in pm_template replaced by the recipient's nick.
const Placeholder = "{user}"

// ErrNotFound is returned by Load when the configuration file is missing.
var ErrNotFound = errors.New("config file not found")

//go:embed example.yaml
var exampleYAML []byte

// Config holds all bot configuration
type Config struct {
	Server   string   `yaml:"server"`
	Port     int      `yaml:"port"`
	UseTLS   bool     `yaml:"use_tls"`
	Insecure bool     `yaml:"tls_insecure"`
	Nick     string   `yaml:"nick"`
	Username string   `yaml:"username"`
	IRCName  string   `yaml:"irc_name"`
	Channels []string `yaml:"channels"`

	PMTemplate string `yaml:"pm_template"`

	UseNickServAuth  bool   `yaml:"use_nickserv_auth"`
	NickServPassword string `yaml:"nickserv_password"`

	// MessageInterval is the minimum number of seconds between two
	// queued messages.
	MessageInterval float64 `yaml:"message_interval"`

	DataDir string `yaml:"data_dir"`
	Journal bool   `yaml:"journal"`
}

// Load reads and parses a YAML configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, fills in defaults and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Example returns the bundled example configuration.
func Example() (*Config, error) {
	return Parse(exampleYAML)
}

func (c *Config) setDefaults() {
	if c.Port == 0 {
		c.Port = 6667
	}
	if c.Username == "" {
		c.Username = c.Nick
	}
	if c.IRCName == "" {
		c.IRCName = c.Nick
	}
	if c.MessageInterval == 0 {
		c.MessageInterval = 2
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
}

// Validate checks that the configuration can drive a session.
func (c *Config) Validate() error {
	if c.Server == "" {
		return errors.New("server is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Nick == "" {
		return errors.New("nick is required")
	}
	if strings.ContainsAny(c.Nick, " \r\n:") {
		return fmt.Errorf("nick %q contains invalid characters", c.Nick)
	}
	if strings.ContainsAny(c.Username, " \r\n") {
		return fmt.Errorf("username %q contains invalid characters", c.Username)
	}
	if strings.ContainsAny(c.IRCName, "\r\n") {
		return errors.New("irc_name must be a single line")
	}
	if len(c.Channels) == 0 {
		return errors.New("channels must list at least one channel")
	}
	for _, ch := range c.Channels {
		if ch == "" || strings.ContainsAny(ch, " ,\r\n") {
			return fmt.Errorf("channel %q is not a valid channel name", ch)
		}
	}
	if n := strings.Count(c.PMTemplate, Placeholder); n != 1 {
		return fmt.Errorf("pm_template must contain %s exactly once, found %d", Placeholder, n)
	}
	if strings.ContainsAny(c.PMTemplate, "\r\n") {
		return errors.New("pm_template must be a single line")
	}
	if c.UseNickServAuth && strings.ContainsAny(c.NickServPassword, "\r\n") {
		return errors.New("nickserv_password must be a single line")
	}
	if c.MessageInterval < 0 {
		return fmt.Errorf("message_interval %v must not be negative", c.MessageInterval)
	}
	return nil
}

// Interval returns MessageInterval as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.MessageInterval * float64(time.Second))
}

// Address returns the server address in host:port form, for logging.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server, c.Port)
}
