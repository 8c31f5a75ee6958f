package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	xdgAppName = "priority-manager"
	configFile = "config.yaml"

	// HomeEnv overrides the application home directory.
	HomeEnv   = "PRIORITY_MANAGER_HOME"
	envPrefix = "PRIORITY_MANAGER"
)

// Remote providers.
const (
	ProviderMSTodo = "mstodo"
	ProviderGTasks = "gtasks"
)

type Config struct {
	Directories Directories `mapstructure:"directories" yaml:"directories"`
	Statuses    []string    `mapstructure:"statuses" yaml:"statuses"`
	Defaults    Defaults    `mapstructure:"defaults" yaml:"defaults"`
	Table       Table       `mapstructure:"table" yaml:"table"`
	Gantt       Gantt       `mapstructure:"gantt" yaml:"gantt"`
	Remote      Remote      `mapstructure:"remote" yaml:"remote"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`

	home string
}

type Directories struct {
	TasksDir   string `mapstructure:"tasks_dir" yaml:"tasks_dir"`
	ArchiveDir string `mapstructure:"archive_dir" yaml:"archive_dir"`
}

// Defaults are the field values used by "add --yes".
type Defaults struct {
	Priority    int    `mapstructure:"priority" yaml:"priority"`
	Description string `mapstructure:"description" yaml:"description"`
	DueDate     string `mapstructure:"due_date" yaml:"due_date"`
	Tags        string `mapstructure:"tags" yaml:"tags"`
	Status      string `mapstructure:"status" yaml:"status"`
}

type Column struct {
	Name      string `mapstructure:"name" yaml:"name"`
	MaxLength int    `mapstructure:"max_length" yaml:"max_length"`
}

type Table struct {
	Columns []Column `mapstructure:"columns" yaml:"columns"`
}

type Gantt struct {
	Width int `mapstructure:"width" yaml:"width"`
}

type Remote struct {
	Provider        string `mapstructure:"provider" yaml:"provider"`
	ListName        string `mapstructure:"list_name" yaml:"list_name"`
	Token           string `mapstructure:"token" yaml:"token"`
	ClientID        string `mapstructure:"client_id" yaml:"client_id"`
	Tenant          string `mapstructure:"tenant" yaml:"tenant"`
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
	// BaseURL overrides the service endpoint, e.g. a national Graph cloud.
	BaseURL         string `mapstructure:"base_url" yaml:"base_url,omitempty"`
}

var defaults = map[string]any{
	"directories.tasks_dir":   "tasks",
	"directories.archive_dir": "archive",
	"statuses":                []string{"To Do", "In Progress", "Complete"},
	"defaults.priority":       12,
	"defaults.description":    "No description",
	"defaults.due_date":       "No due date",
	"defaults.tags":           "",
	"defaults.status":         "To Do",
	"table.columns": []map[string]any{
		{"name": "Task Name", "max_length": 40},
		{"name": "Priority Score", "max_length": 5},
		{"name": "Due Date", "max_length": 12},
		{"name": "Status", "max_length": 12},
		{"name": "Tags", "max_length": 20},
		{"name": "List", "max_length": 20},
	},
	"gantt.width":             60,
	"remote.provider":         ProviderMSTodo,
	"remote.list_name":        "Priority Manager",
	"remote.token":            "",
	"remote.client_id":        "",
	"remote.tenant":           "common",
	"remote.credentials_file": "credentials.json",
	"remote.base_url":         "",
	"log_file":                "log.txt",
}

// Home returns the application home directory.
func Home() (string, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		return home, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userHome, ".config", xdgAppName), nil
}

// GetConfigPath returns the path of config.yaml inside the application home.
func GetConfigPath() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFile), nil
}

// DefaultConfig returns the built-in configuration rooted at home.
func DefaultConfig(home string) *Config {
	cfg, err := decode(newViper(), home)
	if err != nil {
		// The defaults table is static; failing to decode it is a programming error.
		panic(fmt.Sprintf("invalid default configuration: %v", err))
	}
	return cfg
}

// Load reads the configuration from the default location.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the configuration at path, layered over the defaults and
// PRIORITY_MANAGER_* environment variables. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	v := newViper()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	return decode(v, filepath.Dir(path))
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper, home string) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.home = home
	if len(cfg.Statuses) == 0 {
		cfg.Statuses = []string{"To Do", "In Progress", "Complete"}
	}
	if cfg.Defaults.Status == "" {
		cfg.Defaults.Status = cfg.Statuses[0]
	}
	if cfg.Remote.Provider == "" {
		cfg.Remote.Provider = ProviderMSTodo
	}
	return &cfg, nil
}

// Save writes cfg as YAML to path.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()

	encoder := yaml.NewEncoder(f)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return encoder.Close()
}

// Home is the directory relative paths are resolved against.
func (c *Config) Home() string {
	return c.home
}

func (c *Config) TasksDir() string {
	return c.resolve(c.Directories.TasksDir)
}

func (c *Config) ArchiveDir() string {
	return c.resolve(c.Directories.ArchiveDir)
}

func (c *Config) LogPath() string {
	return c.resolve(c.LogFile)
}

func (c *Config) CredentialsPath() string {
	return c.resolve(c.Remote.CredentialsFile)
}

// OpenStatus is the status given to new and pulled tasks.
func (c *Config) OpenStatus() string {
	return c.Statuses[0]
}

// DoneStatus is the status set by "edit --complete".
func (c *Config) DoneStatus() string {
	return c.Statuses[len(c.Statuses)-1]
}

func (c *Config) resolve(path string) string {
	if strings.HasPrefix(path, "~/") {
		if userHome, err := os.UserHomeDir(); err == nil {
			return filepath.Join(userHome, path[2:])
		}
	}
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.home, path)
}
