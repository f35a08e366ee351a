package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Dspx-Monitor.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Data      DataConfig      `yaml:"data"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Report    ReportConfig    `yaml:"report"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Notify    NotifyConfig    `yaml:"notify"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	TSDB      TSDBConfig      `yaml:"tsdb"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SiteConfig identifies the refrigerator being monitored.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	// Timezone is the IANA zone the instrument logs wall-clock times in.
	Timezone string `yaml:"timezone"`
}

// DataConfig locates the per-day instrument log files.
type DataConfig struct {
	// Dir contains one file per calendar date named MMDDYY<Extension>.
	Dir       string `yaml:"dir"`
	Extension string `yaml:"extension"`
}

// IngestConfig tunes the parser and the range merger.
type IngestConfig struct {
	// Parallelism bounds concurrent per-date reads. 1 disables parallel reads.
	Parallelism int `yaml:"parallelism"`

	// RegressionTolerance is how far a timestamp may step backwards inside a
	// single file before the file is rejected as corrupt.
	RegressionTolerance time.Duration `yaml:"regression_tolerance"`

	// MaxRangeDays caps the number of calendar days a single request may span.
	MaxRangeDays int `yaml:"max_range_days"`
}

// DashboardConfig contains chart rendering and caching settings.
type DashboardConfig struct {
	// MaxPoints is the sample count above which series are decimated for charts.
	MaxPoints int `yaml:"max_points"`

	// ValveMaxPoints is the decimation cap for valve timelines.
	ValveMaxPoints int `yaml:"valve_max_points"`

	// CacheTTL is how long a merged range stays cached when its files are unchanged.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// WebDir serves dashboard assets from disk instead of the embedded copy.
	WebDir string `yaml:"web_dir"`
}

// ReportConfig controls the daily summary report.
type ReportConfig struct {
	Title string `yaml:"title"`

	// Time is the local wall-clock time (HH:MM) the daily report is sent.
	Time string `yaml:"time"`

	// WindowHours is how far back the scheduled report looks.
	WindowHours int `yaml:"window_hours"`

	// Precision is the number of significant digits printed for values.
	Precision int `yaml:"precision"`

	// Channels lists the channel names included in reports.
	// Empty means every temperature channel.
	Channels []string `yaml:"channels"`
}

// SchedulerConfig controls the background file watcher and report job.
type SchedulerConfig struct {
	Enabled       bool          `yaml:"enabled"`
	CheckInterval time.Duration `yaml:"check_interval"`
	ReportEnabled bool          `yaml:"report_enabled"`
}

// NotifyConfig contains chat webhook delivery settings.
type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url"`

	// Channel is the default destination channel (#name or ID).
	Channel string `yaml:"channel"`

	// User is the default destination user ID, used when Channel is empty.
	User string `yaml:"user"`

	// Timeout is the HTTP timeout for a single delivery in seconds.
	Timeout int `yaml:"timeout"`

	// SecretsFile is an optional KEY=value file consulted for secrets
	// not present in the environment.
	SecretsFile string `yaml:"secrets_file"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// TSDBConfig contains VictoriaMetrics connection settings.
type TSDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// Output is stdout, stderr or file. File output is also echoed to stdout.
	Output string `yaml:"output"`
	File   string `yaml:"file"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//  4. Secrets file values (only for secrets still unset)
//
// Environment variables follow the pattern: DSPX_SECTION_KEY
// For example: DSPX_DATA_DIR, DSPX_NOTIFY_WEBHOOK_URL
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := applySecretsFile(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "dspx",
			Name:     "Dspx-Monitor",
			Timezone: "Local",
		},
		Data: DataConfig{
			Dir:       "./data",
			Extension: ".txt",
		},
		Ingest: IngestConfig{
			Parallelism:         4,
			RegressionTolerance: 2 * time.Minute,
			MaxRangeDays:        62,
		},
		Dashboard: DashboardConfig{
			MaxPoints:      2000,
			ValveMaxPoints: 1500,
			CacheTTL:       5 * time.Minute,
		},
		Report: ReportConfig{
			Title:       "Dspx-Monitor Daily Report",
			Time:        "15:00",
			WindowHours: 24,
			Precision:   6,
		},
		Scheduler: SchedulerConfig{
			Enabled:       true,
			CheckInterval: time.Minute,
			ReportEnabled: true,
		},
		Notify: NotifyConfig{
			Timeout:     10,
			SecretsFile: "slack.secret",
		},
		Database: DatabaseConfig{
			Path:        "./data/dspx.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "dspx-monitor",
			},
			QoS:         1,
			TopicPrefix: "dspx",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8501,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: DSPX_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DSPX_DATA_DIR"); v != "" {
		cfg.Data.Dir = v
	}
	if v := os.Getenv("DSPX_SITE_TIMEZONE"); v != "" {
		cfg.Site.Timezone = v
	}
	if v := os.Getenv("DSPX_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Legacy SLACK_* names are still accepted.
	if v := firstEnv("DSPX_NOTIFY_WEBHOOK_URL", "SLACK_WEBHOOK_URL"); v != "" {
		cfg.Notify.WebhookURL = v
	}
	if v := firstEnv("DSPX_NOTIFY_CHANNEL", "SLACK_REPORT_CHANNEL"); v != "" {
		cfg.Notify.Channel = v
	}
	if v := firstEnv("DSPX_NOTIFY_USER", "SLACK_REPORT_USER"); v != "" {
		cfg.Notify.User = v
	}

	if v := os.Getenv("DSPX_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("DSPX_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("DSPX_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("DSPX_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("DSPX_API_HOST"); v != "" {
		cfg.API.Host = v
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// secretKeys maps secrets-file keys onto the fields they fill.
var secretKeys = map[string]func(*Config, string){
	"DSPX_NOTIFY_WEBHOOK_URL": func(c *Config, v string) { c.Notify.WebhookURL = v },
	"SLACK_WEBHOOK_URL":       func(c *Config, v string) { c.Notify.WebhookURL = v },
	"DSPX_INFLUXDB_TOKEN":     func(c *Config, v string) { c.InfluxDB.Token = v },
	"DSPX_MQTT_PASSWORD":      func(c *Config, v string) { c.MQTT.Auth.Password = v },
}

// applySecretsFile fills secrets that are still unset from Notify.SecretsFile.
// A missing file is not an error; values already set are never replaced.
func applySecretsFile(cfg *Config) error {
	if cfg.Notify.SecretsFile == "" {
		return nil
	}

	secrets, err := ReadSecretsFile(cfg.Notify.SecretsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading secrets file: %w", err)
	}

	for key, value := range secrets {
		apply, ok := secretKeys[key]
		if !ok {
			continue
		}
		if isSecretSet(cfg, key) {
			continue
		}
		apply(cfg, value)
	}
	return nil
}

func isSecretSet(cfg *Config, key string) bool {
	switch key {
	case "DSPX_NOTIFY_WEBHOOK_URL", "SLACK_WEBHOOK_URL":
		return cfg.Notify.WebhookURL != ""
	case "DSPX_INFLUXDB_TOKEN":
		return cfg.InfluxDB.Token != ""
	case "DSPX_MQTT_PASSWORD":
		return cfg.MQTT.Auth.Password != ""
	}
	return false
}

// ReadSecretsFile parses a KEY=value file. Blank lines and lines starting
// with # are ignored. Values are trimmed.
func ReadSecretsFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	secrets := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		secrets[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return secrets, nil
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("site.timezone %q is not a valid zone", c.Site.Timezone))
	}

	if c.Data.Dir == "" {
		errs = append(errs, "data.dir is required")
	}

	if c.Ingest.Parallelism < 1 {
		errs = append(errs, "ingest.parallelism must be at least 1")
	}
	if c.Ingest.RegressionTolerance < 0 {
		errs = append(errs, "ingest.regression_tolerance must not be negative")
	}
	if c.Ingest.MaxRangeDays < 1 {
		errs = append(errs, "ingest.max_range_days must be at least 1")
	}

	if c.Dashboard.MaxPoints < 2 {
		errs = append(errs, "dashboard.max_points must be at least 2")
	}
	if c.Dashboard.ValveMaxPoints < 2 {
		errs = append(errs, "dashboard.valve_max_points must be at least 2")
	}

	if _, _, err := c.ReportClock(); err != nil {
		errs = append(errs, fmt.Sprintf("report.time: %v", err))
	}
	if c.Report.WindowHours < 1 {
		errs = append(errs, "report.window_hours must be at least 1")
	}
	if c.Report.Precision < 1 || c.Report.Precision > 17 {
		errs = append(errs, "report.precision must be between 1 and 17")
	}

	if c.Scheduler.Enabled && c.Scheduler.CheckInterval <= 0 {
		errs = append(errs, "scheduler.check_interval must be positive")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}
	if c.TSDB.Enabled && c.TSDB.URL == "" {
		errs = append(errs, "tsdb.url is required when tsdb is enabled")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if strings.EqualFold(c.Logging.Output, "file") && c.Logging.File == "" {
		errs = append(errs, "logging.file is required when logging.output is file")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Location resolves the site timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Site.Timezone == "" || c.Site.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Site.Timezone)
}

// ReportClock parses Report.Time into hour and minute.
func (c *Config) ReportClock() (hour, minute int, err error) {
	t, err := time.Parse("15:04", c.Report.Time)
	if err != nil {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", c.Report.Time)
	}
	return t.Hour(), t.Minute(), nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c APIConfig) GetReadTimeout() time.Duration {
	return time.Duration(c.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c APIConfig) GetWriteTimeout() time.Duration {
	return time.Duration(c.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c APIConfig) GetIdleTimeout() time.Duration {
	return time.Duration(c.Timeouts.Idle) * time.Second
}
