package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/printwatch/internal/errors"
	"codeberg.org/mutker/printwatch/internal/logger"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix  = "PRINTWATCH"
	configName = "printwatch"

	SourceCUPS      = "cups"
	SourceSpoolFile = "spoolfile"

	DefaultInterval       = 10 * time.Second
	DefaultBackoff        = 5 * time.Second
	DefaultExportInterval = 1800 * time.Second
	DefaultMaxJobs        = 1000
	DefaultLogLevel       = "info"
	DefaultLogFile        = "printwatch.log"
	DefaultCapacity       = 1000
	DefaultEvictBatch     = 100
	DefaultHistoryDB      = "/var/lib/printwatch/history.db"
)

type Config struct {
	Interval       time.Duration   `mapstructure:"interval"`
	Backoff        time.Duration   `mapstructure:"backoff"`
	ExportInterval time.Duration   `mapstructure:"export_interval"`
	MaxJobs        int             `mapstructure:"max_jobs"`
	ExportDir      string          `mapstructure:"export_dir"`
	LogFile        string          `mapstructure:"log_file"`
	LogLevel       string          `mapstructure:"log_level"`
	Autostart      bool            `mapstructure:"autostart"`
	PIDFile        string          `mapstructure:"pid_file"`
	Source         string          `mapstructure:"source"`
	CUPS           CUPSConfig      `mapstructure:"cups"`
	SpoolFile      SpoolFileConfig `mapstructure:"spoolfile"`
	Ledger         LedgerConfig    `mapstructure:"ledger"`
	History        HistoryConfig   `mapstructure:"history"`
	Server         ServerConfig    `mapstructure:"server"`
}

type CUPSConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	TLS      bool   `mapstructure:"tls"`
}

type SpoolFileConfig struct {
	Path string `mapstructure:"path"`
}

type LedgerConfig struct {
	Capacity   int `mapstructure:"capacity"`
	EvictBatch int `mapstructure:"evict_batch"`
}

type HistoryConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	DBPath       string        `mapstructure:"db_path"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

type ServerConfig struct {
	Listen    string  `mapstructure:"listen"`
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("backoff", DefaultBackoff)
	v.SetDefault("export_interval", DefaultExportInterval)
	v.SetDefault("max_jobs", DefaultMaxJobs)
	v.SetDefault("export_dir", ".")
	v.SetDefault("log_file", DefaultLogFile)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("autostart", false)
	v.SetDefault("pid_file", filepath.Join(os.TempDir(), "printwatch.pid"))
	v.SetDefault("source", SourceCUPS)
	v.SetDefault("cups.host", "localhost")
	v.SetDefault("cups.port", 631)
	v.SetDefault("cups.user", "")
	v.SetDefault("cups.password", "")
	v.SetDefault("cups.tls", false)
	v.SetDefault("spoolfile.path", "spool.yaml")
	v.SetDefault("ledger.capacity", DefaultCapacity)
	v.SetDefault("ledger.evict_batch", DefaultEvictBatch)
	v.SetDefault("history.enabled", false)
	v.SetDefault("history.db_path", DefaultHistoryDB)
	v.SetDefault("history.batch_size", 50)
	v.SetDefault("history.batch_timeout", 30*time.Second)
	v.SetDefault("server.listen", "")
	v.SetDefault("server.rate_limit", 10.0)
	v.SetDefault("server.rate_burst", 20)
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(configName, pflag.ContinueOnError)
	fs.String("config", "", "Path to the configuration file")
	fs.Duration("interval", DefaultInterval, "Pause between collection sweeps")
	fs.Duration("backoff", DefaultBackoff, "Pause after a failed or empty printer enumeration")
	fs.Duration("export-interval", DefaultExportInterval, "Interval between automatic CSV exports")
	fs.Int("max-jobs", DefaultMaxJobs, "Maximum jobs requested per printer and sweep")
	fs.String("export-dir", ".", "Directory for save and automatic exports")
	fs.String("log-file", DefaultLogFile, "Log file, appended to (empty disables)")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warn, error)")
	fs.Bool("autostart", false, "Start collection immediately")
	fs.String("source", SourceCUPS, "Job source (cups, spoolfile)")
	fs.String("spoolfile", "spool.yaml", "Spool state file for the spoolfile source")
	fs.Bool("history", false, "Record collected jobs in the SQLite history database")
	fs.String("listen", "", "Address for the HTTP status endpoint (empty disables)")
	return fs
}

// flagKeys maps flag names to configuration keys where they differ.
var flagKeys = map[string]string{
	"export-interval": "export_interval",
	"max-jobs":        "max_jobs",
	"export-dir":      "export_dir",
	"log-file":        "log_file",
	"log-level":       "log_level",
	"spoolfile":       "spoolfile.path",
	"history":         "history.enabled",
	"listen":          "server.listen",
}

// Load builds the configuration from defaults, an optional config file,
// PRINTWATCH_* environment variables and command line flags, in increasing
// order of precedence.
func Load(args []string) (*Config, error) {
	errFactory := errors.New()
	v := viper.New()
	setDefaults(v)

	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}
		key, ok := flagKeys[f.Name]
		if !ok {
			key = f.Name
		}
		if err := v.BindPFlag(key, f); err != nil {
			logger.Debug().Err(err).Str("flag", f.Name).Msg("failed to bind flag")
		}
	})

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	configPath, _ := fs.GetString("config")
	if configPath == "" {
		configPath = os.Getenv(envPrefix + "_CONFIG")
	}

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func readConfigFile(v *viper.Viper, path string) error {
	errFactory := errors.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
		return nil
	}

	v.SetConfigName(configName)
	v.AddConfigPath("/etc/printwatch")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "printwatch"))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	return nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, "interval")
	}
	if c.Backoff <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, "backoff")
	}
	if c.ExportInterval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, "export_interval")
	}
	if c.MaxJobs <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "max_jobs must be positive")
	}
	if c.Ledger.Capacity <= 0 || c.Ledger.EvictBatch <= 0 || c.Ledger.EvictBatch > c.Ledger.Capacity {
		return errFactory.WithData(errors.ErrInvalidConfig, "ledger capacity and evict_batch must be positive, evict_batch <= capacity")
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	switch c.Source {
	case SourceCUPS:
		if c.CUPS.Host == "" || c.CUPS.Port <= 0 {
			return errFactory.WithData(errors.ErrInvalidConfig, "cups host and port are required")
		}
	case SourceSpoolFile:
		if c.SpoolFile.Path == "" {
			return errFactory.WithData(errors.ErrInvalidConfig, "spoolfile path is required")
		}
	default:
		return errFactory.WithData(errors.ErrInvalidSource, c.Source)
	}

	if c.History.Enabled {
		if c.History.DBPath == "" {
			return errFactory.WithData(errors.ErrInvalidConfig, "history db_path is required")
		}
		if c.History.BatchSize <= 0 || c.History.BatchTimeout <= 0 {
			return errFactory.WithData(errors.ErrInvalidConfig, "history batch_size and batch_timeout must be positive")
		}
	}

	if c.Server.Listen != "" && (c.Server.RateLimit <= 0 || c.Server.RateBurst <= 0) {
		return errFactory.WithData(errors.ErrInvalidConfig, "server rate_limit and rate_burst must be positive")
	}

	return nil
}
