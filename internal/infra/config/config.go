package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig    `mapstructure:"server" yaml:"server"`
	Storage StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Queue   QueueConfig     `mapstructure:"queue" yaml:"queue"`
	Upload  UploadConfig    `mapstructure:"upload" yaml:"upload"`
	Rate    RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
	Tools   ToolsConfig     `mapstructure:"tools" yaml:"tools"`
	Log     LogConfig       `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port" yaml:"port"`
}

type StorageConfig struct {
	UploadsDir   string `mapstructure:"uploads_dir" yaml:"uploads_dir"`
	DownloadsDir string `mapstructure:"downloads_dir" yaml:"downloads_dir"`
}

type QueueConfig struct {
	Concurrency     int   `mapstructure:"concurrency" yaml:"concurrency"`
	MaxPerUser      int   `mapstructure:"max_per_user" yaml:"max_per_user"`
	JobTimeoutMS    int64 `mapstructure:"job_timeout_ms" yaml:"job_timeout_ms"`
	JobTTLMS        int64 `mapstructure:"job_ttl_ms" yaml:"job_ttl_ms"`
	OutputTTLMS     int64 `mapstructure:"output_ttl_ms" yaml:"output_ttl_ms"`
	ShutdownGraceMS int64 `mapstructure:"shutdown_grace_ms" yaml:"shutdown_grace_ms"`

	// Derived in validate() from the *_ms knobs above.
	JobTimeout    time.Duration `mapstructure:"-" yaml:"-"`
	JobTTL        time.Duration `mapstructure:"-" yaml:"-"`
	OutputTTL     time.Duration `mapstructure:"-" yaml:"-"`
	ShutdownGrace time.Duration `mapstructure:"-" yaml:"-"`
}

type UploadConfig struct {
	MaxFileSize       int64 `mapstructure:"max_file_size" yaml:"max_file_size"`
	MaxOfficeFileSize int64 `mapstructure:"max_office_file_size" yaml:"max_office_file_size"`
	MaxFiles          int   `mapstructure:"max_files" yaml:"max_files"`
}

type RateLimitConfig struct {
	WindowMS int64 `mapstructure:"window_ms" yaml:"window_ms"`
	Max      int   `mapstructure:"max" yaml:"max"`

	Window time.Duration `mapstructure:"-" yaml:"-"`
}

type ToolsConfig struct {
	// Provider names the PDF engine family. Only "qpdf" (local CLI tools)
	// is implemented; the field exists so hosted providers can be added
	// without a config break.
	Provider     string `mapstructure:"provider" yaml:"provider"`
	APIKey       string `mapstructure:"api_key" yaml:"api_key"`
	ChromiumPath string `mapstructure:"chromium_path" yaml:"chromium_path"`
}

type LogConfig struct {
	Path          string `mapstructure:"path" yaml:"path"`
	Level         string `mapstructure:"level" yaml:"level"`
	IncludeStdout bool   `mapstructure:"include_stdout" yaml:"include_stdout"`
}

func Load(path string) (*Config, error) {
	v := viper.New()

	// Set Defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("storage.uploads_dir", "/tmp/pdf-uploads")
	v.SetDefault("storage.downloads_dir", "/tmp/pdf-downloads")
	v.SetDefault("queue.concurrency", 2)
	v.SetDefault("queue.max_per_user", 1)
	v.SetDefault("queue.job_timeout_ms", int64(5*time.Minute/time.Millisecond))
	v.SetDefault("queue.job_ttl_ms", int64(time.Hour/time.Millisecond))
	v.SetDefault("queue.output_ttl_ms", int64(time.Hour/time.Millisecond))
	v.SetDefault("queue.shutdown_grace_ms", int64(10*time.Second/time.Millisecond))
	v.SetDefault("upload.max_file_size", int64(1)<<30)          // 1 GiB per PDF
	v.SetDefault("upload.max_office_file_size", int64(500)<<20) // 500 MiB per office doc
	v.SetDefault("upload.max_files", 50)
	v.SetDefault("rate_limit.window_ms", int64(time.Minute/time.Millisecond))
	v.SetDefault("rate_limit.max", 100)
	v.SetDefault("tools.provider", "qpdf")
	v.SetDefault("log.path", "pdfpress.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.include_stdout", true)

	// Read config file when present. Unlike the env knobs it is optional:
	// a bare container runs fine on defaults.
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else if _, err := os.Stat("config.yaml"); err == nil {
		v.SetConfigFile("config.yaml")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file config.yaml: %w", err)
		}
	}

	// Support Environment Variables. The deployment contract names these
	// exactly, so bind them one by one rather than relying on the prefix.
	_ = v.BindEnv("tools.provider", "PDF_PROVIDER")
	_ = v.BindEnv("tools.api_key", "PDF_API_KEY")
	_ = v.BindEnv("tools.chromium_path", "CHROMIUM_PATH")
	_ = v.BindEnv("queue.concurrency", "QUEUE_CONCURRENCY")
	_ = v.BindEnv("queue.max_per_user", "QUEUE_MAX_PER_USER")
	_ = v.BindEnv("queue.job_ttl_ms", "JOB_TTL_MS")
	_ = v.BindEnv("queue.output_ttl_ms", "OUTPUT_TTL_MS")
	_ = v.BindEnv("upload.max_file_size", "UPLOAD_MAX_FILE_SIZE")
	_ = v.BindEnv("upload.max_files", "UPLOAD_MAX_FILES")
	_ = v.BindEnv("rate_limit.window_ms", "RATE_LIMIT_WINDOW_MS")
	_ = v.BindEnv("rate_limit.max", "RATE_LIMIT_MAX")

	// Everything else is reachable under a prefix, e.g. PDFPRESS_SERVER_PORT
	v.SetEnvPrefix("PDFPRESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}

	if c.Storage.UploadsDir == "" || c.Storage.DownloadsDir == "" {
		return fmt.Errorf("storage.uploads_dir and storage.downloads_dir are required")
	}
	if c.Storage.UploadsDir == c.Storage.DownloadsDir {
		return fmt.Errorf("uploads_dir and downloads_dir must be distinct directories")
	}

	if c.Queue.Concurrency <= 0 {
		c.Queue.Concurrency = 2
	}
	if c.Queue.MaxPerUser <= 0 {
		c.Queue.MaxPerUser = 1
	}
	if c.Queue.MaxPerUser > c.Queue.Concurrency {
		c.Queue.MaxPerUser = c.Queue.Concurrency
	}
	if c.Queue.JobTimeoutMS <= 0 {
		c.Queue.JobTimeoutMS = int64(5 * time.Minute / time.Millisecond)
	}
	if c.Queue.JobTTLMS <= 0 {
		c.Queue.JobTTLMS = int64(time.Hour / time.Millisecond)
	}
	if c.Queue.OutputTTLMS <= 0 {
		c.Queue.OutputTTLMS = int64(time.Hour / time.Millisecond)
	}
	if c.Queue.ShutdownGraceMS <= 0 {
		c.Queue.ShutdownGraceMS = int64(10 * time.Second / time.Millisecond)
	}
	c.Queue.JobTimeout = time.Duration(c.Queue.JobTimeoutMS) * time.Millisecond
	c.Queue.JobTTL = time.Duration(c.Queue.JobTTLMS) * time.Millisecond
	c.Queue.OutputTTL = time.Duration(c.Queue.OutputTTLMS) * time.Millisecond
	c.Queue.ShutdownGrace = time.Duration(c.Queue.ShutdownGraceMS) * time.Millisecond

	if c.Upload.MaxFileSize <= 0 {
		c.Upload.MaxFileSize = int64(1) << 30
	}
	if c.Upload.MaxOfficeFileSize <= 0 {
		c.Upload.MaxOfficeFileSize = int64(500) << 20
	}
	if c.Upload.MaxFiles <= 0 {
		c.Upload.MaxFiles = 50
	}

	if c.Rate.WindowMS <= 0 {
		c.Rate.WindowMS = int64(time.Minute / time.Millisecond)
	}
	if c.Rate.Max <= 0 {
		c.Rate.Max = 100
	}
	c.Rate.Window = time.Duration(c.Rate.WindowMS) * time.Millisecond

	if c.Tools.Provider == "" {
		c.Tools.Provider = "qpdf"
	}

	return nil
}
