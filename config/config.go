package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"

	"github.com/baldanca/bike-ingestor/encoder"
)

// EnvPrefix is prepended to every key when it is looked up in the
// environment, e.g. "api.page_size" becomes "BIKEINGEST_API_PAGE_SIZE".
const EnvPrefix = "BIKEINGEST"

type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Store    StoreConfig    `mapstructure:"store"`
	Artifact ArtifactConfig `mapstructure:"artifact"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Log      LogConfig      `mapstructure:"log"`
}

type APIConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	Key             string        `mapstructure:"key"`
	PageSize        int           `mapstructure:"page_size"`
	MaxPages        int           `mapstructure:"max_pages"`
	Timeout         time.Duration `mapstructure:"timeout"`
	StopOnShortPage bool          `mapstructure:"stop_on_short_page"`
}

type StoreConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	PathStyle bool   `mapstructure:"path_style"`
}

type ArtifactConfig struct {
	Format   string `mapstructure:"format"`
	Name     string `mapstructure:"name"`
	Timezone string `mapstructure:"timezone"`
}

// NotifyConfig enables the downstream notification when QueueURL is set.
type NotifyConfig struct {
	QueueURL string `mapstructure:"queue_url"`
}

type RetryConfig struct {
	Attempts        int           `mapstructure:"attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:  "http://openapi.seoul.go.kr:8088",
			PageSize: 1000,
			MaxPages: 100,
			Timeout:  10 * time.Second,
		},
		Store: StoreConfig{
			Region:    "us-east-1",
			Bucket:    "bronze",
			PathStyle: true,
		},
		Artifact: ArtifactConfig{
			Format:   encoder.FormatJSON,
			Name:     "bike_list",
			Timezone: "Asia/Seoul",
		},
		Retry: RetryConfig{
			Attempts:        1,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// legacyEnv lists the environment names the deployment already uses for
// secrets and endpoints. They are consulted after the prefixed name.
var legacyEnv = map[string]string{
	"api.key":          "SEOUL_API_KEY",
	"store.endpoint":   "MINIO_ENDPOINT",
	"store.access_key": "MINIO_ACCESS_KEY",
	"store.secret_key": "MINIO_SECRET_KEY",
}

// Load builds the configuration from defaults, an optional config file and
// the environment, in increasing order of precedence. With an empty path a
// file named "config" in the working directory is used when present.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// bindEnvs registers every key of cfg so that Unmarshal sees values that
// only exist in the environment.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(append([]string{}, parts...), tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}

		name := strings.Join(key, ".")
		envs := []string{EnvPrefix + "_" + strings.ToUpper(strings.Join(key, "_"))}
		if legacy, ok := legacyEnv[name]; ok {
			envs = append(envs, legacy)
		}
		_ = v.BindEnv(append([]string{name}, envs...)...)
	}
}

// Validate checks structural values. Credentials are not checked, the first
// remote call reports them.
func (c *Config) Validate() error {
	var errs []error
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}
	if c.API.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("api.page_size must be > 0, got %d", c.API.PageSize))
	}
	if c.API.MaxPages <= 0 {
		errs = append(errs, fmt.Errorf("api.max_pages must be > 0, got %d", c.API.MaxPages))
	}
	if c.API.Timeout < 0 {
		errs = append(errs, fmt.Errorf("api.timeout must be >= 0, got %s", c.API.Timeout))
	}
	if c.Store.Bucket == "" {
		errs = append(errs, errors.New("store.bucket is required"))
	}
	switch c.Artifact.Format {
	case encoder.FormatJSON, encoder.FormatNDJSON, encoder.FormatParquet:
	default:
		errs = append(errs, fmt.Errorf("artifact.format %q is not one of json, ndjson, parquet", c.Artifact.Format))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.Retry.Attempts < 1 {
		errs = append(errs, fmt.Errorf("retry.attempts must be >= 1, got %d", c.Retry.Attempts))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of json, console", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Location resolves artifact.timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Artifact.Timezone)
	if err != nil {
		return nil, fmt.Errorf("artifact.timezone %q: %w", c.Artifact.Timezone, err)
	}
	return loc, nil
}
