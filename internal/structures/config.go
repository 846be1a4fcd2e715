package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1|max:65535"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"uint"`
	Dir   string `yaml:"dir" validate:"unixPath"`
}

type CatalogConfig struct {
	Path     string `yaml:"path" validate:"required|unixPath"`
	Required bool   `yaml:"required"`
}

type UpstreamConfig struct {
	Url       string        `yaml:"url" validate:"required|fullUrl"`
	Timeout   time.Duration `yaml:"timeout" validate:"required|min:1"`
	UserAgent string        `yaml:"userAgent"`
}

type SnapshotConfig struct {
	TTL          time.Duration `yaml:"ttl" validate:"required|min:1"`
	WarmInterval time.Duration `yaml:"warmInterval" validate:"min:0"`
}

type AggregatorConfig struct {
	MatchKey           string `yaml:"matchKey" validate:"in:auto,id,name"`
	SchedulePreference string `yaml:"schedulePreference" validate:"in:secondary,primary"`
	SortOrder          string `yaml:"sortOrder" validate:"in:lexical,natural"`
}

type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	Size    int  `yaml:"size"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName    string
	Debug      bool
	Path       string
	WebServer  Server           `yaml:"webServer"`
	Logger     LoggerConfig     `yaml:"logger"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
	Cache      CacheConfig      `yaml:"cache"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}
