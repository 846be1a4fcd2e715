package providers

import (
	"errors"
	"fmt"
	"github.com/spf13/viper"
	"path/filepath"
	"pasosd/internal/structures"
	"strings"
)

const DefaultUpstreamUrl = "https://www.argentina.gob.ar/seguridad/pasosinternacionales/listado"

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("webServer.host", "0.0.0.0")
	v.SetDefault("webServer.port", 8080)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.mode", 0644)
	v.SetDefault("catalog.path", "./catalog.json")
	v.SetDefault("catalog.required", true)
	v.SetDefault("upstream.url", DefaultUpstreamUrl)
	v.SetDefault("upstream.timeout", "30s")
	v.SetDefault("upstream.userAgent", "Mozilla/5.0")
	v.SetDefault("snapshot.ttl", "15m")
	v.SetDefault("snapshot.warmInterval", "0s")
	v.SetDefault("aggregator.matchKey", "auto")
	v.SetDefault("aggregator.schedulePreference", "secondary")
	v.SetDefault("aggregator.sortOrder", "lexical")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.size", 8)
	v.SetDefault("metrics.enabled", false)
}

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config
	v := viper.New()

	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")

	setConfigDefaults(v)

	v.BindEnv("webServer.port", "PORT")
	v.BindEnv("logger.level", "PASOS_LOG_LEVEL")
	v.BindEnv("catalog.path", "PASOS_CATALOG_PATH")
	v.BindEnv("upstream.url", "PASOS_UPSTREAM_URL")
	v.BindEnv("upstream.timeout", "PASOS_UPSTREAM_TIMEOUT")
	v.BindEnv("snapshot.ttl", "PASOS_SNAPSHOT_TTL")
	v.BindEnv("aggregator.matchKey", "PASOS_MATCH_KEY")
	v.BindEnv("aggregator.schedulePreference", "PASOS_SCHEDULE_PREFERENCE")

	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	err = v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "PasosInternacionales"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
