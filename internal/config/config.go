package config

import (
	"os"
	"time"

	"github.com/go-yaml/yaml"
)

type Config struct {
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
	Redis    Redis    `yaml:"redis"`
	Cache    Cache    `yaml:"cache"`
}

type Server struct {
	Listen string `yaml:"listen"`
	// PublicURL is the externally visible base URL used to build
	// self-hosted identities and profile links.
	PublicURL string `yaml:"publicURL"`
	// SingleUser serves a single entity's API without the name prefix.
	SingleUser    string `yaml:"singleUser"`
	FanoutWorkers int    `yaml:"fanoutWorkers"`
	// RemoteTimeoutSeconds bounds every outbound discovery/notify call.
	RemoteTimeoutSeconds int    `yaml:"remoteTimeoutSeconds"`
	EnableTrace          bool   `yaml:"enableTrace"`
	TraceEndpoint        string `yaml:"traceEndpoint"`
	Debug                bool   `yaml:"debug"`
}

// RemoteTimeout returns the outbound call timeout as a duration.
func (s Server) RemoteTimeout() time.Duration {
	return time.Duration(s.RemoteTimeoutSeconds) * time.Second
}

type Database struct {
	Driver string `yaml:"driver"` // postgres, sqlite
	Dsn    string `yaml:"dsn"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Cache struct {
	MemcachedAddr string `yaml:"memcachedAddr"`
}

func Load(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	if config.Server.Listen == "" {
		config.Server.Listen = ":8000"
	}
	if config.Server.FanoutWorkers <= 0 {
		config.Server.FanoutWorkers = 8
	}
	if config.Server.RemoteTimeoutSeconds <= 0 {
		config.Server.RemoteTimeoutSeconds = 3
	}
	if config.Database.Driver == "" {
		config.Database.Driver = "sqlite"
	}
	if config.Database.Dsn == "" && config.Database.Driver == "sqlite" {
		config.Database.Dsn = "tentd.sqlite"
	}

	return config, nil
}
