package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}

type App struct {
	Name string
	Env  string
	HTTP HTTP
}

type Log struct {
	Level string
	JSON  bool
}

// CarAPI 外部车辆库存 API（本服务只做客户端）
type CarAPI struct {
	BaseURL    string `mapstructure:"base_url"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
}

// Identity 身份提供方（GoTrue 风格 REST）
type Identity struct {
	URL        string
	AnonKey    string `mapstructure:"anon_key"`
	JWTSecret  string `mapstructure:"jwt_secret"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
}

type Session struct {
	CookieName string `mapstructure:"cookie_name"`
	TTLMin     int    `mapstructure:"ttl_min"`
	Backend    string // "redis" / "memory"
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type Config struct {
	App      App
	Log      Log
	CarAPI   CarAPI `mapstructure:"carapi"`
	Identity Identity
	Session  Session
	Redis    Redis `mapstructure:"redis"`
}

func Load(path string) *Config {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("read config: %v", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		log.Fatalf("unmarshal config: %v", err)
	}
	applyDefaults(&c)
	return &c
}

func applyDefaults(c *Config) {
	if c.Session.CookieName == "" {
		c.Session.CookieName = "sid"
	}
	if c.Session.TTLMin <= 0 {
		c.Session.TTLMin = 60 * 24 * 14 // 两周
	}
	if c.Session.Backend == "" {
		if c.Redis.Addr != "" {
			c.Session.Backend = "redis"
		} else {
			c.Session.Backend = "memory"
		}
	}
	if c.CarAPI.TimeoutSec <= 0 {
		c.CarAPI.TimeoutSec = 10
	}
	if c.Identity.TimeoutSec <= 0 {
		c.Identity.TimeoutSec = 10
	}
}
