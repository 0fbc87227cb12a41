package config

import "time"

var Conf Config

type Config struct {
	Server  Server  `mapstructure:"server" json:"server" yaml:"server"`
	Backend Backend `mapstructure:"backend" json:"backend" yaml:"backend"`
	Cookie  Cookie  `mapstructure:"cookie" json:"cookie" yaml:"cookie"`
	Store   Store   `mapstructure:"store" json:"store" yaml:"store"`
	Log     Log     `mapstructure:"log" json:"log" yaml:"log"`
}

type Server struct {
	Port          string `mapstructure:"port" json:"port" yaml:"port" validate:"required"`
	WebRoot       string `mapstructure:"web_root" json:"webRoot" yaml:"web_root"`
	SecureCookies bool   `mapstructure:"secure_cookies" json:"secureCookies" yaml:"secure_cookies"`

	// ExtraProtectedPaths는 기본 보호 경로 외에 로그인이 필요한 페이지 접두사
	ExtraProtectedPaths []string `mapstructure:"extra_protected_paths" json:"extraProtectedPaths" yaml:"extra_protected_paths" validate:"dive,startswith=/"`
}

// Backend는 외부 e-commerce API 접속 설정
type Backend struct {
	BaseURL        string        `mapstructure:"base_url" json:"baseUrl" yaml:"base_url" validate:"required,url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"requestTimeout" yaml:"request_timeout" validate:"gte=0"`
	RefreshTimeout time.Duration `mapstructure:"refresh_timeout" json:"refreshTimeout" yaml:"refresh_timeout" validate:"gt=0"`
	SettleGrace    time.Duration `mapstructure:"settle_grace" json:"settleGrace" yaml:"settle_grace" validate:"gte=0"`
}

type Cookie struct {
	AccessTTL  time.Duration `mapstructure:"access_ttl" json:"accessTtl" yaml:"access_ttl" validate:"gt=0"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl" json:"refreshTtl" yaml:"refresh_ttl" validate:"gtfield=AccessTTL"`
}

type Store struct {
	Driver     string `mapstructure:"driver" json:"driver" yaml:"driver" validate:"oneof=sqlite redis"`
	SQLitePath string `mapstructure:"sqlite_path" json:"sqlitePath" yaml:"sqlite_path" validate:"required_if=Driver sqlite"`
	RedisURL   string `mapstructure:"redis_url" json:"-" yaml:"redis_url" validate:"required_if=Driver redis"`
}

type Log struct {
	Level  string `mapstructure:"level" json:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Pretty bool   `mapstructure:"pretty" json:"pretty" yaml:"pretty"`
}
