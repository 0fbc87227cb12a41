package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const envPrefix = "STOREADMIN"

var configFilePath string

var defaults = map[string]any{
	"server.port":                  "3000",
	"server.web_root":              "dist/web",
	"server.secure_cookies":        false,
	"server.extra_protected_paths": []string{"/statistics"},
	"backend.base_url":             "http://localhost:4000",
	"backend.request_timeout":      "30s",
	"backend.refresh_timeout":      "10s",
	"backend.settle_grace":         "30s",
	"cookie.access_ttl":            "1m",
	"cookie.refresh_ttl":           "168h",
	"store.driver":                 "sqlite",
	"store.sqlite_path":            "data/storeadmin.db",
	"store.redis_url":              "",
	"log.level":                    "info",
	"log.pretty":                   true,
}

// SetConfig는 환경에 맞는 설정을 Conf에 적재하고 실패하면 종료
func SetConfig(goEnv string) {
	log.Info().Msgf("Loading configuration for environment: %s", goEnv)

	conf, err := Load(goEnv, "config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	Conf = conf

	if configFilePath != "" {
		log.Info().Msgf("Config file loaded: %s", configFilePath)
	} else {
		log.Warn().Msg("No config file found, using defaults")
	}
}

// Load는 .env, YAML 파일, STOREADMIN_ 환경 변수 순으로 설정을 읽음
func Load(goEnv, dir string) (Config, error) {
	// .env는 선택 사항
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.AddConfigPath(dir)
	v.SetConfigType("yaml")
	v.SetConfigName(configFileName(goEnv))

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configFilePath = ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		configFilePath = v.ConfigFileUsed()
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	conf.Server.Port = strings.TrimSpace(conf.Server.Port)
	conf.Backend.BaseURL = strings.TrimRight(conf.Backend.BaseURL, "/")

	if err := Validate(conf); err != nil {
		return Config{}, err
	}
	return conf, nil
}

func configFileName(goEnv string) string {
	if goEnv == "production" {
		return "config.prod"
	}
	return "config.dev"
}

// Validate는 struct 태그 규칙으로 설정을 검사
func Validate(conf Config) error {
	err := validator.New().Struct(conf)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// WriteDefault는 기본 설정을 YAML 파일로 기록
func WriteDefault(path string) error {
	doc := map[string]map[string]any{}
	for key, value := range defaults {
		section, name, _ := strings.Cut(key, ".")
		if doc[section] == nil {
			doc[section] = map[string]any{}
		}
		doc[section][name] = value
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}

	log.Info().Msgf("Default configuration written to %s", path)
	return nil
}
