package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultListen      = ":8080"
	DefaultRegion      = "us-east-1"
	DefaultConcurrency = 1
)

type Config struct {
	Server ServerConfig `yaml:"server" json:"server"`
	Remote RemoteConfig `yaml:"remote" json:"remote"`
	Upload UploadConfig `yaml:"upload" json:"upload"`
}

// ServerConfig 本地 Nextcloud 模拟服务（filevault serve）
type ServerConfig struct {
	Listen string `yaml:"listen" json:"listen" validate:"required"`
	Auth   Auth   `yaml:"auth" json:"auth"`
}

type Auth struct {
	User string `yaml:"user" json:"user"`
	Pass string `yaml:"pass" json:"pass" validate:"required_with=User"`
}

type RemoteConfig struct {
	// 通用字段
	Type string `yaml:"type" json:"type" validate:"omitempty,oneof=webdav dav nextcloud s3 minio"`

	// WebDAV / Nextcloud 字段
	URL       string `yaml:"url" json:"url" validate:"omitempty,url"`
	User      string `yaml:"user" json:"user"`
	Pass      string `yaml:"pass" json:"pass"`
	DAVURL    string `yaml:"dav_url" json:"dav_url" validate:"omitempty,url"`
	OCSURL    string `yaml:"ocs_url" json:"ocs_url" validate:"omitempty,url"`
	PublicURL string `yaml:"public_url" json:"public_url" validate:"omitempty,url"`

	// S3 字段
	Endpoint   string `yaml:"endpoint" json:"endpoint"`
	Region     string `yaml:"region" json:"region"`
	Bucket     string `yaml:"bucket" json:"bucket"`
	AccessKey  string `yaml:"access_key" json:"access_key"`
	SecretKey  string `yaml:"secret_key" json:"secret_key"`
	UseSSL     bool   `yaml:"use_ssl" json:"use_ssl"`
	PublicBase string `yaml:"public_base" json:"public_base" validate:"omitempty,url"`
}

// UploadConfig 上传策略；0 表示使用默认值
type UploadConfig struct {
	ChunkSize   int64 `yaml:"chunk_size" json:"chunk_size" validate:"omitempty,min=5242880,max=5368709120"`
	Threshold   int64 `yaml:"threshold" json:"threshold" validate:"omitempty,min=1,max=10000000"`
	Concurrency int   `yaml:"concurrency" json:"concurrency" validate:"min=1,max=64"`
}

// LoadConfig 读取 YAML 配置（文件不存在时忽略），再用 .env 与环境变量覆盖
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		// Return error if it's not a "file not found" error (e.g., permissions)
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Config: ignoring .env: %v", err)
	}

	if err := processEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = DefaultListen
	}
	if cfg.Remote.Type == "" {
		cfg.Remote.Type = "webdav"
	}
	cfg.Remote.Type = strings.ToLower(strings.TrimSpace(cfg.Remote.Type))
	if cfg.Remote.Region == "" {
		cfg.Remote.Region = DefaultRegion
	}
	if cfg.Upload.Concurrency == 0 {
		cfg.Upload.Concurrency = DefaultConcurrency
	}
}

func processEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"SERVER_LISTEN":      &cfg.Server.Listen,
		"SERVER_USER":        &cfg.Server.Auth.User,
		"SERVER_PASS":        &cfg.Server.Auth.Pass,
		"REMOTE_TYPE":        &cfg.Remote.Type,
		"REMOTE_URL":         &cfg.Remote.URL,
		"REMOTE_USER":        &cfg.Remote.User,
		"REMOTE_PASS":        &cfg.Remote.Pass,
		"REMOTE_DAV_URL":     &cfg.Remote.DAVURL,
		"REMOTE_OCS_URL":     &cfg.Remote.OCSURL,
		"REMOTE_PUBLIC_URL":  &cfg.Remote.PublicURL,
		"REMOTE_ENDPOINT":    &cfg.Remote.Endpoint,
		"REMOTE_REGION":      &cfg.Remote.Region,
		"REMOTE_BUCKET":      &cfg.Remote.Bucket,
		"REMOTE_ACCESS_KEY":  &cfg.Remote.AccessKey,
		"REMOTE_SECRET_KEY":  &cfg.Remote.SecretKey,
		"REMOTE_PUBLIC_BASE": &cfg.Remote.PublicBase,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("REMOTE_USE_SSL"); v != "" {
		cfg.Remote.UseSSL = v == "true" || v == "1"
	}

	ints := map[string]*int64{
		"UPLOAD_CHUNK_SIZE": &cfg.Upload.ChunkSize,
		"UPLOAD_THRESHOLD":  &cfg.Upload.Threshold,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", key, v, err)
			}
			*dst = n
		}
	}
	if v := os.Getenv("UPLOAD_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid UPLOAD_CONCURRENCY %q: %w", v, err)
		}
		cfg.Upload.Concurrency = n
	}
	return nil
}

// Validate 校验字段格式与取值范围，错误信息为英文可读文本
func (c *Config) Validate() error {
	eng := en.New()
	uni := ut.New(eng, eng)
	trans, _ := uni.GetTranslator("en")

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := entranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return fmt.Errorf("failed to register translations: %w", err)
	}

	err := validate.Struct(c)
	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) {
		msgs := make([]string, 0, len(valErrs))
		for _, fe := range valErrs {
			msgs = append(msgs, fe.Translate(trans))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
	return err
}

// SaveConfig saves the configuration struct to the specified file path
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
