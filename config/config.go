package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const ENV_FILE = ".env"
const CONFIG_FILE = "config.yaml"

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// AppConfig 는 프로세스 시작 시 한 번 읽어 들이는 불변 설정 스냅샷이다.
// 각 컴포넌트는 생성자에서 필요한 섹션만 전달받는다.
type AppConfig struct {
	Env        string           `yaml:"env"`
	Logging    LoggingConfig    `yaml:"logging"`
	Server     ServerConfig     `yaml:"server"`
	Mongo      MongoConfig      `yaml:"mongo"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	LLM        LLMConfig        `yaml:"llm"`
	LLMQuota   LLMQuotaConfig   `yaml:"llm_quota"`
	Generation GenerationConfig `yaml:"generation"`
	Domain     DomainConfig     `yaml:"domain"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Sitemap    SitemapConfig    `yaml:"sitemap"`
	Search     SearchConfig     `yaml:"search"`
	Reference  ReferenceConfig  `yaml:"reference"`
	Auth       AuthConfig       `yaml:"auth"`
}

// AuthConfig 의 시크릿 값은 환경변수로만 주입한다.
type AuthConfig struct {
	JWTSecret          string        `yaml:"-"`
	JWTIssuer          string        `yaml:"jwt_issuer"`
	TokenTTL           time.Duration `yaml:"token_ttl"`
	GithubClientID     string        `yaml:"github_client_id"`
	GithubClientSecret string        `yaml:"-"`
	GithubRedirectURL  string        `yaml:"github_redirect_url"`
	LoginSuccessURL    string        `yaml:"login_success_url"`
	CookieSecure       bool          `yaml:"cookie_secure"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ServerConfig 의 TrustForwardedHost 는 X-Forwarded-Host 를 다시 쓰는 프록시 뒤에서만 켠다.
type ServerConfig struct {
	Port               int      `yaml:"port"`
	SiteURL            string   `yaml:"site_url"`
	AllowedOrigins     []string `yaml:"allowed_origins"`
	TrustForwardedHost bool     `yaml:"trust_forwarded_host"`
}

type MongoConfig struct {
	URI    string `yaml:"uri"`
	DBName string `yaml:"db_name"`
}

// RedisConfig 의 URL 이 비어 있으면 호스트 캐시와 배치 잠금을 사용하지 않는다.
type RedisConfig struct {
	URL      string        `yaml:"url"`
	HostTTL  time.Duration `yaml:"host_ttl"`
	BatchTTL time.Duration `yaml:"batch_ttl"`
}

type KafkaConfig struct {
	Brokers    string `yaml:"brokers"`
	GroupID    string `yaml:"group_id"`
	Partitions int    `yaml:"partitions"`
}

// LLMConfig 는 본문 생성에 사용할 LLM 공급자 설정이다.
// Provider: openai | gemini | anthropic
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"-"`
	BaseURL     string        `yaml:"base_url"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int64         `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// LLMQuotaConfig 는 LLM 호출에 대한 분당/일일 한도를 정의한다.
// 0 이하면 제한 없음으로 간주한다.
type LLMQuotaConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	RequestsPerDay    int `yaml:"requests_per_day"`
}

type GenerationConfig struct {
	PostsPerBatch  int `yaml:"posts_per_batch"`
	MinWords       int `yaml:"min_words"`
	MaxWords       int `yaml:"max_words"`
	MaxConcurrency int `yaml:"max_concurrency"`
	RecentPosts    int `yaml:"recent_posts"`
}

type DomainConfig struct {
	BaseDomain             string        `yaml:"base_domain"`
	CNAMETarget            string        `yaml:"cname_target"`
	DNSProvider            string        `yaml:"dns_provider"`
	VerificationInterval   time.Duration `yaml:"verification_interval"`
	MaxVerificationRetries int           `yaml:"max_verification_retries"`
	ReverifyEnabled        bool          `yaml:"reverify_enabled"`
	LookupTimeout          time.Duration `yaml:"lookup_timeout"`
}

type SchedulerConfig struct {
	Timezone       string        `yaml:"timezone"`
	DefaultCron    string        `yaml:"default_cron"`
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

type SitemapConfig struct {
	Enabled         bool   `yaml:"enabled"`
	UpdateFrequency string `yaml:"update_frequency"`
}

type SearchConfig struct {
	IndexPath string `yaml:"index_path"`
}

// ReferenceConfig 는 토픽의 참고 URL/피드를 프롬프트 컨텍스트로 가져올 때 사용한다.
type ReferenceConfig struct {
	Enabled    bool          `yaml:"enabled"`
	RenderJS   bool          `yaml:"render_js"`
	ChromePath string        `yaml:"chrome_path"`
	FeedItems  int           `yaml:"feed_items"`
	MaxChars   int           `yaml:"max_chars"`
	Timeout    time.Duration `yaml:"timeout"`
}

var (
	configMu sync.Mutex
	config   *AppConfig
)

// InitApp 은 .env 와 config.yaml 을 읽어 전역 스냅샷을 만든다. main 패키지에서만 호출한다.
func InitApp() {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	configMu.Lock()
	config = &cfg
	configMu.Unlock()
}

func GetConfig() AppConfig {
	configMu.Lock()
	initialized := config != nil
	configMu.Unlock()
	if !initialized {
		InitApp()
	}
	configMu.Lock()
	defer configMu.Unlock()
	return *config
}

// Load 는 config.yaml 이 없으면 기본값과 환경변수만으로 설정을 구성한다.
func Load() (AppConfig, error) {
	base := GetBasePath()
	_ = godotenv.Load(filepath.Join(base, ENV_FILE))

	var data []byte
	if base != "" {
		b, err := os.ReadFile(filepath.Join(base, CONFIG_FILE))
		if err != nil {
			return AppConfig{}, fmt.Errorf("read %s: %w", CONFIG_FILE, err)
		}
		data = b
	}
	return Parse(data)
}

// Parse 는 YAML 을 디코딩한 뒤 환경변수 오버라이드와 기본값을 적용한다.
func Parse(data []byte) (AppConfig, error) {
	var c AppConfig
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &c); err != nil {
			return AppConfig{}, fmt.Errorf("decode %s: %w", CONFIG_FILE, err)
		}
	}
	applyEnv(&c)
	applyDefaults(&c)
	return c, nil
}

func (c AppConfig) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

func applyEnv(c *AppConfig) {
	setString(&c.Env, "APP_ENV")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setInt(&c.Server.Port, "PORT")
	setString(&c.Server.SiteURL, "SITE_URL")
	setBool(&c.Server.TrustForwardedHost, "TRUST_FORWARDED_HOST")
	setString(&c.Mongo.URI, "MONGO_URI")
	setString(&c.Mongo.DBName, "MONGO_DB_NAME")
	setString(&c.Redis.URL, "REDIS_URL")
	setString(&c.Kafka.Brokers, "KAFKA_BOOTSTRAP_SERVERS")
	setString(&c.Kafka.GroupID, "KAFKA_GROUP_ID")
	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.LLM.BaseURL, "LLM_BASE_URL")
	setString(&c.LLM.APIKey, "LLM_API_KEY")
	if c.LLM.APIKey == "" {
		switch strings.ToLower(c.LLM.Provider) {
		case "gemini":
			setString(&c.LLM.APIKey, "GEMINI_API_KEY")
		case "anthropic":
			setString(&c.LLM.APIKey, "ANTHROPIC_API_KEY")
		default:
			setString(&c.LLM.APIKey, "OPENAI_API_KEY")
		}
	}
	setInt(&c.Generation.PostsPerBatch, "POSTS_PER_BATCH")
	setInt(&c.Generation.MinWords, "MIN_WORDS")
	setInt(&c.Generation.MaxWords, "MAX_WORDS")
	setString(&c.Domain.BaseDomain, "BASE_DOMAIN")
	setString(&c.Domain.CNAMETarget, "CNAME_TARGET")
	setString(&c.Domain.DNSProvider, "DNS_PROVIDER")
	setString(&c.Search.IndexPath, "SEARCH_INDEX_PATH")
	setString(&c.Reference.ChromePath, "CHROME_PATH")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Auth.JWTIssuer, "JWT_ISSUER")
	setString(&c.Auth.GithubClientID, "GITHUB_CLIENT_ID")
	setString(&c.Auth.GithubClientSecret, "GITHUB_CLIENT_SECRET")
	setString(&c.Auth.GithubRedirectURL, "GITHUB_CALLBACK_URL")
	setString(&c.Auth.LoginSuccessURL, "AUTH_LOGIN_SUCCESS_REDIRECT_URL")
}

func applyDefaults(c *AppConfig) {
	if c.Env == "" {
		c.Env = EnvProduction
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Server.Port <= 0 {
		c.Server.Port = 3000
	}
	if c.Mongo.URI == "" {
		c.Mongo.URI = "mongodb://localhost:27017"
	}
	if c.Mongo.DBName == "" {
		c.Mongo.DBName = "autoblog"
	}
	if c.Redis.HostTTL <= 0 {
		c.Redis.HostTTL = 5 * time.Minute
	}
	if c.Redis.BatchTTL <= 0 {
		c.Redis.BatchTTL = 30 * time.Minute
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "autoblog"
	}
	if c.Kafka.Partitions <= 0 {
		c.Kafka.Partitions = 3
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o"
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 4096
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = 2 * time.Minute
	}
	if c.Generation.PostsPerBatch <= 0 {
		c.Generation.PostsPerBatch = 5
	}
	if c.Generation.MinWords <= 0 {
		c.Generation.MinWords = 800
	}
	if c.Generation.MaxWords <= 0 {
		c.Generation.MaxWords = 1500
	}
	if c.Generation.MaxConcurrency == 0 {
		c.Generation.MaxConcurrency = 3
	}
	if c.Generation.RecentPosts <= 0 || c.Generation.RecentPosts > 5 {
		c.Generation.RecentPosts = 5
	}
	if c.Domain.BaseDomain == "" {
		c.Domain.BaseDomain = "bertyblog.link"
	}
	if c.Domain.CNAMETarget == "" {
		c.Domain.CNAMETarget = "railway.app"
	}
	if c.Domain.DNSProvider == "" {
		c.Domain.DNSProvider = "cloudflare"
	}
	if c.Domain.VerificationInterval <= 0 {
		c.Domain.VerificationInterval = 30 * time.Minute
	}
	if c.Domain.MaxVerificationRetries <= 0 {
		c.Domain.MaxVerificationRetries = 5
	}
	if c.Domain.LookupTimeout <= 0 {
		c.Domain.LookupTimeout = 10 * time.Second
	}
	if c.Scheduler.Timezone == "" {
		c.Scheduler.Timezone = "Asia/Shanghai"
	}
	if c.Scheduler.DefaultCron == "" {
		c.Scheduler.DefaultCron = "0 3 * * *"
	}
	if c.Scheduler.ReloadInterval <= 0 {
		c.Scheduler.ReloadInterval = 10 * time.Minute
	}
	if c.Sitemap.UpdateFrequency == "" {
		c.Sitemap.UpdateFrequency = "daily"
	}
	if c.Search.IndexPath == "" {
		c.Search.IndexPath = "data/search.bleve"
	}
	if c.Reference.FeedItems <= 0 {
		c.Reference.FeedItems = 5
	}
	if c.Reference.MaxChars <= 0 {
		c.Reference.MaxChars = 2000
	}
	if c.Reference.Timeout <= 0 {
		c.Reference.Timeout = 30 * time.Second
	}
	if c.Auth.JWTIssuer == "" {
		c.Auth.JWTIssuer = "autoblog"
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 7 * 24 * time.Hour
	}
	if c.Auth.LoginSuccessURL == "" {
		c.Auth.LoginSuccessURL = "/admin"
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if b, err := strconv.ParseBool(v); err == nil {
		*dst = b
	}
}

func setInt(dst *int, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func GetBasePath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		cfgPath := filepath.Join(dir, CONFIG_FILE)
		if info, err := os.Stat(cfgPath); err == nil && !info.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
