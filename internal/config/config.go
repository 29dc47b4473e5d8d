package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	BucketImages  string
	BucketAvatars string
	UseSSL        bool
	Region        string
	PublicBaseURL string
}

type SecurityConfig struct {
	JWTSecret            string
	JWTTTL               time.Duration
	SessionTTL           time.Duration
	CSRFSecret           string
	LockoutThreshold     int
	LockoutDuration      time.Duration
	PasswordHistoryDepth int
	BackupCodeCount      int
	MFAIssuer            string
	MFACodeTTL           time.Duration
}

type CaptchaConfig struct {
	Secret    string
	VerifyURL string
}

type PaymentConfig struct {
	MerchantCode string
	SecretKey    string
	GatewayURL   string
	SuccessURL   string
	FailureURL   string
}

type RateLimitConfig struct {
	Window      time.Duration
	MaxGeneral  int
	MaxAuth     int
	MaxCheckout int
}

type MailConfig struct {
	Stream string
	From   string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Captcha          CaptchaConfig
	Payment          PaymentConfig
	RateLimit        RateLimitConfig
	Mail             MailConfig
	LogRetention     time.Duration
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("STEPSTUNNER")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.bucketimages", "stepstunner-products")
	v.SetDefault("storage.bucketavatars", "stepstunner-avatars")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.jwtttl", "24h")
	v.SetDefault("security.sessionttl", "168h") // 7 days
	v.SetDefault("security.lockoutthreshold", 5)
	v.SetDefault("security.lockoutduration", "15m")
	v.SetDefault("security.passwordhistorydepth", 5)
	v.SetDefault("security.backupcodecount", 8)
	v.SetDefault("security.mfaissuer", "StepStunner")
	v.SetDefault("security.mfacodettl", "10m")

	v.SetDefault("captcha.verifyurl", "https://www.google.com/recaptcha/api/siteverify")

	v.SetDefault("payment.gatewayurl", "https://rc-epay.esewa.com.np/api/epay/main/v2/form")

	v.SetDefault("ratelimit.window", "2m")
	v.SetDefault("ratelimit.maxgeneral", 120)
	v.SetDefault("ratelimit.maxauth", 10)
	v.SetDefault("ratelimit.maxcheckout", 20)

	v.SetDefault("mail.stream", "stepstunner:mail")
	v.SetDefault("mail.from", "no-reply@stepstunner.example")

	v.SetDefault("logretention", "2160h") // 90 days
}
