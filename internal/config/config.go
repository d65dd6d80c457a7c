package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env           string              `yaml:"env" env:"ENV" env-default:"local"`
	HTTP          HTTPConfig          `yaml:"http"`
	Log           LogConfig           `yaml:"log"`
	Admin         AdminConfig         `yaml:"admin"`
	ObjectStore   ObjectStoreConfig   `yaml:"object_store"`
	DocumentStore DocumentStoreConfig `yaml:"document_store"`
	Redis         RedisConf           `yaml:"redis"`
	Mail          MailConfig          `yaml:"mail"`
	InboundSMTP   InboundSMTPConfig   `yaml:"inbound_smtp"`
	Instagram     InstagramConfig     `yaml:"instagram"`
	Gallery       GalleryConfig       `yaml:"gallery"`
	Reconcile     ReconcileConfig     `yaml:"reconcile"`
}

type HTTPConfig struct {
	Host            string        `yaml:"host" env:"HTTP_HOST"`
	Port            string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	AllowOrigins    []string      `yaml:"allow_origins" env:"HTTP_ALLOW_ORIGINS" env-separator:","`
	BodyLimit       string        `yaml:"body_limit" env-default:"512M"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"10s"`
}

type LogConfig struct {
	File       string `yaml:"file" env:"LOG_FILE"`
	MaxSize    int    `yaml:"max_size" env-default:"100"`
	MaxBackups int    `yaml:"max_backups" env-default:"3"`
	MaxAge     int    `yaml:"max_age" env-default:"28"`
}

type AdminConfig struct {
	Email         string        `yaml:"email" env:"ADMIN_EMAIL" env-required:"true"`
	Password      string        `yaml:"password" env:"ADMIN_PASSWORD"`
	PasswordHash  string        `yaml:"password_hash" env:"ADMIN_PASSWORD_HASH"`
	SessionSecret string        `yaml:"session_secret" env:"SESSION_SECRET" env-required:"true"`
	SessionTTL    time.Duration `yaml:"session_ttl" env-default:"24h"`
	LoginRate     float64       `yaml:"login_rate" env-default:"0.2"`
	LoginBurst    int           `yaml:"login_burst" env-default:"5"`
}

type ObjectStoreConfig struct {
	// local, memory, minio, s3, gcs
	Driver          string        `yaml:"driver" env:"OBJECT_STORE_DRIVER" env-default:"local"`
	BaseDir         string        `yaml:"base_dir" env:"OBJECT_STORE_BASE_DIR" env-default:"./uploads"`
	PublicBaseURL   string        `yaml:"public_base_url" env:"OBJECT_STORE_PUBLIC_URL"`
	Bucket          string        `yaml:"bucket" env:"OBJECT_STORE_BUCKET"`
	Region          string        `yaml:"region" env:"OBJECT_STORE_REGION" env-default:"us-east-1"`
	Endpoint        string        `yaml:"endpoint" env:"OBJECT_STORE_ENDPOINT"`
	AccessKey       string        `yaml:"access_key" env:"OBJECT_STORE_ACCESS_KEY"`
	SecretKey       string        `yaml:"secret_key" env:"OBJECT_STORE_SECRET_KEY"`
	UseSSL          bool          `yaml:"use_ssl" env:"OBJECT_STORE_USE_SSL" env-default:"true"`
	UsePathStyle    bool          `yaml:"use_path_style" env-default:"false"`
	CredentialsFile string        `yaml:"credentials_file" env:"GOOGLE_APPLICATION_CREDENTIALS"`
	PresignTTL      time.Duration `yaml:"presign_ttl" env-default:"1h"`
	CreateBucket    bool          `yaml:"create_bucket" env-default:"false"`
}

type DocumentStoreConfig struct {
	// postgres, mongo, firestore, memory
	Driver          string `yaml:"driver" env:"DOCUMENT_STORE_DRIVER" env-default:"postgres"`
	DSN             string `yaml:"dsn" env:"DOCUMENT_STORE_DSN"`
	Database        string `yaml:"database" env:"DOCUMENT_STORE_DATABASE" env-default:"portfolio"`
	ProjectID       string `yaml:"project_id" env:"FIRESTORE_PROJECT_ID"`
	CredentialsFile string `yaml:"credentials_file" env:"FIRESTORE_CREDENTIALS_FILE"`
}

type RedisConf struct {
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `yaml:"redispassword" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB"`
}

type MailConfig struct {
	// resend, smtp, log
	Driver          string `yaml:"driver" env:"MAIL_DRIVER" env-default:"log"`
	ResendAPIKey    string `yaml:"resend_api_key" env:"RESEND_API_KEY"`
	SMTPAddr        string `yaml:"smtp_addr" env:"MAIL_SMTP_ADDR"`
	SMTPUsername    string `yaml:"smtp_username" env:"MAIL_SMTP_USERNAME"`
	SMTPPassword    string `yaml:"smtp_password" env:"MAIL_SMTP_PASSWORD"`
	Domain          string `yaml:"domain" env:"MAIL_DOMAIN" env-default:"alizidanjr.site"`
	BookingFrom     string `yaml:"booking_from" env-default:"Booking <bookings@alizidanjr.site>"`
	BookingNotifyTo string `yaml:"booking_notify_to" env:"BOOKING_NOTIFICATION_EMAIL" env-default:"alihassancut@gmail.com"`
	ForwardFrom     string `yaml:"forward_from" env-default:"Inbox <inbox@alizidanjr.site>"`
	ForwardTo       string `yaml:"forward_to" env:"INBOX_FORWARD_TO" env-default:"alihassancut@gmail.com"`

	// запросов в секунду с одного IP
	WebhookRateLimit float64 `yaml:"webhook_rate_limit" env-default:"5"`
	BookingRateLimit float64 `yaml:"booking_rate_limit" env-default:"0.05"`
	BookingBurst     int     `yaml:"booking_burst" env-default:"3"`
}

type InboundSMTPConfig struct {
	Enabled         bool          `yaml:"enabled" env:"INBOUND_SMTP_ENABLED" env-default:"false"`
	Addr            string        `yaml:"addr" env:"INBOUND_SMTP_ADDR" env-default:":2525"`
	Domain          string        `yaml:"domain" env-default:"alizidanjr.site"`
	AllowedDomains  []string      `yaml:"allowed_domains" env-separator:","`
	MaxMessageBytes int64         `yaml:"max_message_bytes" env-default:"10485760"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"30s"`
}

type InstagramConfig struct {
	FeedURL  string        `yaml:"feed_url" env:"INSTAGRAM_FEED_URL"`
	CacheTTL time.Duration `yaml:"cache_ttl" env-default:"1h"`
	Timeout  time.Duration `yaml:"timeout" env-default:"10s"`
}

type GalleryConfig struct {
	ScanConcurrency int           `yaml:"scan_concurrency" env-default:"8"`
	RenameTimeout   time.Duration `yaml:"rename_timeout" env-default:"10m"`
}

type ReconcileConfig struct {
	// 0 disables the periodic run
	Interval time.Duration `yaml:"interval" env-default:"1h"`
}

func MustLoad() *Config {
	path := fetchConfigPath()
	if path == "" {
		panic("config path is empty")
	}

	return MustLoadPath(path)
}

func MustLoadPath(configPath string) *Config {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	return &cfg
}

func fetchConfigPath() string {
	var res string

	// --config="path/to/config.yaml"
	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
