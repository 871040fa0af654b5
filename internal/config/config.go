package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const minSecretLength = 32

type Config struct {
	Server     ServerConfig     `env:",prefix=SERVER_"`
	Postgres   PostgresConfig   `env:",prefix=POSTGRES_"`
	Redis      RedisConfig      `env:",prefix=REDIS_"`
	JWT        JWTConfig        `env:",prefix=JWT_"`
	Mail       MailConfig       `env:",prefix=MAIL_"`
	Cloudinary CloudinaryConfig `env:",prefix=CLOUDINARY_"`
	Security   SecurityConfig   `env:",prefix="`
	CORS       CORSConfig       `env:",prefix=CORS_"`
	Env        string           `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8000"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`

	// TrustedProxies may set X-Forwarded-For; an empty list trusts none
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

type PostgresConfig struct {
	URL          string `env:"URL"`
	Host         string `env:"HOST,default=localhost"`
	Port         string `env:"PORT,default=5432"`
	User         string `env:"USER,default=contacts"`
	Password     string `env:"PASSWORD,default=contacts_password"`
	DBName       string `env:"DB,default=contacts_db"`
	SSLMode      string `env:"SSLMODE,default=disable"`
	MaxOpenConns int    `env:"MAX_OPEN_CONNS,default=20"`
	MaxIdleConns int    `env:"MAX_IDLE_CONNS,default=5"`
	Migrate      bool   `env:"MIGRATE,default=true"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

type JWTConfig struct {
	Secret             string   `env:"SECRET,required"`
	RefreshSecret      string   `env:"REFRESH_SECRET,required"`
	Algorithm          string   `env:"ALGORITHM,default=HS256"`
	AccessTokenExpiry  Duration `env:"ACCESS_TOKEN_EXPIRY,default=3600s"`
	RefreshTokenExpiry Duration `env:"REFRESH_TOKEN_EXPIRY,default=10d"`
	EmailTokenExpiry   Duration `env:"EMAIL_TOKEN_EXPIRY,default=7d"`
}

// MailConfig configures outbound confirmation emails.
// Enabled defaults to on only when ENV=production.
type MailConfig struct {
	Enabled     string `env:"ENABLED"`
	Domain      string `env:"DOMAIN,default=mg.example.com"`
	APIKey      string `env:"API_KEY"`
	APIBase     string `env:"API_BASE,default=https://api.eu.mailgun.net/v3"`
	From        string `env:"FROM,default=no-reply@example.com"`
	FromName    string `env:"FROM_NAME,default=Contacts App"`
	ProductName string `env:"PRODUCT_NAME,default=Contacts App"`
	ProductLink string `env:"PRODUCT_LINK,default=http://localhost:8000/"`
}

type CloudinaryConfig struct {
	CloudName string `env:"NAME,default=cloudinary"`
	APIKey    string `env:"API_KEY"`
	APISecret string `env:"API_SECRET"`
	Folder    string `env:"FOLDER,default=contacts-app"`
}

type SecurityConfig struct {
	BCryptCost          int      `env:"BCRYPT_COST,default=12"`
	MeRateLimitRequests int      `env:"ME_RATE_LIMIT_REQUESTS,default=5"`
	MeRateLimitWindow   Duration `env:"ME_RATE_LIMIT_WINDOW,default=1m"`
	UserCacheTTL        Duration `env:"USER_CACHE_TTL,default=15m"`
	MaxAvatarBytes      int64    `env:"MAX_AVATAR_BYTES,default=5242880"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// MailEnabled reports whether confirmation emails are actually delivered
func (c Config) MailEnabled() bool {
	if enabled, err := strconv.ParseBool(c.Mail.Enabled); err == nil {
		return enabled
	}
	return c.Env == "production"
}

// Load loads configuration from the environment, reading an optional .env file first
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if len(c.JWT.Secret) < minSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters long", minSecretLength)
	}
	if len(c.JWT.RefreshSecret) < minSecretLength {
		return fmt.Errorf("JWT_REFRESH_SECRET must be at least %d characters long", minSecretLength)
	}
	if c.JWT.Secret == c.JWT.RefreshSecret {
		return fmt.Errorf("JWT_REFRESH_SECRET must differ from JWT_SECRET")
	}

	switch c.JWT.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("unsupported JWT_ALGORITHM %q", c.JWT.Algorithm)
	}

	return nil
}
