package core

import (
	"encoding/hex"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env                string
		Debug              bool
		TestMode           bool
		Build              string
		AppName            string
		WorkDir            string
		SecretKey          string
		FavoritesKey       []byte
		DefaultFromEmail   mail.Address
		SubmissionsCCEmail mail.Address
		SendgridAPIKey     string
		RollbarToken       string
		SiteURL            string // this app
		PublicSiteURL      string // legacy public site, used in permalinks
		MediaRoot          string
		MediaURL           string
		LogFile            string

		Server      ServerConfig
		Database    DatabaseConfig
		Week        Week
		Screenshots ScreenshotConfig
		Mailing     MailingConfig
	}

	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		PasswordResetTimeoutDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	ScreenshotConfig struct {
		MaxWidth          int
		MaxHeight         int
		LoadTimeout       time.Duration
		ChromeBin         string
		Workers           int
		WebshrinkerKey    string
		WebshrinkerSecret string
	}

	MailingConfig struct {
		BatchSize     int
		FlushInterval time.Duration
		CleanAge      time.Duration
	}
)

// development keys, refused in PROD
const (
	devSecretKey    = "y7b!t8oe(week)_q2$k0=3xv1c^m@fz9+l#dp4)ugw5j&hr"
	devFavoritesKey = "0f1e2d3c4b5a69788796a5b4c3d2e1f00112233445566778899aabbccddeeff0"
)

var ErrMissingSecret = errors.New("must be set in PROD")

func checkSecrets(env, secretKey, favoritesKey string) error {
	if env != "PROD" {
		return nil
	}
	if secretKey == "" || secretKey == devSecretKey {
		return errors.Wrap(ErrMissingSecret, "SECRET_KEY")
	}
	if favoritesKey == "" || favoritesKey == devFavoritesKey {
		return errors.Wrap(ErrMissingSecret, "FAVORITES_KEY")
	}
	return nil
}

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// NewConfig loads the configuration of the current ENV (DEV, TEST, QA or PROD).
func NewConfig() *Config {
	conf := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	conf.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("DEBUG", env == "DEV")
	conf.SetDefault("BUILD", "dev")
	conf.SetDefault("APP_NAME", "OE Week")
	conf.SetDefault("SECRET_KEY", devSecretKey)
	conf.SetDefault("FAVORITES_KEY", devFavoritesKey)
	conf.SetDefault("DEFAULT_FROM_EMAIL", "OE Week <info@openeducationweek.org>")
	conf.SetDefault("SUBMISSIONS_CC_EMAIL", "openeducationweek@oeglobal.org")
	conf.SetDefault("SENDGRID_API_KEY", "")
	conf.SetDefault("ROLLBAR_TOKEN", "")
	conf.SetDefault("SITE_URL", "http://localhost:8000")
	conf.SetDefault("PUBLIC_SITE_URL", "http://www.openeducationweek.org")
	conf.SetDefault("MEDIA_ROOT", filepath.Join(wd, "media"))
	conf.SetDefault("MEDIA_URL", "/media/")
	conf.SetDefault("LOG_FILE", "")

	conf.SetDefault("SERVER_HOST", "0.0.0.0:8000")
	conf.SetDefault("SERVER_DEBUG_HOST", "0.0.0.0:4000")
	conf.SetDefault("SERVER_SHUTDOWN_TIMEOUT", 5*time.Second)
	conf.SetDefault("SERVER_JWT_EXPIRATION_DELTA", 7*24*time.Hour)
	conf.SetDefault("SERVER_JWT_REFRESH_EXPIRATION_DELTA", 7*24*time.Hour)
	conf.SetDefault("SERVER_PASSWORD_RESET_TIMEOUT_DELTA", 3*24*time.Hour)

	conf.SetDefault("DATABASE_ENGINE", "postgres")
	conf.SetDefault("DATABASE_HOST", "localhost")
	conf.SetDefault("DATABASE_PORT", 5432)
	conf.SetDefault("DATABASE_NAME", "oeweek")
	conf.SetDefault("DATABASE_USER", "oeweek")
	conf.SetDefault("DATABASE_PASSWORD", "")
	conf.SetDefault("DATABASE_ADMIN_USER", "")
	conf.SetDefault("DATABASE_ADMIN_PASSWORD", "")
	conf.SetDefault("DATABASE_DISABLE_TLS", env == "DEV" || env == "TEST")

	conf.SetDefault("WEEK_YEAR", 2023)
	conf.SetDefault("WEEK_START", "2023-03-06T00:00:00Z")
	conf.SetDefault("WEEK_END", "2023-03-10T23:59:59Z")
	conf.SetDefault("WEEK_CFP_OPEN", "2023-01-16T00:00:00Z")
	conf.SetDefault("WEEK_FUTURE_START", "2024-03-04T00:00:00Z")
	conf.SetDefault("WEEK_MAX_FAVORITES", 32)

	conf.SetDefault("SCREENSHOTS_MAX_WIDTH", 2*584)
	conf.SetDefault("SCREENSHOTS_MAX_HEIGHT", 3*584)
	conf.SetDefault("SCREENSHOTS_LOAD_TIMEOUT", 15*time.Second)
	conf.SetDefault("SCREENSHOTS_CHROME_BIN", "")
	conf.SetDefault("SCREENSHOTS_WORKERS", 1)
	conf.SetDefault("SCREENSHOTS_WEBSHRINKER_KEY", "")
	conf.SetDefault("SCREENSHOTS_WEBSHRINKER_SECRET", "")

	conf.SetDefault("MAILING_BATCH_SIZE", 10)
	conf.SetDefault("MAILING_FLUSH_INTERVAL", time.Minute)
	conf.SetDefault("MAILING_CLEAN_AGE", 7*24*time.Hour)

	conf.AutomaticEnv()

	if err := checkSecrets(env, conf.GetString("SECRET_KEY"), conf.GetString("FAVORITES_KEY")); err != nil {
		log.Fatalf("config: %v", err)
	}
	favKey, err := hex.DecodeString(conf.GetString("FAVORITES_KEY"))
	if err != nil {
		log.Fatalf("config.FAVORITES_KEY: %v", err)
	}

	c := &Config{
		Env:                env,
		Debug:              conf.GetBool("DEBUG"),
		TestMode:           env == "TEST",
		Build:              conf.GetString("BUILD"),
		AppName:            conf.GetString("APP_NAME"),
		WorkDir:            wd,
		SecretKey:          conf.GetString("SECRET_KEY"),
		FavoritesKey:       favKey,
		DefaultFromEmail:   mustParseAddress(conf.GetString("DEFAULT_FROM_EMAIL")),
		SubmissionsCCEmail: mustParseAddress(conf.GetString("SUBMISSIONS_CC_EMAIL")),
		SendgridAPIKey:     conf.GetString("SENDGRID_API_KEY"),
		RollbarToken:       conf.GetString("ROLLBAR_TOKEN"),
		SiteURL:            strings.TrimSuffix(conf.GetString("SITE_URL"), "/"),
		PublicSiteURL:      strings.TrimSuffix(conf.GetString("PUBLIC_SITE_URL"), "/"),
		MediaRoot:          conf.GetString("MEDIA_ROOT"),
		MediaURL:           conf.GetString("MEDIA_URL"),
		LogFile:            conf.GetString("LOG_FILE"),
		Server: ServerConfig{
			Host:                      conf.GetString("SERVER_HOST"),
			DebugHost:                 conf.GetString("SERVER_DEBUG_HOST"),
			ShutdownTimeout:           conf.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
			JWTExpirationDelta:        conf.GetDuration("SERVER_JWT_EXPIRATION_DELTA"),
			JWTRefreshExpirationDelta: conf.GetDuration("SERVER_JWT_REFRESH_EXPIRATION_DELTA"),
			PasswordResetTimeoutDelta: conf.GetDuration("SERVER_PASSWORD_RESET_TIMEOUT_DELTA"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("DATABASE_ENGINE"),
			Host:          conf.GetString("DATABASE_HOST"),
			Port:          conf.GetInt("DATABASE_PORT"),
			Name:          conf.GetString("DATABASE_NAME"),
			User:          conf.GetString("DATABASE_USER"),
			Password:      conf.GetString("DATABASE_PASSWORD"),
			AdminUser:     conf.GetString("DATABASE_ADMIN_USER"),
			AdminPassword: conf.GetString("DATABASE_ADMIN_PASSWORD"),
			DisableTLS:    conf.GetBool("DATABASE_DISABLE_TLS"),
		},
		Week: Week{
			Year:         conf.GetInt("WEEK_YEAR"),
			Start:        mustParseTime(conf.GetString("WEEK_START")),
			End:          mustParseTime(conf.GetString("WEEK_END")),
			CFPOpen:      mustParseTime(conf.GetString("WEEK_CFP_OPEN")),
			FutureStart:  mustParseTime(conf.GetString("WEEK_FUTURE_START")),
			MaxFavorites: conf.GetInt("WEEK_MAX_FAVORITES"),
		},
		Screenshots: ScreenshotConfig{
			MaxWidth:          conf.GetInt("SCREENSHOTS_MAX_WIDTH"),
			MaxHeight:         conf.GetInt("SCREENSHOTS_MAX_HEIGHT"),
			LoadTimeout:       conf.GetDuration("SCREENSHOTS_LOAD_TIMEOUT"),
			ChromeBin:         conf.GetString("SCREENSHOTS_CHROME_BIN"),
			Workers:           conf.GetInt("SCREENSHOTS_WORKERS"),
			WebshrinkerKey:    conf.GetString("SCREENSHOTS_WEBSHRINKER_KEY"),
			WebshrinkerSecret: conf.GetString("SCREENSHOTS_WEBSHRINKER_SECRET"),
		},
		Mailing: MailingConfig{
			BatchSize:     conf.GetInt("MAILING_BATCH_SIZE"),
			FlushInterval: conf.GetDuration("MAILING_FLUSH_INTERVAL"),
			CleanAge:      conf.GetDuration("MAILING_CLEAN_AGE"),
		},
	}
	if c.TestMode {
		c.Database.Engine = "sqlite3"
	}
	return c
}

func mustParseAddress(addr string) mail.Address {
	a, err := mail.ParseAddress(addr)
	if err != nil {
		log.Fatalf("config.mail.ParseAddress(%s): %v", addr, err)
	}
	return *a
}

func mustParseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		log.Fatalf("config.time.Parse(%s): %v", value, err)
	}
	return t.UTC()
}
