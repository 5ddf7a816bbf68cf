package config

import (
	"fmt"
	"time"

	"github.com/bigredeye/catalystx/pkg/conf"
	"github.com/pkg/errors"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	LimiterMemory = "memory"
	LimiterRedis  = "redis"
)

type Config struct {
	Endpoints struct {
		HostName string
		Home     string
		Login    string
	}

	Server struct {
		ListenAddress  string
		// TrustedProxies may set X-Forwarded-For. Empty means the client address is the peer address.
		TrustedProxies []string
		Cookies        struct {
			AuthenticationKey string
			EncryptionKey     string
			Secure            bool
		}
	}

	DataBase struct {
		Driver string
		Host   string
		Port   uint16
		User   string
		Pass   string
		Name   string
		// Path is used by the sqlite driver only.
		Path           string
		ConnectTimeout time.Duration
	}

	Mail struct {
		Host               string
		Port               int
		User               string
		Pass               string
		TLSMode            string
		InsecureSkipVerify bool
		LogoDir            string
	}

	OTP struct {
		TTL           time.Duration
		MaxAttempts   int
		SweepInterval time.Duration
	}

	RateLimit struct {
		Driver    string
		RedisAddr string
		RedisDB   int
		Max       int
		Window    time.Duration
	}

	CV struct {
		MaxSize  string
		CacheTTL time.Duration
		Timeout  time.Duration
		// AllowPrivate lets CV links point at loopback and private networks.
		AllowPrivate bool
	}

	Log struct {
		Production bool
		File       string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
	}
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"endpoints.home":          "/",
		"endpoints.login":         "/login",
		"server.listenaddress":    ":8080",
		"server.cookies.secure":   true,
		"server.trustedproxies":   []string{},
		"database.driver":         DriverPostgres,
		"database.port":           5432,
		"database.connecttimeout": time.Minute,
		"mail.host":               "smtpout.secureserver.net",
		"mail.port":               465,
		"mail.tlsmode":            "ssl",
		"mail.logodir":            "public",
		"otp.ttl":                 10 * time.Minute,
		"otp.maxattempts":         5,
		"otp.sweepinterval":       time.Minute,
		"ratelimit.driver":        LimiterMemory,
		"ratelimit.max":           20,
		"ratelimit.window":        time.Minute,
		"cv.maxsize":              "10MiB",
		"cv.cachettl":             15 * time.Minute,
		"cv.timeout":              10 * time.Second,
		"cv.allowprivate":         false,
		"log.maxsizemb":           100,
		"log.maxbackups":          5,
		"log.maxagedays":          14,
	}
}

func (c *Config) DSN() string {
	switch c.DataBase.Driver {
	case DriverSQLite:
		return c.DataBase.Path
	default:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.DataBase.Host, c.DataBase.Port, c.DataBase.User, c.DataBase.Pass, c.DataBase.Name)
	}
}

func ParseConfig(path string) (*Config, error) {
	config := &Config{}
	err := conf.ParseConfig(config,
		conf.EnvPrefix("CCX"),
		conf.ConfigFile(path),
		conf.Defaults(defaults()),
		conf.EnvAliases(map[string][]string{
			"mail.user": {"EMAIL_USER"},
			"mail.pass": {"EMAIL_PASS"},
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to parse config")
	}
	return config, nil
}
