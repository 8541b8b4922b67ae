package core

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string
		Address         string
		DebugHost       string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
	}

	ClientConfig struct {
		Timeout time.Duration
	}

	SessionConfig struct {
		CookieName   string
		CookieSecure bool
		TTL          time.Duration
	}

	// BackendConfig is one of the interchangeable school-records REST backends.
	BackendConfig struct {
		Name  string // route prefix, eg. "express"
		Label string // eg. "Express"
		URL   string // backend root, eg. "http://localhost:3000"
	}

	Config struct {
		Env          string
		Debug        bool
		TestMode     bool
		AppName      string
		Build        string
		SecretKey    string
		RollbarToken string
		Server       ServerConfig
		Client       ClientConfig
		Session      SessionConfig
		Backends     []BackendConfig
	}
)

// devSecretKey signs sessions in DEV and TEST when no secret key is set.
const devSecretKey = "schoolboard-dev-only-secret"

var errNoSecretKey = errors.New("secretKey must be set outside of debug mode")

var backendLabels = map[string]string{
	"express": "Express",
	"node":    "Node",
}

// NewConfig loads the configuration from the environment (and `config/.env.<env>` if it exists).
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Schoolboard")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 10*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("client.timeout", 10*time.Second)
	v.SetDefault("session.cookieName", "schoolboard_session")
	v.SetDefault("session.cookieSecure", false)
	v.SetDefault("session.ttl", 30*time.Minute)
	v.SetDefault("backend.express.url", "http://localhost:3000")
	v.SetDefault("backend.node.url", "http://localhost:3001")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	if wd, err := os.Getwd(); err == nil {
		dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:          env,
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		AppName:      v.GetString("appName"),
		Build:        v.GetString("build"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Address:         v.GetString("server.address"),
			DebugHost:       v.GetString("server.debugHost"),
			ReadTimeout:     v.GetDuration("server.readTimeout"),
			WriteTimeout:    v.GetDuration("server.writeTimeout"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
		},
		Client: ClientConfig{
			Timeout: v.GetDuration("client.timeout"),
		},
		Session: SessionConfig{
			CookieName:   v.GetString("session.cookieName"),
			CookieSecure: v.GetBool("session.cookieSecure"),
			TTL:          v.GetDuration("session.ttl"),
		},
	}
	if conf.SecretKey == "" && (conf.Debug || conf.TestMode) {
		conf.SecretKey = devSecretKey
	}
	for name := range backendLabels {
		if url := v.GetString("backend." + name + ".url"); url != "" {
			conf.Backends = append(conf.Backends, BackendConfig{Name: name, Label: backendLabels[name], URL: url})
		}
	}
	sort.Slice(conf.Backends, func(i, j int) bool { return conf.Backends[i].Name < conf.Backends[j].Name })
	return conf
}

// Backend returns the backend registered under `name`.
func (c *Config) Backend(name string) (BackendConfig, bool) {
	for _, b := range c.Backends {
		if b.Name == name {
			return b, true
		}
	}
	return BackendConfig{}, false
}

// RequireSecretKey fails unless sessions are signed with a configured key.
// The development key is only accepted in debug or test mode.
func (c *Config) RequireSecretKey() error {
	if c.Debug || c.TestMode {
		return nil
	}
	if c.SecretKey == "" || c.SecretKey == devSecretKey {
		return errors.Wrapf(errNoSecretKey, "%s_SECRETKEY", c.Env)
	}
	return nil
}
