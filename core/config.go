package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName          string
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		RollbarToken     string
		SendgridApiKey   string

		Server   ServerConfig
		Database DatabaseConfig
		LLM      LLMConfig
		Worker   WorkerConfig
	}

	ServerConfig struct {
		Host               string
		Address            string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	LLMConfig struct {
		Provider    string // openai | anthropic | gemini | mock
		APIKey      string
		Model       string
		BaseURL     string
		Timeout     time.Duration
		MaxAttempts int
	}

	WorkerConfig struct {
		ReconcileSpec string // cron spec
		ExpirySpec    string // cron spec
		BatchSize     int
		Workers       int
		RetryBackoff  time.Duration
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// NewConfig reads the app configuration from the environment (and an optional `config/.env.<env>` file).
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)

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

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("appName", "Kipimo")
	v.SetDefault("build", "dev")
	v.SetDefault("debug", env == "DEV" || env == "TEST")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromName", "Kipimo")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server_host", "localhost")
	v.SetDefault("server_address", ":8000")
	v.SetDefault("server_debugHost", ":4000")
	v.SetDefault("server_shutdownTimeout", 5*time.Second)
	v.SetDefault("server_jwtExpirationDelta", 7*24*time.Hour)

	v.SetDefault("database_engine", "postgres")
	v.SetDefault("database_host", "localhost")
	v.SetDefault("database_port", "5432")
	v.SetDefault("database_name", "kipimo")
	v.SetDefault("database_user", "kipimo")
	v.SetDefault("database_password", "kipimo")
	v.SetDefault("database_adminUser", "postgres")
	v.SetDefault("database_adminPassword", "")
	v.SetDefault("database_disableTLS", env == "DEV" || env == "TEST")

	v.SetDefault("llm_provider", "mock")
	v.SetDefault("llm_apiKey", "")
	v.SetDefault("llm_model", "")
	v.SetDefault("llm_baseURL", "")
	v.SetDefault("llm_timeout", 30*time.Second)
	v.SetDefault("llm_maxAttempts", 3)

	v.SetDefault("worker_reconcileSpec", "@every 1m")
	v.SetDefault("worker_expirySpec", "@every 30s")
	v.SetDefault("worker_batchSize", 100)
	v.SetDefault("worker_workers", 4)
	v.SetDefault("worker_retryBackoff", 30*time.Second)

	v.AutomaticEnv()

	return &Config{
		AppName:          v.GetString("appName"),
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		DefaultFromEmail: mail.Address{Name: v.GetString("defaultFromName"), Address: v.GetString("defaultFromEmail")},
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		Server: ServerConfig{
			Host:               v.GetString("server_host"),
			Address:            v.GetString("server_address"),
			DebugHost:          v.GetString("server_debugHost"),
			ShutdownTimeout:    v.GetDuration("server_shutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("server_jwtExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database_engine"),
			Host:          v.GetString("database_host"),
			Port:          v.GetString("database_port"),
			Name:          v.GetString("database_name"),
			User:          v.GetString("database_user"),
			Password:      v.GetString("database_password"),
			AdminUser:     v.GetString("database_adminUser"),
			AdminPassword: v.GetString("database_adminPassword"),
			DisableTLS:    v.GetBool("database_disableTLS"),
		},
		LLM: LLMConfig{
			Provider:    v.GetString("llm_provider"),
			APIKey:      v.GetString("llm_apiKey"),
			Model:       v.GetString("llm_model"),
			BaseURL:     v.GetString("llm_baseURL"),
			Timeout:     v.GetDuration("llm_timeout"),
			MaxAttempts: v.GetInt("llm_maxAttempts"),
		},
		Worker: WorkerConfig{
			ReconcileSpec: v.GetString("worker_reconcileSpec"),
			ExpirySpec:    v.GetString("worker_expirySpec"),
			BatchSize:     v.GetInt("worker_batchSize"),
			Workers:       v.GetInt("worker_workers"),
			RetryBackoff:  v.GetDuration("worker_retryBackoff"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests.
func NewTestConfig() *Config {
	return &Config{
		AppName:          "Kipimo",
		Env:              "TEST",
		Build:            "test",
		Debug:            true,
		TestMode:         true,
		SecretKey:        "test-secret",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Name: "Kipimo", Address: "noreply@localhost"},
		Server: ServerConfig{
			Host:               "localhost",
			Address:            ":0",
			ShutdownTimeout:    time.Second,
			JWTExpirationDelta: time.Hour,
		},
		LLM: LLMConfig{Provider: "mock", Timeout: time.Second, MaxAttempts: 1},
		Worker: WorkerConfig{
			ReconcileSpec: "@every 1m",
			ExpirySpec:    "@every 30s",
			BatchSize:     100,
			Workers:       2,
		},
	}
}
