package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug        bool
		TestMode     bool
		AppName      string
		Build        string
		Env          string
		SecretKey    string
		RollbarToken string

		Server struct {
			Host               string
			Address            string
			DebugAddress       string
			ShutdownTimeout    time.Duration
			JWTExpirationDelta time.Duration
		}

		Database struct {
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

		Redis struct {
			URL string
		}

		Uploads struct {
			Dir       string
			URLPrefix string
			MaxSize   string // request body limit of the student API, e.g. "20M"
		}

		Oracle struct {
			URL         string
			APIKey      string
			Model       string
			Temperature float64
			TopP        float64
			Timeout     time.Duration
			PromptsFile string // overrides the embedded prompts when set
		}
	}
)

func (c *Config) IsProd() bool {
	return c.Env == "PROD"
}

// DatabaseAddress returns the "host:port" of the database server.
func (c *Config) DatabaseAddress() string {
	return net.JoinHostPort(c.Database.Host, strconv.Itoa(c.Database.Port))
}

// NewConfig loads the configuration from the environment.
// Variables are prefixed by the value of ENV (DEV by default), e.g. DEV_SECRETKEY.
// A config/.env.<env> file is loaded first when present.
func NewConfig() *Config {
	vpr := viper.New()

	// defaults
	vpr.SetTypeByDefaultValue(true)
	vpr.SetDefault("debug", true)
	vpr.SetDefault("testMode", false)
	vpr.SetDefault("appName", "Kazi")
	vpr.SetDefault("build", "develop")
	vpr.SetDefault("secretKey", "h7q%2zk!w0m3b@r#e8ta)xv-9cgl&dn(pj_4s*yu6+o5f1i")
	vpr.SetDefault("rollbarToken", "")

	vpr.SetDefault("server.host", "localhost")
	vpr.SetDefault("server.address", ":8000")
	vpr.SetDefault("server.debugAddress", ":4000")
	vpr.SetDefault("server.shutdownTimeout", 5*time.Second)
	vpr.SetDefault("server.jwtExpirationDelta", 24*time.Hour)

	vpr.SetDefault("database.engine", "postgres")
	vpr.SetDefault("database.host", "localhost")
	vpr.SetDefault("database.port", 5432)
	vpr.SetDefault("database.name", "kazi")
	vpr.SetDefault("database.user", "kazi")
	vpr.SetDefault("database.password", "kazi")
	vpr.SetDefault("database.adminUser", "")
	vpr.SetDefault("database.adminPassword", "")
	vpr.SetDefault("database.disableTLS", true)

	vpr.SetDefault("redis.url", "")

	vpr.SetDefault("uploads.dir", filepath.Join(Getwd(), "uploads"))
	vpr.SetDefault("uploads.urlPrefix", "/uploads")
	vpr.SetDefault("uploads.maxSize", "20M")

	vpr.SetDefault("oracle.url", "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation")
	vpr.SetDefault("oracle.apiKey", "")
	vpr.SetDefault("oracle.model", "qwen-plus")
	vpr.SetDefault("oracle.temperature", 0.7)
	vpr.SetDefault("oracle.topP", 0.9)
	vpr.SetDefault("oracle.timeout", 60*time.Second)
	vpr.SetDefault("oracle.promptsFile", "")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		vpr.SetDefault("testMode", true)
	}
	vpr.SetEnvPrefix(env)
	vpr.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	vpr.AutomaticEnv()

	// the grading service key is also read unprefixed, as it is shared with other tools
	if key := os.Getenv("QIANWEN_API_KEY"); key != "" && vpr.GetString("oracle.apiKey") == "" {
		vpr.Set("oracle.apiKey", key)
	}

	conf := new(Config)
	conf.Debug = vpr.GetBool("debug")
	conf.TestMode = vpr.GetBool("testMode")
	conf.AppName = vpr.GetString("appName")
	conf.Build = vpr.GetString("build")
	conf.Env = env
	conf.SecretKey = vpr.GetString("secretKey")
	conf.RollbarToken = vpr.GetString("rollbarToken")

	conf.Server.Host = vpr.GetString("server.host")
	conf.Server.Address = vpr.GetString("server.address")
	conf.Server.DebugAddress = vpr.GetString("server.debugAddress")
	conf.Server.ShutdownTimeout = vpr.GetDuration("server.shutdownTimeout")
	conf.Server.JWTExpirationDelta = vpr.GetDuration("server.jwtExpirationDelta")

	conf.Database.Engine = vpr.GetString("database.engine")
	conf.Database.Host = vpr.GetString("database.host")
	conf.Database.Port = vpr.GetInt("database.port")
	conf.Database.Name = vpr.GetString("database.name")
	conf.Database.User = vpr.GetString("database.user")
	conf.Database.Password = vpr.GetString("database.password")
	conf.Database.AdminUser = vpr.GetString("database.adminUser")
	conf.Database.AdminPassword = vpr.GetString("database.adminPassword")
	conf.Database.DisableTLS = vpr.GetBool("database.disableTLS")

	conf.Redis.URL = vpr.GetString("redis.url")

	conf.Uploads.Dir = vpr.GetString("uploads.dir")
	conf.Uploads.URLPrefix = vpr.GetString("uploads.urlPrefix")
	conf.Uploads.MaxSize = vpr.GetString("uploads.maxSize")

	conf.Oracle.URL = vpr.GetString("oracle.url")
	conf.Oracle.APIKey = vpr.GetString("oracle.apiKey")
	conf.Oracle.Model = vpr.GetString("oracle.model")
	conf.Oracle.Temperature = vpr.GetFloat64("oracle.temperature")
	conf.Oracle.TopP = vpr.GetFloat64("oracle.topP")
	conf.Oracle.Timeout = vpr.GetDuration("oracle.timeout")
	conf.Oracle.PromptsFile = vpr.GetString("oracle.promptsFile")

	return conf
}
