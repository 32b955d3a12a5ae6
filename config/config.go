package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"sjsage522/productbot/pkg/errors"
)

// DefaultProductURL is the product page scraped when PRODUCT_URL is unset
const DefaultProductURL = "https://www.amazon.in/gp/aw/d/B0CHXDVMVP/?_encoding=UTF8&pd_rd_plhdr=t&aaxitk=a945c770ceff805a4b90ee62cb5ae580&hsa_cr_id=0&qid=1718216860&sr=1-1-e0fa1fdd-d857-4087-adda-5bd576b25987&ref_=sbx_be_s_sparkle_mcd_asin_0_img&pd_rd_w=B1Ucc&content-id=amzn1.sym.df9fe057-524b-4172-ac34-9a1b3c4e647d%3Aamzn1.sym.df9fe057-524b-4172-ac34-9a1b3c4e647d&pf_rd_p=df9fe057-524b-4172-ac34-9a1b3c4e647d&pf_rd_r=1FKYQ0BDZGESTFCDY2GH&pd_rd_wg=MuRbi&pd_rd_r=96796d04-92f5-435e-9006-fe19bb9f0764"

// ScrapeConfig configures the product scraper run
type ScrapeConfig struct {
	ProductURL     string        `validate:"required,url"`
	OutputFile     string        `validate:"required"`
	LogFile        string
	MaxRetries     int           `validate:"min=1,max=20"`
	BackoffBase    float64       `validate:"gt=1"`
	RequestTimeout time.Duration `validate:"gt=0"`

	// Optional rate-limit block backed by memcache
	MemcacheAddr string `validate:"omitempty,hostname_port"`
	CacheKey     string
	BlockTime    time.Duration

	// Optional redis stream publishing
	RedisAddr            string `validate:"omitempty,hostname_port"`
	RedisDB              int    `validate:"min=0"`
	RedisStream          string `validate:"required_with=RedisAddr"`
	RedisStreamCount     int    `validate:"min=1"`
	RedisStreamMaxLength int64  `validate:"min=0"`
}

// LoginConfig configures the browser login automation
type LoginConfig struct {
	LoginURL         string `validate:"required,url"`
	FormSelector     string `validate:"required"`
	UsernameSelector string `validate:"required"`
	PasswordSelector string `validate:"required"`
	FailureMarker    string

	Username string
	Password string

	LogFile     string
	Driver      string        `validate:"oneof=chromedp rod"`
	Headless    bool
	ChromePath  string
	WaitTimeout time.Duration `validate:"gt=0"`
	SettleDelay time.Duration `validate:"min=0"`
	KeepOpen    bool
}

// Config represents the application configuration
type Config struct {
	Scrape ScrapeConfig
	Login  LoginConfig

	// Optional comma-separated proxies. The scraper rotates through them and
	// the browser uses the fastest.
	ProxyURL string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		Scrape: ScrapeConfig{
			ProductURL:           getEnv("PRODUCT_URL", DefaultProductURL),
			OutputFile:           getEnv("OUTPUT_FILE", "amazon_product_data.csv"),
			LogFile:              getEnv("SCRAPE_LOG_FILE", "amazon_scraper.log"),
			MaxRetries:           getEnvInt("MAX_RETRIES", 5),
			BackoffBase:          getEnvFloat("BACKOFF_BASE", 2),
			RequestTimeout:       getEnvSeconds("REQUEST_TIMEOUT_SECONDS", 10),
			MemcacheAddr:         getEnv("MEMCACHE_ADDR", ""),
			CacheKey:             getEnv("CACHE_KEY", "product_rate_limited"),
			BlockTime:            getEnvSeconds("BLOCK_TIME_SECONDS", 500),
			RedisAddr:            getEnv("REDIS_ADDR", ""),
			RedisDB:              getEnvInt("REDIS_DB", 0),
			RedisStream:          getEnv("REDIS_STREAM", "products"),
			RedisStreamCount:     getEnvInt("REDIS_STREAM_COUNT", 1),
			RedisStreamMaxLength: int64(getEnvInt("REDIS_STREAM_MAX_LENGTH", 1000)),
		},
		Login: LoginConfig{
			LoginURL:         getEnv("LOGIN_URL", "https://stackoverflow.com/users/login"),
			FormSelector:     getEnv("LOGIN_FORM_SELECTOR", "#login-form"),
			UsernameSelector: getEnv("LOGIN_USERNAME_SELECTOR", "#email"),
			PasswordSelector: getEnv("LOGIN_PASSWORD_SELECTOR", "#password"),
			FailureMarker:    getEnv("LOGIN_FAILURE_MARKER", ""),
			Username:         os.Getenv("USERNAME"),
			Password:         os.Getenv("PASSWORD"),
			LogFile:          getEnv("LOGIN_LOG_FILE", "automation.log"),
			Driver:           strings.ToLower(getEnv("BROWSER_DRIVER", "chromedp")),
			Headless:         getEnvBool("BROWSER_HEADLESS", true),
			ChromePath:       getEnv("CHROME_PATH", ""),
			WaitTimeout:      getEnvSeconds("WAIT_TIMEOUT_SECONDS", 10),
			SettleDelay:      getEnvSeconds("SETTLE_DELAY_SECONDS", 5),
			KeepOpen:         getEnvBool("KEEP_BROWSER_OPEN", false),
		},
		ProxyURL:    getEnv("PROXY_URL", ""),
		Environment: getEnv("PRODUCTBOT_ENVIRONMENT", "development"),
	}
}

var validate = validator.New()

// ValidateScrape checks the settings used by the scrape program
func (c *Config) ValidateScrape() error {
	if err := validate.Struct(c.Scrape); err != nil {
		return errors.NewConfiguration("invalid scrape configuration", err)
	}
	return c.validateProxy()
}

// ValidateLogin checks the settings used by the login program
func (c *Config) ValidateLogin() error {
	if err := validate.Struct(c.Login); err != nil {
		return errors.NewConfiguration("invalid login configuration", err)
	}
	return c.validateProxy()
}

func (c *Config) validateProxy() error {
	for _, proxy := range strings.Split(c.ProxyURL, ",") {
		if err := validate.Var(strings.TrimSpace(proxy), "omitempty,url"); err != nil {
			return errors.NewConfiguration("invalid PROXY_URL", err)
		}
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvSeconds reads a whole number of seconds
func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvInt(key, defaultSeconds)) * time.Second
}
