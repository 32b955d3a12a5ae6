package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"sjsage522/productbot/pkg/errors"
)

func TestLoadConfig(t *testing.T) {
	// Test with default values
	config := LoadConfig()
	assert.Equal(t, DefaultProductURL, config.Scrape.ProductURL)
	assert.Equal(t, "amazon_product_data.csv", config.Scrape.OutputFile)
	assert.Equal(t, 5, config.Scrape.MaxRetries)
	assert.Equal(t, 2.0, config.Scrape.BackoffBase)
	assert.Equal(t, 10*time.Second, config.Scrape.RequestTimeout)
	assert.Equal(t, "", config.Scrape.MemcacheAddr)
	assert.Equal(t, "https://stackoverflow.com/users/login", config.Login.LoginURL)
	assert.Equal(t, "#login-form", config.Login.FormSelector)
	assert.Equal(t, 10*time.Second, config.Login.WaitTimeout)
	assert.Equal(t, 5*time.Second, config.Login.SettleDelay)
	assert.Equal(t, "chromedp", config.Login.Driver)
	assert.True(t, config.Login.Headless)

	// Test with environment variables
	t.Setenv("PRODUCT_URL", "https://example.com/product/1")
	t.Setenv("OUTPUT_FILE", "out.xlsx")
	t.Setenv("MAX_RETRIES", "3")
	t.Setenv("BACKOFF_BASE", "1.5")
	t.Setenv("MEMCACHE_ADDR", "memcache.example.com:11211")
	t.Setenv("BROWSER_DRIVER", "ROD")
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("WAIT_TIMEOUT_SECONDS", "30")
	t.Setenv("USERNAME", "alice@example.com")
	t.Setenv("PASSWORD", "hunter2")

	config = LoadConfig()
	assert.Equal(t, "https://example.com/product/1", config.Scrape.ProductURL)
	assert.Equal(t, "out.xlsx", config.Scrape.OutputFile)
	assert.Equal(t, 3, config.Scrape.MaxRetries)
	assert.Equal(t, 1.5, config.Scrape.BackoffBase)
	assert.Equal(t, "memcache.example.com:11211", config.Scrape.MemcacheAddr)
	assert.Equal(t, "rod", config.Login.Driver)
	assert.False(t, config.Login.Headless)
	assert.Equal(t, 30*time.Second, config.Login.WaitTimeout)
	assert.Equal(t, "alice@example.com", config.Login.Username)
	assert.Equal(t, "hunter2", config.Login.Password)
}

func TestLoadConfigIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("MAX_RETRIES", "many")
	t.Setenv("BACKOFF_BASE", "two")

	config := LoadConfig()
	assert.Equal(t, 5, config.Scrape.MaxRetries)
	assert.Equal(t, 2.0, config.Scrape.BackoffBase)
}

func TestValidateDefaults(t *testing.T) {
	config := LoadConfig()
	assert.NoError(t, config.ValidateScrape())
	assert.NoError(t, config.ValidateLogin())
}

func TestValidateScrape(t *testing.T) {
	config := LoadConfig()
	config.Scrape.ProductURL = "not a url"
	err := config.ValidateScrape()
	assert.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))

	config = LoadConfig()
	config.Scrape.MaxRetries = 0
	assert.Error(t, config.ValidateScrape())

	config = LoadConfig()
	config.Scrape.BackoffBase = 1
	assert.Error(t, config.ValidateScrape())

	config = LoadConfig()
	config.Scrape.RedisAddr = "localhost:6379"
	config.Scrape.RedisStream = ""
	assert.Error(t, config.ValidateScrape())
}

func TestValidateLogin(t *testing.T) {
	config := LoadConfig()
	config.Login.Driver = "selenium"
	assert.Error(t, config.ValidateLogin())

	config = LoadConfig()
	config.Login.WaitTimeout = 0
	assert.Error(t, config.ValidateLogin())

	config = LoadConfig()
	config.ProxyURL = "::bad"
	assert.Error(t, config.ValidateLogin())

	config = LoadConfig()
	config.ProxyURL = "http://10.0.0.1:3128, socks5://10.0.0.2:1080"
	assert.NoError(t, config.ValidateLogin())
}
