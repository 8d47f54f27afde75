package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config представляет структуру конфигурации для приложения.
type Config struct {
	App struct {
		Port          string `mapstructure:"port"`
		Env           string `mapstructure:"env"`
		PublicBaseURL string `mapstructure:"publicBaseUrl"`
	} `mapstructure:"app"`
	SumUp struct {
		APIKey       string `mapstructure:"apiKey"`
		MerchantCode string `mapstructure:"merchantCode"`
		BaseURL      string `mapstructure:"baseUrl"`
	} `mapstructure:"sumup"`
	Shopify struct {
		StoreDomain string `mapstructure:"storeDomain"`
		AccessToken string `mapstructure:"accessToken"`
	} `mapstructure:"shopify"`
	Store struct {
		Backend string `mapstructure:"backend"` // memory | redis | postgres
		Redis   struct {
			Addr     string `mapstructure:"addr"`
			Password string `mapstructure:"password"`
			DB       int    `mapstructure:"db"`
		} `mapstructure:"redis"`
		Postgres struct {
			DSN string `mapstructure:"dsn"`
		} `mapstructure:"postgres"`
	} `mapstructure:"store"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
		Topic   string   `mapstructure:"topic"`
	} `mapstructure:"kafka"`
	Polling struct {
		Interval time.Duration `mapstructure:"interval"`
		Timeout  time.Duration `mapstructure:"timeout"`
	} `mapstructure:"polling"`
}

// LoadConfig загружает конфигурацию из файла или переменных окружения.
func LoadConfig(path string) (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		// .env может отсутствовать, это не ошибка
		_ = godotenv.Load(path)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // Чтение переменных окружения

	// Значения по умолчанию (порт и базовый URL опциональны по контракту)
	viper.SetDefault("app.port", "8080")
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.publicBaseUrl", "http://localhost:8080")
	viper.SetDefault("sumup.baseUrl", "https://api.sumup.com")
	viper.SetDefault("store.backend", "memory")
	viper.SetDefault("polling.interval", 2*time.Second)
	viper.SetDefault("polling.timeout", 120*time.Second)

	// Привязка обязательных секретов к переменным окружения
	_ = viper.BindEnv("sumup.apiKey", "SUMUP_API_KEY")
	_ = viper.BindEnv("sumup.merchantCode", "SUMUP_MERCHANT_CODE")
	_ = viper.BindEnv("shopify.storeDomain", "SHOPIFY_STORE_DOMAIN")
	_ = viper.BindEnv("shopify.accessToken", "SHOPIFY_ACCESS_TOKEN")
	_ = viper.BindEnv("app.publicBaseUrl", "PUBLIC_BASE_URL")
	_ = viper.BindEnv("app.port", "PORT")

	if err := viper.ReadInConfig(); err != nil {
		// Файл конфигурации опционален, если все задано через окружение
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate проверяет наличие обязательных параметров конфигурации.
func (c *Config) Validate() error {
	var missing []string

	if c.SumUp.APIKey == "" {
		missing = append(missing, "sumup.apiKey (SUMUP_API_KEY)")
	}
	if c.SumUp.MerchantCode == "" {
		missing = append(missing, "sumup.merchantCode (SUMUP_MERCHANT_CODE)")
	}
	if c.Shopify.StoreDomain == "" {
		missing = append(missing, "shopify.storeDomain (SHOPIFY_STORE_DOMAIN)")
	}
	if c.Shopify.AccessToken == "" {
		missing = append(missing, "shopify.accessToken (SHOPIFY_ACCESS_TOKEN)")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
