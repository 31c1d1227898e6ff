package config

import (
	"errors"
	"strings"
	"time"

	"bestpay-client/internal/bestpay"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type BestpayConfig struct {
	MerchantID   string
	Key          string
	MerchantPwd  string
	BarcodeURL   string
	QueryURL     string
	RefundURL    string
	ReverseURL   string
	Timeout      time.Duration
	UpperCaseMAC bool
}

type Config struct {
	AppEnv     string
	AppPort    string
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	JWTSecret  string
	Bestpay    BestpayConfig
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	return &Config{
		AppEnv:     v.GetString("APP_ENV"),
		AppPort:    v.GetString("APP_PORT"),
		DBHost:     v.GetString("DB_HOST"),
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBName:     v.GetString("DB_NAME"),
		DBPort:     v.GetString("DB_PORT"),
		JWTSecret:  v.GetString("JWT_SECRET"),
		Bestpay: BestpayConfig{
			MerchantID:   v.GetString("BESTPAY_MERCHANT_ID"),
			Key:          v.GetString("BESTPAY_KEY"),
			MerchantPwd:  v.GetString("BESTPAY_MERCHANT_PWD"),
			BarcodeURL:   v.GetString("BESTPAY_BARCODE_URL"),
			QueryURL:     v.GetString("BESTPAY_QUERY_URL"),
			RefundURL:    v.GetString("BESTPAY_REFUND_URL"),
			ReverseURL:   v.GetString("BESTPAY_REVERSE_URL"),
			Timeout:      v.GetDuration("BESTPAY_TIMEOUT"),
			UpperCaseMAC: v.GetBool("BESTPAY_UPPERCASE_MAC"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	def := bestpay.DefaultEndpoints()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("BESTPAY_BARCODE_URL", def.Barcode)
	v.SetDefault("BESTPAY_QUERY_URL", def.Query)
	v.SetDefault("BESTPAY_REFUND_URL", def.Refund)
	v.SetDefault("BESTPAY_REVERSE_URL", def.Reverse)
	v.SetDefault("BESTPAY_TIMEOUT", 15*time.Second)
	v.SetDefault("BESTPAY_UPPERCASE_MAC", false)
}

// Validate reports the settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Bestpay.MerchantID == "" {
		errs = append(errs, errors.New("BESTPAY_MERCHANT_ID is required"))
	}
	if c.Bestpay.Key == "" {
		errs = append(errs, errors.New("BESTPAY_KEY is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Bestpay.Timeout <= 0 {
		errs = append(errs, errors.New("BESTPAY_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) Endpoints() bestpay.Endpoints {
	return bestpay.Endpoints{
		Barcode: c.Bestpay.BarcodeURL,
		Query:   c.Bestpay.QueryURL,
		Refund:  c.Bestpay.RefundURL,
		Reverse: c.Bestpay.ReverseURL,
	}
}

// AuditEnabled reports whether a database is configured for the exchange trail.
func (c *Config) AuditEnabled() bool {
	return c.DBHost != ""
}
