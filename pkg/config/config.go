package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App     AppConfig
	DB      DBConfig
	JWT     JWTConfig
	HTTP    HTTPConfig
	SMTP    SMTPConfig
	Billing BillingConfig
	Renewal RenewalConfig
	Queue   QueueConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
	BaseURL  string // enlaces en notificaciones y correos
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int32
	ForceIPv4   bool
	AutoMigrate bool
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SMTPConfig servidor de correo saliente. Host vacío = correo deshabilitado.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// BillingConfig parámetros de facturación y ventanas del motor de renovaciones.
type BillingConfig struct {
	TaxRate              decimal.Decimal
	TicketDueDays        int
	RenewalWindowDays    int
	DedupWindowDays      int
	EscalationWindowDays int
	ExpiringWindowDays   int
}

// RenewalConfig disparo diario del motor dentro del proceso API.
type RenewalConfig struct {
	SchedulerEnabled bool
	RunHour          int // hora local (0-23)
}

// QueueConfig cola de tareas en segundo plano.
type QueueConfig struct {
	Workers     int
	Buffer      int
	MaxAttempts int
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, GST_RATE, SMTP_HOST, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	taxRate, err := getDecimal(v, "GST_RATE", "0.10")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "msp-api"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
			BaseURL:  strings.TrimRight(getString(v, "APP_BASE_URL", "http://localhost:8080"), "/"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "msp"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			MaxConns:    int32(getInt(v, "DB_MAX_CONNS", 25)),
			ForceIPv4:   getBool(v, "DB_FORCE_IPV4", false),
			AutoMigrate: getBool(v, "DB_AUTO_MIGRATE", true),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "msp-api"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		SMTP: SMTPConfig{
			Host:     getString(v, "SMTP_HOST", ""),
			Port:     getInt(v, "SMTP_PORT", 587),
			Username: getString(v, "SMTP_USERNAME", ""),
			Password: getString(v, "SMTP_PASSWORD", ""),
			From:     getString(v, "SMTP_FROM", ""),
			FromName: getString(v, "SMTP_FROM_NAME", "Billing"),
		},
		Billing: BillingConfig{
			TaxRate:              taxRate,
			TicketDueDays:        getInt(v, "TICKET_INVOICE_DUE_DAYS", 14),
			RenewalWindowDays:    getInt(v, "RENEWAL_WINDOW_DAYS", 30),
			DedupWindowDays:      getInt(v, "RENEWAL_DEDUP_DAYS", 45),
			EscalationWindowDays: getInt(v, "ESCALATION_WINDOW_DAYS", 7),
			ExpiringWindowDays:   getInt(v, "EXPIRING_WINDOW_DAYS", 90),
		},
		Renewal: RenewalConfig{
			SchedulerEnabled: getBool(v, "RENEWAL_SCHEDULER_ENABLED", false),
			RunHour:          getInt(v, "RENEWAL_RUN_HOUR", 6),
		},
		Queue: QueueConfig{
			Workers:     getInt(v, "QUEUE_WORKERS", 2),
			Buffer:      getInt(v, "QUEUE_BUFFER", 100),
			MaxAttempts: getInt(v, "QUEUE_MAX_ATTEMPTS", 3),
		},
	}

	if cfg.Renewal.RunHour < 0 || cfg.Renewal.RunHour > 23 {
		return nil, fmt.Errorf("config: RENEWAL_RUN_HOUR fuera de rango: %d", cfg.Renewal.RunHour)
	}
	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if !v.IsSet(key) {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return def
	}
	return b
}

func getDecimal(v *viper.Viper, key, def string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(getString(v, key, def))
	if err != nil {
		return decimal.Zero, fmt.Errorf("config: %s inválido: %w", key, err)
	}
	return d, nil
}
