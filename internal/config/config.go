// Package config reads runtime settings from the environment.
package config

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string

	StoreDriver    string
	MySQLDSN       string
	DBMaxOpenConns int

	RedisAddr string

	KafkaBrokers   []string
	KafkaTopic     string
	OutboxInterval time.Duration
	OutboxBatch    int

	JWTSecret string
	JWTTTL    time.Duration

	TxTimeout       time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string
}

// Load reads a .env file when one is present, then the process environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":3001"),
		GRPCAddr:        getenv("GRPC_ADDR", ":50051"),
		StoreDriver:     strings.ToLower(getenv("STORE_DRIVER", StoreMySQL)),
		MySQLDSN:        mysqlDSN(),
		DBMaxOpenConns:  atoienv("DB_MAX_OPEN_CONNS", 10),
		RedisAddr:       getenv("REDIS_ADDR", ""),
		KafkaBrokers:    splitCSV(getenv("KAFKA_BROKERS", "")),
		KafkaTopic:      getenv("KAFKA_TOPIC", "uniforms.events"),
		OutboxInterval:  durenv("OUTBOX_INTERVAL", time.Second),
		OutboxBatch:     atoienv("OUTBOX_BATCH", 100),
		JWTSecret:       getenv("JWT_SECRET", ""),
		JWTTTL:          durenv("JWT_TTL", time.Hour),
		TxTimeout:       durenv("TX_TIMEOUT", 5*time.Second),
		ShutdownTimeout: durenv("SHUTDOWN_TIMEOUT", 10*time.Second),
		LogLevel:        getenv("LOG_LEVEL", "info"),
	}
}

// mysqlDSN prefers MYSQL_DSN and otherwise assembles one from the DB_* parts.
func mysqlDSN() string {
	if dsn := os.Getenv("MYSQL_DSN"); dsn != "" {
		return dsn
	}
	return DSN(
		getenv("DB_HOST", "localhost"),
		atoienv("DB_PORT", 3306),
		getenv("DB_USER", "root"),
		getenv("DB_PASSWORD", ""),
		getenv("DB_NAME", "uniforms"),
	)
}

// DSN builds a go-sql-driver DSN from discrete connection settings.
func DSN(host string, port int, user, password, database string) string {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	cfg.User = user
	cfg.Passwd = password
	cfg.DBName = database
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durenv(key string, def time.Duration) time.Duration {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
