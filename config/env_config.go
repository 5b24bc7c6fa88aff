package config

import (
	"os"
	"strconv"
	"strings"
)

type EnvConfig struct {
	Postgres struct {
		Host     string
		Database string
		Username string
		Password string
		Port     string
	}
	Redis struct {
		Password string
		Database int
		Host     string
		Port     string
	}
	RabbitMQ struct {
		Host     string
		Port     string
		Username string
		Password string
	}
	S3 struct {
		Endpoint       string
		PublicEndpoint string
		AccessKey      string
		SecretKey      string
		Bucket         string
		UseSSL         bool
	}
	Upload struct {
		MaxBytes       int64
		DeclaredCap    int64
		AllowedMIME    map[string]bool
		VerifySHA256   bool
		KeyPrefix      string
		PresignExpires int // seconds
	}
	Sweeper struct {
		ThresholdMinutes int
		IntervalSeconds  int
	}
	CORS struct {
		AllowDomains string
	}
	Grafana struct {
		OTLPEndpoint string
		ServiceName  string
	}
	Environment struct {
		Mode string
	}
	ListenAddr string
}

// defaultAllowedMIME mirrors the upload policy shipped with the service:
// common image formats plus a small set of document types.
const defaultAllowedMIME = "image/png,image/jpeg,image/webp," +
	"application/pdf,text/plain,application/zip," +
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document," +
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func LoadEnvConfig() *EnvConfig {
	var config EnvConfig

	// Postgres
	config.Postgres.Host = os.Getenv("PGPOOL_HOST")
	config.Postgres.Database = os.Getenv("PGPOOL_DB")
	config.Postgres.Username = os.Getenv("PGPOOL_USER")
	config.Postgres.Password = os.Getenv("PGPOOL_PASSWORD")
	config.Postgres.Port = os.Getenv("PGPOOL_PORT")
	if config.Postgres.Port == "" {
		config.Postgres.Port = "5432"
	}

	// Redis
	config.Redis.Password = os.Getenv("REDIS_PASSWORD")
	config.Redis.Database, _ = strconv.Atoi(os.Getenv("REDIS_DB"))
	config.Redis.Host = os.Getenv("REDIS_HOST")
	config.Redis.Port = os.Getenv("REDIS_PORT")
	if config.Redis.Port == "" {
		config.Redis.Port = "6379"
	}

	// RabbitMQ
	config.RabbitMQ.Host = os.Getenv("RABBITMQ_HOST")
	config.RabbitMQ.Port = os.Getenv("RABBITMQ_PORT")
	if config.RabbitMQ.Port == "" {
		config.RabbitMQ.Port = "5672"
	}
	config.RabbitMQ.Username = os.Getenv("RABBITMQ_USER")
	if config.RabbitMQ.Username == "" {
		config.RabbitMQ.Username = "guest"
	}
	config.RabbitMQ.Password = os.Getenv("RABBITMQ_PASSWORD")
	if config.RabbitMQ.Password == "" {
		config.RabbitMQ.Password = "guest"
	}

	// S3 / MinIO
	config.S3.Endpoint = os.Getenv("S3_ENDPOINT")
	config.S3.PublicEndpoint = os.Getenv("PUBLIC_S3_ENDPOINT")
	if config.S3.PublicEndpoint == "" {
		config.S3.PublicEndpoint = config.S3.Endpoint
	}
	config.S3.AccessKey = os.Getenv("S3_ACCESS_KEY")
	config.S3.SecretKey = os.Getenv("S3_SECRET_KEY")
	config.S3.Bucket = os.Getenv("S3_BUCKET")
	if config.S3.Bucket == "" {
		config.S3.Bucket = "artifacts"
	}
	config.S3.UseSSL = parseBool(os.Getenv("S3_USE_SSL"))

	// Upload policy
	config.Upload.MaxBytes = parseInt64(os.Getenv("UPLOAD_MAX_BYTES"), 20*1024*1024)
	config.Upload.DeclaredCap = 1024 * 1024 * 1024 // hard cap on client-declared size
	config.Upload.AllowedMIME = parseMIMEList(os.Getenv("UPLOAD_ALLOWED_MIME"))
	config.Upload.VerifySHA256 = parseBool(os.Getenv("UPLOAD_VERIFY_SHA256"))
	config.Upload.KeyPrefix = os.Getenv("STORAGE_KEY_PREFIX")
	if config.Upload.KeyPrefix == "" {
		config.Upload.KeyPrefix = "t-default"
	}
	config.Upload.PresignExpires = int(parseInt64(os.Getenv("PRESIGN_EXPIRES_SECONDS"), 900))

	// Sweeper
	config.Sweeper.ThresholdMinutes = int(parseInt64(os.Getenv("CLEANUP_THRESHOLD_MINUTES"), 1440))
	config.Sweeper.IntervalSeconds = int(parseInt64(os.Getenv("CLEANUP_INTERVAL_SECONDS"), 300))

	config.CORS.AllowDomains = os.Getenv("ALLOWED_DOMAINS")
	if config.CORS.AllowDomains == "" {
		config.CORS.AllowDomains = "*"
	}

	// Grafana/OpenTelemetry
	grafanaEndpoint := os.Getenv("GRAFANA_OTLP_ENDPOINT")
	if strings.HasPrefix(grafanaEndpoint, "https://") {
		grafanaEndpoint = strings.TrimPrefix(grafanaEndpoint, "https://")
	} else if strings.HasPrefix(grafanaEndpoint, "http://") {
		grafanaEndpoint = strings.TrimPrefix(grafanaEndpoint, "http://")
	}
	config.Grafana.OTLPEndpoint = grafanaEndpoint
	config.Grafana.ServiceName = os.Getenv("SERVICE_NAME")
	if config.Grafana.ServiceName == "" {
		config.Grafana.ServiceName = "gatebook-file-service"
	}

	config.Environment.Mode = os.Getenv("DEPLOY_ENV")
	if config.Environment.Mode == "" {
		config.Environment.Mode = "development"
	}

	config.ListenAddr = os.Getenv("LISTEN_ADDR")
	if config.ListenAddr == "" {
		config.ListenAddr = ":8080"
	}

	return &config
}

func parseBool(val string) bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func parseInt64(val string, fallback int64) int64 {
	if val == "" {
		return fallback
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func parseMIMEList(val string) map[string]bool {
	if strings.TrimSpace(val) == "" {
		val = defaultAllowedMIME
	}
	allowed := make(map[string]bool)
	for _, m := range strings.Split(val, ",") {
		m = strings.TrimSpace(m)
		if m != "" {
			allowed[m] = true
		}
	}
	return allowed
}
