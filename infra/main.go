package infra

import (
	"log"

	"github.com/antartrc-jpg/gatebook/config"
	"github.com/antartrc-jpg/gatebook/infra/produce"
)

type Infra struct {
	Redis    *RedisClient
	Postgres *PostgresClient
	Logger   *LoggerClient
	RabbitMQ *RabbitMQClient
	Produce  *produce.Produce
	Minio    *MinioClient
}

var infraInstance *Infra

func InitInfra(cfg *config.Config) *Infra {
	if infraInstance != nil {
		return infraInstance
	}

	redis := InitRedisClient(cfg.EnvConfig)
	if redis == nil {
		panic("Failed to initialize Redis service")
	}

	postgres := InitPostgresClient(cfg.EnvConfig)
	if postgres == nil {
		panic("Failed to initialize Postgres service")
	}

	logger := InitLoggerClient(cfg.EnvConfig)
	if logger == nil {
		panic("Failed to initialize Logger service")
	}

	minio := InitMinioClient(cfg.EnvConfig)
	if minio == nil {
		panic("Failed to initialize MinIO service")
	}

	// RabbitMQ is optional: audit rows are the source of truth, fan-out is
	// best effort.
	var produceService *produce.Produce
	rabbitMQ, err := InitRabbitMQClient(cfg.EnvConfig)
	if err != nil {
		log.Printf("Warning: RabbitMQ unavailable, audit fan-out disabled: %v", err)
		rabbitMQ = nil
	} else {
		produceService = produce.InitProduce(rabbitMQ.Channel)
	}

	infraInstance = &Infra{
		Redis:    redis,
		Postgres: postgres,
		Logger:   logger,
		RabbitMQ: rabbitMQ,
		Produce:  produceService,
		Minio:    minio,
	}

	return infraInstance
}

func GetClient() *Infra {
	if infraInstance == nil {
		panic("Infra not initialized. Call InitInfra() first.")
	}
	return infraInstance
}
