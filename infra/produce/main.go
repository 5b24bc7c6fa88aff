package produce

import amqp "github.com/rabbitmq/amqp091-go"

type Produce struct {
	AuditService *AuditService
}

func InitProduce(channel *amqp.Channel) *Produce {
	auditService := InitAuditService(channel)
	if auditService == nil {
		panic("Failed to initialize Audit produce service")
	}

	return &Produce{
		AuditService: auditService,
	}
}
