package mail

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/config"
)

// New selects the mailer named by cfg.Driver.
func New(cfg config.MailConfig, logger *zap.Logger) (Mailer, error) {
	switch cfg.Driver {
	case "log", "":
		return NewLogMailer(logger), nil
	case "smtp":
		m, err := NewSMTPMailer(SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.From,
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	case "amqp":
		return NewAMQPMailer(AMQPConfig{
			URL:        cfg.AMQPURL,
			Exchange:   cfg.AMQPExchange,
			RoutingKey: cfg.AMQPRoutingKey,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported mail driver %q", cfg.Driver)
	}
}
