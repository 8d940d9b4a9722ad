package boot

import (
	"context"
	"time"
	"tourbook/src/common"
	"tourbook/src/config"
	"tourbook/src/db"
	"tourbook/src/lib"
	awslib "tourbook/src/lib/aws"
	"tourbook/src/lib/mailer"
	"tourbook/src/models"
	"tourbook/src/payments"
	"tourbook/src/repository"
	"tourbook/src/services"

	"gorm.io/gorm"
)

const (
	completionInterval = time.Hour
	kafkaClientID      = "tourbook-api"
)

func InitDb() *gorm.DB {
	conn := db.GetDb()
	if err := models.Migrate(conn); err != nil {
		lib.GetLogger().Fatalf("error migration: %s", err.Error())
	}
	return conn
}

// InitBroker returns the lifecycle event publisher selected by
// EVENTS_BROKER and a func that flushes it. A broker that cannot be reached
// falls back to no-op so the API still serves bookings.
func InitBroker(ctx context.Context) (services.EventPublisher, func()) {
	logger := lib.GetLogger()
	switch config.EventsBroker() {
	case "kafka":
		topic := config.EventsTopic()
		go lib.KafkaCreateTopics(config.KafkaBroker(), topic)
		p, err := lib.NewKafkaPublisher(config.KafkaBroker(), kafkaClientID, topic)
		if err != nil {
			logger.Warnf("kafka publisher unavailable, events disabled: %s", err.Error())
			return lib.NoopPublisher{}, func() {}
		}
		logger.Infof("publishing lifecycle events to kafka topic %s", topic)
		return p, p.Close
	case "sqs":
		client, err := lib.AWSGetSQSClient(ctx)
		if err != nil {
			logger.Warnf("sqs publisher unavailable, events disabled: %s", err.Error())
			return lib.NoopPublisher{}, func() {}
		}
		logger.Infof("publishing lifecycle events to sqs queue %s", config.SQSQueueName())
		return awslib.NewSQSPublisher(client, config.SQSQueueName()), func() {}
	}
	return lib.NoopPublisher{}, func() {}
}

// InitLocker uses redis when REDIS_HOST is set. The in-memory locker only
// coordinates a single instance.
func InitLocker() services.Locker {
	if rdb := lib.GetRedisClient(); rdb != nil {
		return lib.NewRedisLocker(rdb)
	}
	lib.GetLogger().Warn("REDIS_HOST not set, using in-process locks")
	return lib.NewMemoryLocker()
}

func InitNotifier() services.Notifier {
	if config.SMTPHost() == "" {
		return nil
	}
	return mailer.NewMailNotifier(config.MailFrom(), config.AppHost())
}

// InitBookingService builds the service from config. The returned func
// flushes queued lifecycle events and must run before the process exits.
func InitBookingService(ctx context.Context, conn *gorm.DB) (*services.BookingService, func()) {
	publisher, closeBroker := InitBroker(ctx)
	deps := services.Deps{
		Transactor: db.NewTransactor(conn),
		Bookings:   repository.NewBookingRepository(conn),
		Payments:   repository.NewPaymentRepository(conn),
		Tours:      repository.NewTourRepository(conn),
		Gateway:    payments.NewStripeGateway(lib.GetStripeClient(), config.GatewayTimeout()),
		Publisher:  publisher,
		Locker:     InitLocker(),
		Notifier:   InitNotifier(),
		Logger:     lib.GetLogger(),
	}
	svc := services.NewBookingService(deps, services.Options{
		Currency:           config.PaymentCurrency(),
		WebhookSecret:      config.StripeWebhookSecret(),
		CancellationCutoff: config.CancellationCutoff(),
		DatastoreTimeout:   config.DatastoreTimeout(),
	})
	return svc, closeBroker
}

func InitScheduler(completer common.Completer) {
	sched, err := lib.GetScheduler()
	if err != nil {
		lib.GetLogger().Error("An error has occurred. Check logs for info")
		return
	}
	if _, err := common.ScheduleCompletion(completer, completionInterval); err != nil {
		lib.GetLogger().Errorf("Error scheduling job: %s", err.Error())
		return
	}
	lib.GetLogger().Infof("Jobs in queue: %d", len(sched.Jobs()))
	sched.Start()
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		lib.GetLogger().Error("Error retrieving Scheduler. Check logs for info")
		return
	}
	if err := sched.Shutdown(); err != nil {
		lib.GetLogger().Errorf("Error stopping Scheduler: %s", err.Error())
	}
}
