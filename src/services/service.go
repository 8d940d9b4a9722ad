package services

import (
	"context"
	"errors"
	"time"
	"tourbook/src/db"
	"tourbook/src/models"
	"tourbook/src/payments"
	"tourbook/src/repository"
	"tourbook/src/types"

	"github.com/sirupsen/logrus"
)

type EventPublisher interface {
	Publish(ctx context.Context, event types.LifecycleEvent, payload types.JSONB) error
}

type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type Notifier interface {
	BookingConfirmed(ctx context.Context, booking *models.Booking) error
	BookingCancelled(ctx context.Context, booking *models.Booking) error
}

type Deps struct {
	Transactor db.Transactor
	Bookings   repository.BookingRepository
	Payments   repository.PaymentRepository
	Tours      repository.TourRepository
	Gateway    payments.Gateway
	Publisher  EventPublisher
	Locker     Locker
	Notifier   Notifier
	Logger     *logrus.Logger
	Now        func() time.Time
}

type Options struct {
	Currency           string
	WebhookSecret      string
	CancellationCutoff time.Duration
	DatastoreTimeout   time.Duration
}

const (
	intentLockTTL   = 30 * time.Second
	refundLockTTL   = time.Minute
	webhookClaimTTL = 24 * time.Hour
	publishTimeout  = 5 * time.Second
)

// BookingService drives the booking and payment lifecycle. Every state
// change of a Booking or a ledger row goes through it.
type BookingService struct {
	tx        db.Transactor
	bookings  repository.BookingRepository
	ledger    repository.PaymentRepository
	tours     repository.TourRepository
	gateway   payments.Gateway
	publisher EventPublisher
	locker    Locker
	notifier  Notifier
	log       *logrus.Logger
	now       func() time.Time
	opts      Options
}

func NewBookingService(deps Deps, opts Options) *BookingService {
	s := &BookingService{
		tx:        deps.Transactor,
		bookings:  deps.Bookings,
		ledger:    deps.Payments,
		tours:     deps.Tours,
		gateway:   deps.Gateway,
		publisher: deps.Publisher,
		locker:    deps.Locker,
		notifier:  deps.Notifier,
		log:       deps.Logger,
		now:       deps.Now,
		opts:      opts,
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.opts.Currency == "" {
		s.opts.Currency = "usd"
	}
	if s.opts.CancellationCutoff == 0 {
		s.opts.CancellationCutoff = 24 * time.Hour
	}
	return s
}

// storeCtx bounds a datastore stage by the configured timeout.
func (s *BookingService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.DatastoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.DatastoreTimeout)
}

// atomic runs fn as one unit of work under the datastore timeout.
func (s *BookingService) atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.tx.WithinTransaction(ctx, fn); err != nil {
		return types.AsAppError(err)
	}
	return nil
}

func lookupErr(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return types.NotFound("%s not found", what)
	}
	return types.Internal("failed to load "+what, err)
}

func storeErr(op string, err error) error {
	return types.Internal("failed to "+op, err)
}

// lock takes key for ttl and returns its release. A held key is
// INVALID_STATE with busy as the message; an unreachable locker is logged
// and the caller proceeds without the lock.
func (s *BookingService) lock(ctx context.Context, key string, ttl time.Duration, busy string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	acquired, err := s.locker.Acquire(ctx, key, ttl)
	switch {
	case err != nil:
		s.log.WithField("lock", key).Warnf("lock unavailable: %s", err.Error())
		return func() {}, nil
	case !acquired:
		return nil, types.InvalidState("%s", busy)
	}
	return func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key); err != nil {
			s.log.WithField("lock", key).Warnf("failed to release lock: %s", err.Error())
		}
	}, nil
}
