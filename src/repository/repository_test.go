package repository

import (
	"context"
	"testing"
	"time"
	"tourbook/src/db"
	"tourbook/src/models"
	"tourbook/src/testutil"
	"tourbook/src/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type RepositorySuite struct {
	suite.Suite
	conn     *gorm.DB
	bookings *GormBookingRepository
	payments *GormPaymentRepository
	tours    *GormTourRepository
	user     *models.User
	tour     *models.Tour
	ctx      context.Context
}

func (s *RepositorySuite) SetupTest() {
	s.conn = testutil.NewTestDB(s.T())
	s.bookings = NewBookingRepository(s.conn)
	s.payments = NewPaymentRepository(s.conn)
	s.tours = NewTourRepository(s.conn)
	s.user = testutil.CreateUser(s.T(), s.conn, types.ROLE_USER)
	s.tour = testutil.CreateTour(s.T(), s.conn)
	s.ctx = context.Background()
}

func (s *RepositorySuite) newBooking(status types.BookingStatus) *models.Booking {
	b := &models.Booking{
		UserID:          s.user.ID,
		TourID:          s.tour.ID,
		BookingDate:     time.Now().UTC(),
		NumberOfPeople:  2,
		TotalAmount:     200,
		PaymentStatus:   types.PAYMENT_PENDING,
		BookingStatus:   status,
		CustomerDetails: testutil.Customer(),
	}
	s.Require().NoError(s.bookings.Create(s.ctx, b))
	return b
}

func (s *RepositorySuite) TestCreateAssignsID() {
	b := s.newBooking(types.BOOKING_PENDING)
	s.NotEqual(uuid.Nil, b.ID)

	found, err := s.bookings.FindByID(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Equal(200.0, found.TotalAmount)
	s.Equal("jane@example.com", found.CustomerDetails.Email)
	s.Require().NotNil(found.Tour)
	s.Equal(s.tour.Title, found.Tour.Title)
	s.Require().NotNil(found.User)
	s.Equal(s.user.Email, found.User.Email)
}

func (s *RepositorySuite) TestFindByIDNotFound() {
	_, err := s.bookings.FindByID(s.ctx, uuid.New())
	s.ErrorIs(err, ErrNotFound)

	_, err = s.bookings.FindByIDForUpdate(s.ctx, uuid.New())
	s.ErrorIs(err, ErrNotFound)

	_, err = s.tours.FindByID(s.ctx, 9999)
	s.ErrorIs(err, ErrNotFound)
}

func (s *RepositorySuite) TestRefundIDIsUnique() {
	b := s.newBooking(types.BOOKING_CONFIRMED)
	refundID := "re_1"
	row := models.Payment{
		BookingID: b.ID, UserID: s.user.ID, Amount: 200, Currency: "USD",
		TransactionType: types.TRANSACTION_REFUND, Status: types.TRANSACTION_SUCCEEDED,
		StripePaymentIntentID: "pi_1", TransactionID: &refundID,
	}
	s.Require().NoError(s.payments.Create(s.ctx, &row))

	found, err := s.payments.FindByTransactionID(s.ctx, "re_1")
	s.Require().NoError(err)
	s.Equal(row.ID, found.ID)

	_, err = s.payments.FindByTransactionID(s.ctx, "re_2")
	s.ErrorIs(err, ErrNotFound)

	again := row
	again.ID = uuid.Nil
	s.Error(s.payments.Create(s.ctx, &again), "a refund id is recorded once")

	refunded, err := s.payments.RefundedAmount(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Equal(200.0, refunded)
}

func (s *RepositorySuite) TestListByUserPaginates() {
	for i := 0; i < 3; i++ {
		s.newBooking(types.BOOKING_PENDING)
	}
	s.newBooking(types.BOOKING_CANCELLED)
	other := testutil.CreateUser(s.T(), s.conn, types.ROLE_USER)
	s.Require().NoError(s.bookings.Create(s.ctx, &models.Booking{
		UserID: other.ID, TourID: s.tour.ID, NumberOfPeople: 1,
		PaymentStatus: types.PAYMENT_PENDING, BookingStatus: types.BOOKING_PENDING,
	}))

	page, total, err := s.bookings.ListByUser(s.ctx, s.user.ID, nil, 1, 2)
	s.Require().NoError(err)
	s.Equal(int64(4), total)
	s.Len(page, 2)

	page, _, err = s.bookings.ListByUser(s.ctx, s.user.ID, nil, 2, 2)
	s.Require().NoError(err)
	s.Len(page, 2)

	cancelled := types.BOOKING_CANCELLED
	page, total, err = s.bookings.ListByUser(s.ctx, s.user.ID, &cancelled, 1, 10)
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Len(page, 1)
	s.Equal(types.BOOKING_CANCELLED, page[0].BookingStatus)
}

func (s *RepositorySuite) TestListCompletable() {
	ended := testutil.CreateTour(s.T(), s.conn, testutil.EndedAgo(time.Hour))
	done := &models.Booking{
		UserID: s.user.ID, TourID: ended.ID, NumberOfPeople: 1,
		PaymentStatus: types.PAYMENT_PAID, BookingStatus: types.BOOKING_CONFIRMED,
	}
	s.Require().NoError(s.bookings.Create(s.ctx, done))
	s.Require().NoError(s.bookings.Create(s.ctx, &models.Booking{
		UserID: s.user.ID, TourID: ended.ID, NumberOfPeople: 1,
		PaymentStatus: types.PAYMENT_PENDING, BookingStatus: types.BOOKING_PENDING,
	}))
	s.newBooking(types.BOOKING_CONFIRMED)

	list, err := s.bookings.ListCompletable(s.ctx, time.Now().UTC())
	s.Require().NoError(err)
	s.Len(list, 1)
	s.Equal(done.ID, list[0].ID)
}

func (s *RepositorySuite) TestLedgerTotals() {
	b := s.newBooking(types.BOOKING_CONFIRMED)
	rows := []models.Payment{
		{BookingID: b.ID, UserID: s.user.ID, Amount: 200, Currency: "USD", TransactionType: types.TRANSACTION_CHARGE, Status: types.TRANSACTION_SUCCEEDED, StripePaymentIntentID: "pi_1"},
		{BookingID: b.ID, UserID: s.user.ID, Amount: 50, Currency: "USD", TransactionType: types.TRANSACTION_PARTIAL_REFUND, Status: types.TRANSACTION_SUCCEEDED, StripePaymentIntentID: "pi_1"},
		{BookingID: b.ID, UserID: s.user.ID, Amount: 150, Currency: "USD", TransactionType: types.TRANSACTION_REFUND, Status: types.TRANSACTION_SUCCEEDED, StripePaymentIntentID: "pi_1"},
	}
	for i := range rows {
		s.Require().NoError(s.payments.Create(s.ctx, &rows[i]))
	}

	refunded, err := s.payments.RefundedAmount(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Equal(200.0, refunded)

	net, err := s.payments.NetAmount(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Equal(0.0, net)

	charge, err := s.payments.FindChargeByIntentID(s.ctx, "pi_1")
	s.Require().NoError(err)
	s.Equal(types.TRANSACTION_CHARGE, charge.TransactionType)
	s.Equal(200.0, charge.Amount)
}

func (s *RepositorySuite) TestUpdateStatusKeepsAmountAndKind() {
	b := s.newBooking(types.BOOKING_PENDING)
	row := models.Payment{
		BookingID: b.ID, UserID: s.user.ID, Amount: 200, Currency: "USD",
		TransactionType: types.TRANSACTION_CHARGE, Status: types.TRANSACTION_PENDING,
		StripePaymentIntentID: "pi_2",
	}
	s.Require().NoError(s.payments.Create(s.ctx, &row))

	chargeID := "ch_2"
	row.Status = types.TRANSACTION_SUCCEEDED
	row.StripeChargeID = &chargeID
	row.Amount = 1
	row.TransactionType = types.TRANSACTION_REFUND
	s.Require().NoError(s.payments.UpdateStatus(s.ctx, &row))

	var stored models.Payment
	s.Require().NoError(s.conn.First(&stored, "id = ?", row.ID).Error)
	s.Equal(types.TRANSACTION_SUCCEEDED, stored.Status)
	s.Equal("ch_2", *stored.StripeChargeID)
	s.Equal(200.0, stored.Amount)
	s.Equal(types.TRANSACTION_CHARGE, stored.TransactionType)
}

func (s *RepositorySuite) TestFindPendingCharge() {
	b := s.newBooking(types.BOOKING_PENDING)
	_, err := s.payments.FindPendingCharge(s.ctx, b.ID)
	s.ErrorIs(err, ErrNotFound)

	row := models.Payment{
		BookingID: b.ID, UserID: s.user.ID, Amount: 200, Currency: "USD",
		TransactionType: types.TRANSACTION_CHARGE, Status: types.TRANSACTION_PENDING,
		StripePaymentIntentID: "pi_3",
	}
	s.Require().NoError(s.payments.Create(s.ctx, &row))

	pending, err := s.payments.FindPendingCharge(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Equal("pi_3", pending.StripePaymentIntentID)
}

func (s *RepositorySuite) TestTransactionRollsBackRepositoryWrites() {
	transactor := db.NewTransactor(s.conn)
	var id uuid.UUID
	err := transactor.WithinTransaction(s.ctx, func(ctx context.Context) error {
		b := &models.Booking{
			UserID: s.user.ID, TourID: s.tour.ID, NumberOfPeople: 1,
			PaymentStatus: types.PAYMENT_PENDING, BookingStatus: types.BOOKING_PENDING,
		}
		if err := s.bookings.Create(ctx, b); err != nil {
			return err
		}
		id = b.ID
		return gorm.ErrInvalidData
	})
	s.ErrorIs(err, gorm.ErrInvalidData)

	_, err = s.bookings.FindByID(s.ctx, id)
	s.ErrorIs(err, ErrNotFound)
}

func (s *RepositorySuite) TestTourCreateSlug() {
	tour := &models.Tour{Title: "Douro Valley Wine Tour", CostFrom: 80, IsActive: true, StartDate: time.Now().UTC().Add(time.Hour)}
	s.Require().NoError(s.tours.Create(s.ctx, tour))
	s.Equal("douro-valley-wine-tour", tour.Slug)
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}
