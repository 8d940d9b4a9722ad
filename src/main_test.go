package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"tourbook/src/config"
	"tourbook/src/db"
	"tourbook/src/lib"
	"tourbook/src/middlewares"
	"tourbook/src/models"
	"tourbook/src/payments"
	"tourbook/src/repository"
	"tourbook/src/services"
	"tourbook/src/testutil"
	"tourbook/src/types"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

type TestSuite struct {
	suite.Suite
	DB      *gorm.DB
	Gateway *testutil.FakeGateway
	Router  *gin.Engine
	User    *models.User
	Token   string
}

func (s *TestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.T().Setenv("API_ENV", "test")
	s.T().Setenv("JWT_SECRET", "secret")
	s.T().Setenv("MAINTENANCE_MODE", "false")
	config.Reload()
	s.T().Cleanup(config.Reload)

	s.DB = testutil.NewTestDB(s.T())
	db.NewDB(s.DB)
	s.Gateway = testutil.NewFakeGateway()

	svc := services.NewBookingService(services.Deps{
		Transactor: db.NewTransactor(s.DB),
		Bookings:   repository.NewBookingRepository(s.DB),
		Payments:   repository.NewPaymentRepository(s.DB),
		Tours:      repository.NewTourRepository(s.DB),
		Gateway:    s.Gateway,
		Publisher:  lib.NoopPublisher{},
		Locker:     lib.NewMemoryLocker(),
		Logger:     lib.GetLogger(),
	}, services.Options{Currency: "usd", WebhookSecret: "whsec_test"})
	s.Router = newServer(svc)

	s.User = testutil.CreateUser(s.T(), s.DB, types.ROLE_USER)
	s.Token = s.tokenFor(s.User)
}

func (s *TestSuite) tokenFor(user *models.User) string {
	token, err := middlewares.IssueToken(user, time.Hour)
	s.Require().NoError(err)
	return token
}

func (s *TestSuite) request(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func (s *TestSuite) createBooking(tour *models.Tour, people int) string {
	w := s.request(http.MethodPost, "/api/v1/bookings", s.Token, gin.H{
		"tourId":          tour.ID,
		"numberOfPeople":  people,
		"customerDetails": gin.H{"name": "Jane Doe", "email": "jane@example.com", "phone": "+15551234"},
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	return gjson.Get(w.Body.String(), "data.id").String()
}

func (s *TestSuite) TestPingRoute() {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	s.Router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
}

func (s *TestSuite) TestMaintenanceMode() {
	config.Set("MAINTENANCE_MODE", true)

	w := s.request(http.MethodGet, "/api/v1/bookings/my-bookings", s.Token, nil)

	assert.Equal(s.T(), 503, w.Code)
}

func (s *TestSuite) TestRequiresAuthentication() {
	w := s.request(http.MethodGet, "/api/v1/bookings/my-bookings", "", nil)

	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("UNAUTHORIZED", gjson.Get(w.Body.String(), "error.kind").String())
}

func (s *TestSuite) TestBookingAndPaymentFlow() {
	tour := testutil.CreateTour(s.T(), s.DB, testutil.WithCost(100))

	id := s.createBooking(tour, 2)

	w := s.request(http.MethodGet, "/api/v1/bookings/"+id, s.Token, nil)
	s.Equal(http.StatusOK, w.Code)
	body := w.Body.String()
	s.True(gjson.Get(body, "success").Bool())
	s.Equal(200.0, gjson.Get(body, "data.total_amount").Float())
	s.Equal("PENDING", gjson.Get(body, "data.booking_status").String())
	s.Equal(tour.Title, gjson.Get(body, "data.tour.title").String())

	w = s.request(http.MethodPost, "/api/v1/bookings/payment/create-intent", s.Token, gin.H{"bookingId": id})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	intentID := gjson.Get(w.Body.String(), "data.paymentIntentId").String()
	s.NotEmpty(gjson.Get(w.Body.String(), "data.clientSecret").String())
	s.Equal("USD", gjson.Get(w.Body.String(), "data.currency").String())

	s.Gateway.SetStatus(intentID, payments.IntentSucceeded)
	w = s.request(http.MethodPost, "/api/v1/bookings/payment/confirm", s.Token, gin.H{"paymentIntentId": intentID})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal("PAID", gjson.Get(w.Body.String(), "data.booking.payment_status").String())
	s.Equal("CONFIRMED", gjson.Get(w.Body.String(), "data.booking.booking_status").String())

	w = s.request(http.MethodGet, "/api/v1/bookings/"+id+"/payments", s.Token, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(int64(1), gjson.Get(w.Body.String(), "data.#").Int())
	s.Equal("SUCCEEDED", gjson.Get(w.Body.String(), "data.0.status").String())

	w = s.request(http.MethodPut, "/api/v1/bookings/"+id+"/cancel", s.Token, gin.H{"reason": "sick"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal("CANCELLED", gjson.Get(w.Body.String(), "data.booking.booking_status").String())
	s.Equal("REFUNDED", gjson.Get(w.Body.String(), "data.booking.payment_status").String())
	s.Equal("REFUND", gjson.Get(w.Body.String(), "data.refund.transaction_type").String())
	s.False(gjson.Get(w.Body.String(), "data.refund_error").Exists())
}

func (s *TestSuite) TestCreateBookingValidation() {
	w := s.request(http.MethodPost, "/api/v1/bookings", s.Token, gin.H{"tourId": 1, "numberOfPeople": 0})

	s.Equal(http.StatusBadRequest, w.Code)
	s.False(gjson.Get(w.Body.String(), "success").Bool())
	s.Equal("INVALID_STATE", gjson.Get(w.Body.String(), "error.kind").String())
}

func (s *TestSuite) TestUnknownBooking() {
	w := s.request(http.MethodGet, "/api/v1/bookings/7d8f2a4e-6b0a-4c39-9c1e-3d2f1e0a9b77", s.Token, nil)
	s.Equal(http.StatusNotFound, w.Code)

	w = s.request(http.MethodGet, "/api/v1/bookings/not-a-uuid", s.Token, nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *TestSuite) TestMyBookingsPagination() {
	tour := testutil.CreateTour(s.T(), s.DB)
	for i := 0; i < 3; i++ {
		s.createBooking(tour, 1)
	}

	w := s.request(http.MethodGet, "/api/v1/bookings/my-bookings?limit=2&page=2", s.Token, nil)

	s.Equal(http.StatusOK, w.Code)
	body := w.Body.String()
	s.Equal(int64(1), gjson.Get(body, "data.bookings.#").Int())
	s.Equal(int64(3), gjson.Get(body, "data.pagination.total").Int())
	s.Equal(int64(2), gjson.Get(body, "data.pagination.pages").Int())

	w = s.request(http.MethodGet, "/api/v1/bookings/my-bookings?status=BOGUS", s.Token, nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.request(http.MethodGet, "/api/v1/bookings/my-bookings?page=9223372036854775807", s.Token, nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *TestSuite) TestStaffRoutes() {
	guide := testutil.CreateUser(s.T(), s.DB, types.ROLE_GUIDE)
	admin := testutil.CreateUser(s.T(), s.DB, types.ROLE_ADMIN)
	tour := testutil.CreateTour(s.T(), s.DB, testutil.GuidedBy(guide.ID))
	id := s.createBooking(tour, 1)
	tourPath := fmt.Sprintf("/api/v1/bookings/tour/%d/bookings", tour.ID)

	w := s.request(http.MethodGet, tourPath, s.Token, nil)
	s.Equal(http.StatusForbidden, w.Code)

	s.createBooking(tour, 2)
	w = s.request(http.MethodGet, tourPath+"?limit=1&page=2", s.tokenFor(guide), nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(int64(1), gjson.Get(w.Body.String(), "data.bookings.#").Int())
	s.Equal(int64(2), gjson.Get(w.Body.String(), "data.pagination.total").Int())
	s.Equal(int64(2), gjson.Get(w.Body.String(), "data.pagination.pages").Int())

	w = s.request(http.MethodGet, tourPath+"?status=CONFIRMED", s.tokenFor(guide), nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(int64(0), gjson.Get(w.Body.String(), "data.pagination.total").Int())

	w = s.request(http.MethodGet, tourPath+"?status=BOGUS", s.tokenFor(guide), nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.request(http.MethodPut, "/api/v1/bookings/"+id+"/status", s.tokenFor(guide), gin.H{"status": "ARCHIVED"})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.request(http.MethodPut, "/api/v1/bookings/"+id+"/status", s.tokenFor(guide), gin.H{"status": "CONFIRMED"})
	s.Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal("CONFIRMED", gjson.Get(w.Body.String(), "data.booking.booking_status").String())

	w = s.request(http.MethodPost, "/api/v1/bookings/"+id+"/refund", s.tokenFor(guide), nil)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.request(http.MethodPost, "/api/v1/bookings/"+id+"/refund", s.tokenFor(admin), nil)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("INVALID_STATE", gjson.Get(w.Body.String(), "error.kind").String())
}

func (s *TestSuite) TestAdminPartialRefund() {
	admin := testutil.CreateUser(s.T(), s.DB, types.ROLE_ADMIN)
	tour := testutil.CreateTour(s.T(), s.DB, testutil.WithCost(80))
	id := s.createBooking(tour, 1)
	w := s.request(http.MethodPost, "/api/v1/bookings/payment/create-intent", s.Token, gin.H{"bookingId": id})
	intentID := gjson.Get(w.Body.String(), "data.paymentIntentId").String()
	s.Gateway.SetStatus(intentID, payments.IntentSucceeded)
	s.request(http.MethodPost, "/api/v1/bookings/payment/confirm", s.Token, gin.H{"paymentIntentId": intentID})

	w = s.request(http.MethodPost, "/api/v1/bookings/"+id+"/refund", s.tokenFor(admin), gin.H{"amount": 30, "reason": "late pickup"})

	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal("PARTIALLY_REFUNDED", gjson.Get(w.Body.String(), "data.booking.payment_status").String())
	s.Equal(30.0, gjson.Get(w.Body.String(), "data.refund.amount").Float())

	w = s.request(http.MethodPost, "/api/v1/bookings/"+id+"/refund", s.tokenFor(admin), gin.H{"amount": 60})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *TestSuite) TestWebhook() {
	w := s.request(http.MethodPost, "/api/v1/bookings/payment/webhook", "", gin.H{"id": "evt_1"})
	s.Equal(http.StatusBadRequest, w.Code)

	s.Gateway.WebhookEvent = &payments.WebhookEvent{ID: "evt_2", Type: "charge.updated"}
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/bookings/payment/webhook", bytes.NewBufferString(`{"id":"evt_2"}`))
	req.Header.Set("Stripe-Signature", "valid")
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)
	s.Equal(http.StatusOK, rec.Code)
	s.True(gjson.Get(rec.Body.String(), "received").Bool())
}

func (s *TestSuite) TestRetryableGatewayFailure() {
	tour := testutil.CreateTour(s.T(), s.DB)
	id := s.createBooking(tour, 1)
	s.Gateway.CreateErr = types.Retryable("payment gateway unavailable: create payment intent", nil)

	w := s.request(http.MethodPost, "/api/v1/bookings/payment/create-intent", s.Token, gin.H{"bookingId": id})

	s.Equal(http.StatusServiceUnavailable, w.Code)
	s.NotEmpty(w.Header().Get("Retry-After"))
}

func TestRunner(t *testing.T) {
	suite.Run(t, new(TestSuite))
}
