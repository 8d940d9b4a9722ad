package boot

import (
	"context"
	"testing"
	"time"
	"tourbook/src/config"
	"tourbook/src/lib"
	"tourbook/src/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitBookingServiceReturnsBrokerCloser(t *testing.T) {
	t.Setenv("API_ENV", "test")
	t.Setenv("EVENTS_BROKER", "none")
	config.Reload()
	defer config.Reload()

	svc, closeBroker := InitBookingService(context.Background(), testutil.NewTestDB(t))

	assert.NotNil(t, svc)
	require.NotNil(t, closeBroker)
	assert.NotPanics(t, closeBroker)
}

func TestInitBrokerClosesKafkaProducer(t *testing.T) {
	t.Setenv("API_ENV", "test")
	t.Setenv("EVENTS_BROKER", "kafka")
	t.Setenv("KAFKA_BROKER", "127.0.0.1:1")
	config.Reload()
	defer config.Reload()

	publisher, closeBroker := InitBroker(context.Background())
	_, ok := publisher.(*lib.KafkaPublisher)
	require.True(t, ok, "expected a kafka publisher, got %T", publisher)

	done := make(chan struct{})
	go func() {
		closeBroker()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("closing the kafka publisher did not return")
	}
}
