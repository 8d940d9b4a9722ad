package common

import (
	"context"
	"time"
	"tourbook/src/lib"
)

const (
	CompletionJobName = "complete-finished-bookings"
	completionTimeout = 5 * time.Minute
)

// Completer moves bookings whose tour has ended to COMPLETED.
type Completer interface {
	CompleteFinishedBookings(ctx context.Context) (int, error)
}

// CompleteFinishedBookings runs one completion sweep. It is the handler of
// the hourly job and of the complete-tours command.
func CompleteFinishedBookings(ctx context.Context, completer Completer) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()
	n, err := completer.CompleteFinishedBookings(ctx)
	if err != nil {
		lib.GetLogger().WithField("job", CompletionJobName).Errorf("completion sweep failed: %s", err.Error())
		return 0, err
	}
	lib.GetLogger().WithField("job", CompletionJobName).Debugf("completion sweep moved %d bookings", n)
	return n, nil
}

// ScheduleCompletion registers the sweep on the shared scheduler.
func ScheduleCompletion(completer Completer, every time.Duration) (string, error) {
	return lib.CreateCronJob(CompletionJobName, every, func() {
		CompleteFinishedBookings(context.Background(), completer)
	})
}
