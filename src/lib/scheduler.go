package lib

import (
	"time"

	"github.com/go-co-op/gocron/v2"
)

var scheduler gocron.Scheduler

func NewScheduler(s gocron.Scheduler) {
	scheduler = s
}

func GetScheduler() (gocron.Scheduler, error) {
	if scheduler != nil {
		return scheduler, nil
	}
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		GetLogger().Errorf("Error initializing Scheduler: %s", err.Error())
		return nil, err
	}
	scheduler = sched
	return sched, nil
}

// CreateCronJob registers handler to run every duration. Overlapping runs
// are skipped.
func CreateCronJob(name string, duration time.Duration, handler any, args ...any) (string, error) {
	sched, err := GetScheduler()
	if err != nil {
		return "", err
	}
	j, err := sched.NewJob(
		gocron.DurationJob(duration),
		gocron.NewTask(handler, args...),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", err
	}
	GetLogger().Infof("Job: %s %s", j.ID().String(), j.Name())
	return j.ID().String(), nil
}
