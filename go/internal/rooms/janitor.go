package rooms

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Janitor purges rooms that outlived their inactivity window on a cron
// schedule and reports each purged code so in-memory state can be dropped.
type Janitor struct {
	app      *App
	cron     *cron.Cron
	schedule string
	timeout  time.Duration
	onPurged func(code string)
}

func NewJanitor(app *App, schedule string, onPurged func(code string)) *Janitor {
	if onPurged == nil {
		onPurged = func(string) {}
	}
	return &Janitor{
		app:      app,
		cron:     cron.New(),
		schedule: schedule,
		timeout:  30 * time.Second,
		onPurged: onPurged,
	}
}

// Start registers the purge job and starts the scheduler.
func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, j.run); err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", j.schedule, err)
	}
	j.cron.Start()
	log.Info().Str("schedule", j.schedule).Msg("room janitor started")
	return nil
}

// Stop waits for a running purge to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
	log.Info().Msg("room janitor stopped")
}

// RunOnce purges expired rooms immediately.
func (j *Janitor) RunOnce(ctx context.Context) (int, error) {
	codes, err := j.app.PurgeExpired(ctx)
	if err != nil {
		return 0, err
	}
	for _, code := range codes {
		j.onPurged(code)
	}
	return len(codes), nil
}

func (j *Janitor) run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	if _, err := j.RunOnce(ctx); err != nil {
		log.Error().Err(err).Msg("room purge failed")
	}
}
