package jobs

import (
	"context"
	"log"
	"time"

	"unidos-api/services"
)

// EnrollmentSweepJob periodically closes enrollment on published events
// whose deadline has passed.
type EnrollmentSweepJob struct {
	svc    *services.EventService
	ticker *time.Ticker
	done   chan bool
}

func NewEnrollmentSweepJob(svc *services.EventService, interval time.Duration) *EnrollmentSweepJob {
	return &EnrollmentSweepJob{
		svc:    svc,
		ticker: time.NewTicker(interval),
		done:   make(chan bool),
	}
}

// Start begins the sweep loop. The first sweep runs immediately.
func (j *EnrollmentSweepJob) Start() {
	log.Println("Enrollment sweep job started")

	go func() {
		j.sweep()

		for {
			select {
			case <-j.ticker.C:
				j.sweep()
			case <-j.done:
				log.Println("Enrollment sweep job stopped")
				return
			}
		}
	}()
}

// Stop halts the sweep loop.
func (j *EnrollmentSweepJob) Stop() {
	j.ticker.Stop()
	j.done <- true
}

func (j *EnrollmentSweepJob) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	closed, err := j.svc.CloseExpiredEnrollment(ctx)
	if err != nil {
		log.Printf("Error during enrollment sweep: %v", err)
		return
	}
	if closed > 0 {
		log.Printf("Enrollment sweep closed %d event(s)", closed)
	}
}
