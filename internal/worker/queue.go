// Package worker provides the in-process job queue that carries the
// application's one-shot background work: document analysis after upload and
// assistant reply generation after a user message.
//
// The queue replaces naive fire-and-forget goroutines with a fixed pool of
// workers, each consuming its own bounded channel (a lane):
//
//   - at-most-once delivery, no return channel to the submitter
//   - a job's key is hashed onto one lane, so jobs sharing a key run on the
//     same worker: serially, and in enqueue order (per-document, per-session
//     ordering); jobs with different keys may run concurrently
//   - each job runs under its own timeout-bounded context, detached from the
//     originating HTTP request, so a hung external call blocks only that job
//   - Stop drains queued jobs before returning
package worker

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Job is a unit of background work. The context passed to Run is detached
// from the submitting request and expires after the queue's job timeout.
type Job struct {
	// Key groups jobs that must not run concurrently. Jobs with equal
	// non-empty keys execute one at a time, in enqueue order.
	Key string
	// Name identifies the job kind in logs ("document.advance", "chat.reply").
	Name string
	// Run performs the work. Errors are handled inside Run; the queue only
	// logs panics.
	Run func(ctx context.Context)
}

// Queue is a bounded in-process work queue. It is safe for concurrent use.
type Queue struct {
	lanes   []chan Job
	timeout time.Duration

	wg   sync.WaitGroup
	once sync.Once
	rr   atomic.Uint64
}

// New builds a Queue with the given number of workers, per-lane capacity, and
// per-job timeout. Values <= 0 are coerced to sane minimums.
func New(workers, capacity int, jobTimeout time.Duration) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if capacity <= 0 {
		capacity = 1
	}
	if jobTimeout <= 0 {
		jobTimeout = 2 * time.Minute
	}
	q := &Queue{
		lanes:   make([]chan Job, workers),
		timeout: jobTimeout,
	}
	for i := range q.lanes {
		q.lanes[i] = make(chan Job, capacity)
		q.wg.Add(1)
		go q.worker(q.lanes[i])
	}
	return q
}

// Enqueue submits a job. It blocks while the job's lane is full, which
// applies backpressure to the HTTP layer instead of growing unbounded.
// Enqueue must not be called after Stop.
func (q *Queue) Enqueue(j Job) {
	if j.Run == nil {
		return
	}
	q.lanes[q.laneFor(j.Key)] <- j
}

// Stop closes the queue and waits for queued and in-flight jobs to finish.
func (q *Queue) Stop() {
	q.once.Do(func() {
		for _, lane := range q.lanes {
			close(lane)
		}
	})
	q.wg.Wait()
}

// laneFor maps a key to its worker lane. Equal keys always land on the same
// lane, which is what makes same-key jobs both exclusive and FIFO: one
// goroutine consumes one channel. Keyless jobs spread round-robin.
func (q *Queue) laneFor(key string) int {
	if key == "" {
		return int(q.rr.Add(1) % uint64(len(q.lanes)))
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(q.lanes)))
}

func (q *Queue) worker(jobs <-chan Job) {
	defer q.wg.Done()
	for j := range jobs {
		q.run(j)
	}
}

func (q *Queue) run(j Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("job", j.Name).Str("key", j.Key).Msg("background job panicked")
		}
	}()
	j.Run(ctx)
}
