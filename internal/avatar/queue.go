package avatar

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"realtyassist/internal/logger"
	"realtyassist/internal/metrics"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close
	ErrQueueClosed = errors.New("avatar queue is closed")
	// ErrQueueFull is returned when the pending buffer has no room
	ErrQueueFull = errors.New("avatar queue is full")
	// ErrEmptyText is returned for blank utterances
	ErrEmptyText = errors.New("nothing to say")
	// ErrUnknownEvent is returned by HandleEvent for unrecognised event types
	ErrUnknownEvent = errors.New("unknown avatar event")
)

// State is the avatar's speaking state
type State string

const (
	StateIdle     State = "idle"
	StateSpeaking State = "speaking"
)

// Events reported by the avatar widget
const (
	EventReady    = "ready"
	EventSpeaking = "speaking"
	EventFinished = "finished"
	EventError    = "error"
)

const defaultCapacity = 16

// Speaker sends utterances to the avatar provider
type Speaker interface {
	Speak(ctx context.Context, text string) error
	Stop(ctx context.Context) error
}

// Options tunes the speaking duration estimate and buffer size. With
// AwaitReady set, nothing is spoken before the provider reports "ready".
type Options struct {
	PerChar     time.Duration
	MinDuration time.Duration
	Capacity    int
	AwaitReady  bool
}

// Status is a snapshot of the queue
type Status struct {
	State   State  `json:"state"`
	Ready   bool   `json:"ready"`
	Pending int    `json:"pending"`
	Current string `json:"current,omitempty"`
}

// Queue serialises utterances to one Speaker. A single consumer goroutine
// takes utterances in order and holds the speaking state until the provider
// reports "finished" or "error", or the estimated duration elapses.
type Queue struct {
	speaker Speaker
	opts    Options
	log     logger.Logger

	pending  chan string
	finished chan struct{}
	readyCh  chan struct{}
	readyOne sync.Once

	mu      sync.Mutex
	state   State
	ready   bool
	current string
	closed  bool

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// NewQueue starts the consumer goroutine
func NewQueue(speaker Speaker, opts Options, log logger.Logger) *Queue {
	if opts.Capacity <= 0 {
		opts.Capacity = defaultCapacity
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		speaker:  speaker,
		opts:     opts,
		log:      log.With(map[string]interface{}{"component": "avatar"}),
		pending:  make(chan string, opts.Capacity),
		finished: make(chan struct{}, 1),
		readyCh:  make(chan struct{}),
		state:    StateIdle,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	if !opts.AwaitReady {
		q.markReady()
	}
	go q.run()
	return q
}

// Enqueue adds text to the end of the queue without blocking
func (q *Queue) Enqueue(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.pending <- text:
		metrics.AvatarQueueDepth.Set(float64(len(q.pending)))
		return nil
	default:
		return ErrQueueFull
	}
}

// HandleEvent applies a provider event. "finished" and "error" end the
// current utterance; events that do not apply to the current state are
// ignored.
func (q *Queue) HandleEvent(eventType, message string) error {
	switch eventType {
	case EventReady:
		q.markReady()
	case EventSpeaking:
		q.mu.Lock()
		if q.current != "" {
			q.state = StateSpeaking
		}
		q.mu.Unlock()
	case EventError:
		q.log.Warn("avatar reported an error", map[string]interface{}{"message": message})
		q.signalFinished()
	case EventFinished:
		q.signalFinished()
	default:
		return ErrUnknownEvent
	}
	return nil
}

// Status returns the current state
func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Status{
		State:   q.state,
		Ready:   q.ready,
		Pending: len(q.pending),
		Current: q.current,
	}
}

// Close stops the consumer, drops pending utterances and stops the provider
// session. It is safe to call more than once.
func (q *Queue) Close(ctx context.Context) error {
	var err error
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()

		q.cancel()
		<-q.done

		metrics.AvatarQueueDepth.Set(0)
		err = q.speaker.Stop(ctx)
	})
	return err
}

// EstimateDuration is how long an utterance is assumed to take when the
// provider does not report completion.
func (q *Queue) EstimateDuration(text string) time.Duration {
	d := q.opts.PerChar * time.Duration(len([]rune(text)))
	if d < q.opts.MinDuration {
		return q.opts.MinDuration
	}
	return d
}

func (q *Queue) markReady() {
	q.mu.Lock()
	q.ready = true
	q.mu.Unlock()
	q.readyOne.Do(func() { close(q.readyCh) })
}

func (q *Queue) signalFinished() {
	q.mu.Lock()
	speaking := q.current != ""
	q.mu.Unlock()
	if !speaking {
		return
	}
	select {
	case q.finished <- struct{}{}:
	default:
	}
}

func (q *Queue) run() {
	defer close(q.done)

	select {
	case <-q.ctx.Done():
		return
	case <-q.readyCh:
	}

	for {
		select {
		case <-q.ctx.Done():
			return
		case text := <-q.pending:
			metrics.AvatarQueueDepth.Set(float64(len(q.pending)))
			q.speak(text)
		}
	}
}

func (q *Queue) speak(text string) {
	// drop a completion signal left over from the previous utterance
	select {
	case <-q.finished:
	default:
	}

	q.setSpeaking(text)
	defer q.setIdle()

	if err := q.speaker.Speak(q.ctx, text); err != nil {
		if q.ctx.Err() == nil {
			q.log.Error("avatar speak failed", map[string]interface{}{"error": err})
		}
		return
	}

	timer := time.NewTimer(q.EstimateDuration(text))
	defer timer.Stop()

	select {
	case <-q.ctx.Done():
	case <-q.finished:
	case <-timer.C:
	}
}

func (q *Queue) setSpeaking(text string) {
	q.mu.Lock()
	q.state = StateSpeaking
	q.current = text
	q.mu.Unlock()
}

func (q *Queue) setIdle() {
	q.mu.Lock()
	q.state = StateIdle
	q.current = ""
	q.mu.Unlock()
}
