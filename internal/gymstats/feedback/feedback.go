package feedback

import (
	"strconv"
	"sync"

	"github.com/2beens/gymsession/internal/telemetry/metrics"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var (
	_ Sink = (*LogSink)(nil)
	_ Sink = (*MetricsSink)(nil)
	_ Sink = Multi(nil)
	_ Sink = (*Recorder)(nil)
	_ Sink = Nop{}
)

// Sink receives best-effort user feedback signals (haptics on device).
// Implementations must not block.
type Sink interface {
	SetCompleted(sessionID uuid.UUID)
	RestMilestone(sessionID uuid.UUID, secondsRemaining int)
	RestCompleted(sessionID uuid.UUID)
}

type Nop struct{}

func (Nop) SetCompleted(uuid.UUID)       {}
func (Nop) RestMilestone(uuid.UUID, int) {}
func (Nop) RestCompleted(uuid.UUID)      {}

type LogSink struct{}

func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) SetCompleted(sessionID uuid.UUID) {
	log.WithField("session", sessionID).Debugln("set completed")
}

func (s *LogSink) RestMilestone(sessionID uuid.UUID, secondsRemaining int) {
	log.WithField("session", sessionID).Tracef("rest timer: %d seconds left", secondsRemaining)
}

func (s *LogSink) RestCompleted(sessionID uuid.UUID) {
	log.WithField("session", sessionID).Debugln("rest timer completed")
}

type MetricsSink struct {
	metrics *metrics.Manager
}

func NewMetricsSink(metricsManager *metrics.Manager) *MetricsSink {
	return &MetricsSink{
		metrics: metricsManager,
	}
}

func (s *MetricsSink) SetCompleted(uuid.UUID) {
	s.metrics.CounterSetsCompleted.Inc()
}

func (s *MetricsSink) RestMilestone(_ uuid.UUID, secondsRemaining int) {
	s.metrics.CounterRestMilestones.WithLabelValues(strconv.Itoa(secondsRemaining)).Inc()
}

func (s *MetricsSink) RestCompleted(uuid.UUID) {
	s.metrics.CounterRestTimers.WithLabelValues("completed").Inc()
}

// Multi fans a signal out to every sink.
type Multi []Sink

func (m Multi) SetCompleted(sessionID uuid.UUID) {
	for _, s := range m {
		s.SetCompleted(sessionID)
	}
}

func (m Multi) RestMilestone(sessionID uuid.UUID, secondsRemaining int) {
	for _, s := range m {
		s.RestMilestone(sessionID, secondsRemaining)
	}
}

func (m Multi) RestCompleted(sessionID uuid.UUID) {
	for _, s := range m {
		s.RestCompleted(sessionID)
	}
}

type Event struct {
	Kind             string
	SessionID        uuid.UUID
	SecondsRemaining int
}

const (
	KindSetCompleted  = "set_completed"
	KindRestMilestone = "rest_milestone"
	KindRestCompleted = "rest_completed"
)

// Recorder keeps every signal it receives, in order.
type Recorder struct {
	mutex  sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) SetCompleted(sessionID uuid.UUID) {
	r.add(Event{Kind: KindSetCompleted, SessionID: sessionID})
}

func (r *Recorder) RestMilestone(sessionID uuid.UUID, secondsRemaining int) {
	r.add(Event{Kind: KindRestMilestone, SessionID: sessionID, SecondsRemaining: secondsRemaining})
}

func (r *Recorder) RestCompleted(sessionID uuid.UUID) {
	r.add(Event{Kind: KindRestCompleted, SessionID: sessionID})
}

func (r *Recorder) add(e Event) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) Events() []Event {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns the number of recorded events of the given kind.
func (r *Recorder) Count(kind string) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	count := 0
	for _, e := range r.events {
		if e.Kind == kind {
			count++
		}
	}
	return count
}

// Milestones returns the remaining-seconds values of all milestone events.
func (r *Recorder) Milestones() []int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	var out []int
	for _, e := range r.events {
		if e.Kind == KindRestMilestone {
			out = append(out, e.SecondsRemaining)
		}
	}
	return out
}
