// Package metrics exposes avatar and speech counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors on a private registry so several
// controllers can coexist in one process (and in tests). A nil *Metrics
// discards everything.
type Metrics struct {
	registry *prometheus.Registry

	EmotionChanges   *prometheus.CounterVec
	GestureTriggers  *prometheus.CounterVec
	GestureCompleted *prometheus.CounterVec
	Utterances       *prometheus.CounterVec
	UtteranceResults *prometheus.CounterVec
	SpeechEvents     *prometheus.CounterVec
	StaleEvents      prometheus.Counter
	IgnoredInputs    *prometheus.CounterVec
	Talking          prometheus.Gauge
	QueueDepth       prometheus.Gauge
	FrameDuration    prometheus.Histogram
	WSClients        prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		EmotionChanges: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutoravatar_emotion_changes_total",
				Help: "Emotion target changes by emotion",
			},
			[]string{"emotion"},
		),
		GestureTriggers: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutoravatar_gesture_triggers_total",
				Help: "Gestures started by name",
			},
			[]string{"gesture"},
		),
		GestureCompleted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutoravatar_gesture_completed_total",
				Help: "Timed gestures that ran to completion",
			},
			[]string{"gesture"},
		),
		Utterances: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutoravatar_utterances_total",
				Help: "Utterances started by mode (self_timed, synth)",
			},
			[]string{"mode"},
		),
		UtteranceResults: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutoravatar_utterance_results_total",
				Help: "Utterance endings by outcome (completed, failed, stopped)",
			},
			[]string{"outcome"},
		),
		SpeechEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutoravatar_speech_events_total",
				Help: "Synthesizer events drained by kind",
			},
			[]string{"kind"},
		),
		StaleEvents: f.NewCounter(
			prometheus.CounterOpts{
				Name: "tutoravatar_speech_stale_events_total",
				Help: "Synthesizer events dropped because their utterance was no longer current",
			},
		),
		IgnoredInputs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutoravatar_ignored_inputs_total",
				Help: "Unknown emotion or gesture names that were ignored",
			},
			[]string{"kind"},
		),
		Talking: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "tutoravatar_talking",
				Help: "1 while the avatar is talking",
			},
		),
		QueueDepth: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "tutoravatar_speech_queue_depth",
				Help: "Speech events drained on the last frame",
			},
		),
		FrameDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tutoravatar_frame_duration_seconds",
				Help:    "Time spent in one animation frame",
				Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.02},
			},
		),
		WSClients: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "tutoravatar_ws_clients",
				Help: "Connected websocket clients",
			},
		),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) EmotionChanged(emotion string) {
	if m != nil {
		m.EmotionChanges.WithLabelValues(emotion).Inc()
	}
}

func (m *Metrics) GestureTriggered(gesture string) {
	if m != nil {
		m.GestureTriggers.WithLabelValues(gesture).Inc()
	}
}

func (m *Metrics) GestureFinished(gesture string) {
	if m != nil {
		m.GestureCompleted.WithLabelValues(gesture).Inc()
	}
}

func (m *Metrics) Ignored(kind string) {
	if m != nil {
		m.IgnoredInputs.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) UtteranceStarted(mode string) {
	if m != nil {
		m.Utterances.WithLabelValues(mode).Inc()
	}
}

func (m *Metrics) UtteranceEnded(outcome string) {
	if m != nil {
		m.UtteranceResults.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) SpeechEvent(kind string) {
	if m != nil {
		m.SpeechEvents.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) StaleEvent() {
	if m != nil {
		m.StaleEvents.Inc()
	}
}

func (m *Metrics) SetTalking(talking bool) {
	if m == nil {
		return
	}
	if talking {
		m.Talking.Set(1)
	} else {
		m.Talking.Set(0)
	}
}

func (m *Metrics) SetQueueDepth(n int) {
	if m != nil {
		m.QueueDepth.Set(float64(n))
	}
}

func (m *Metrics) ObserveFrame(d time.Duration) {
	if m != nil {
		m.FrameDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) ClientConnected() {
	if m != nil {
		m.WSClients.Inc()
	}
}

func (m *Metrics) ClientDisconnected() {
	if m != nil {
		m.WSClients.Dec()
	}
}
