// Package metrics exports match activity as Prometheus metrics. The collector
// listens on the event bus, so the simulation core never touches Prometheus.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opd-ai/go-carsoccer/pkg/event"
)

const namespace = "carsoccer"

// Collector owns the match metrics and the bus subscriptions feeding them
type Collector struct {
	registry *prometheus.Registry

	frames       prometheus.Counter
	rejected     prometheus.Counter
	goals        *prometheus.CounterVec
	strikes      prometheus.Counter
	strikeSpeed  prometheus.Histogram
	resets       *prometheus.CounterVec
	frameDelta   prometheus.Histogram
	spectators   prometheus.Gauge
	matchRunning prometheus.Gauge

	mu   sync.Mutex
	subs []*event.Subscription
}

// NewCollector creates the metrics in a private registry. The registry also carries
// the Go runtime and process collectors.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Simulated frames.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_rejected_total",
			Help:      "Frames refused because of an invalid delta time.",
		}),
		goals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "goals_total",
			Help:      "Goals scored by goal side.",
		}, []string{"side"}),
		strikes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ball_strikes_total",
			Help:      "Frames in which the car struck the ball.",
		}),
		strikeSpeed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ball_strike_speed",
			Help:      "Ball speed right after a strike, in metres per second.",
			Buckets:   []float64{5, 10, 20, 30, 40, 60, 80},
		}),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_total",
			Help:      "Entity resets by reason.",
		}, []string{"reason"}),
		frameDelta: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_delta_seconds",
			Help:      "Delta time of simulated frames.",
			Buckets:   []float64{0.001, 0.004, 0.008, 0.0167, 0.025, 0.05, 0.1},
		}),
		spectators: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "spectators",
			Help:      "Connected stream spectators.",
		}),
		matchRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "match_running",
			Help:      "1 while the fixed-step loop is running.",
		}),
	}

	c.registry.MustRegister(
		c.frames, c.rejected, c.goals, c.strikes, c.strikeSpeed,
		c.resets, c.frameDelta, c.spectators, c.matchRunning,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return c
}

// Attach subscribes the collector to every event type it counts
func (c *Collector) Attach(bus *event.Bus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.subs = append(c.subs,
		bus.Subscribe(event.FrameSimulated, c.onFrame),
		bus.Subscribe(event.FrameRejected, func(event.Event) { c.rejected.Inc() }),
		bus.Subscribe(event.GoalScored, c.onGoal),
		bus.Subscribe(event.BallStruck, c.onStrike),
		bus.Subscribe(event.EntitiesReset, c.onReset),
		bus.Subscribe(event.SpectatorJoined, func(event.Event) { c.spectators.Inc() }),
		bus.Subscribe(event.SpectatorLeft, func(event.Event) { c.spectators.Dec() }),
		bus.Subscribe(event.MatchStarted, func(event.Event) { c.matchRunning.Set(1) }),
		bus.Subscribe(event.MatchStopped, func(event.Event) { c.matchRunning.Set(0) }),
	)
}

// Detach removes every subscription made by Attach
func (c *Collector) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sub := range c.subs {
		sub.Cancel()
	}
	c.subs = nil
}

func (c *Collector) onFrame(e event.Event) {
	c.frames.Inc()
	if fe, ok := e.(*event.FrameEvent); ok {
		c.frameDelta.Observe(fe.DeltaTime)
	}
}

func (c *Collector) onGoal(e event.Event) {
	if ge, ok := e.(*event.GoalEvent); ok {
		c.goals.WithLabelValues(ge.Side.String()).Inc()
	}
}

func (c *Collector) onStrike(e event.Event) {
	c.strikes.Inc()
	if se, ok := e.(*event.StrikeEvent); ok {
		c.strikeSpeed.Observe(se.BallVelocity.Len())
	}
}

func (c *Collector) onReset(e event.Event) {
	if re, ok := e.(*event.ResetEvent); ok {
		c.resets.WithLabelValues(string(re.Reason)).Inc()
	}
}

// Registry returns the registry holding the match metrics
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Routes registers /metrics on mux
func (c *Collector) Routes(mux *http.ServeMux) {
	mux.Handle("/metrics", c.Handler())
}
