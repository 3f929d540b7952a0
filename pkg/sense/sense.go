// Package sense exposes the memory's activity as Prometheus metrics.
//
// Counters are fed by events as they happen. Gauges are refreshed from a
// stats snapshot at the end of every cycle, on the controller goroutine, so a
// scrape never touches the memory's bags.
package sense

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/papercomputeco/reckon/pkg/events"
	"github.com/papercomputeco/reckon/pkg/memory"
)

const defaultNamespace = "reckon"

// StatsSource reports a memory snapshot.
type StatsSource interface {
	Stats() memory.Stats
}

// Config configures a Sense.
type Config struct {
	Emitter *events.Emitter

	// Source, when set, refreshes the gauges at every cycle end.
	Source StatsSource

	Namespace string
	Logger    *zap.Logger
}

// Sense owns a registry of memory metrics.
type Sense struct {
	registry *prometheus.Registry
	emitter  *events.Emitter
	source   StatsSource
	logger   *zap.Logger
	subs     []events.Subscription

	cycles            prometheus.Counter
	tasksAdded        *prometheus.CounterVec
	tasksRemoved      *prometheus.CounterVec
	tasksDerived      prometheus.Counter
	tasksProcessed    prometheus.Counter
	conceptsCreated   prometheus.Counter
	conceptsFired     prometheus.Counter
	conceptsForgotten *prometheus.CounterVec
	conceptsRecalled  prometheus.Counter
	inductions        prometheus.Counter
	inputs            prometheus.Counter
	outputs           prometheus.Counter
	errors            prometheus.Counter

	concepts       prometheus.Gauge
	cachedConcepts prometheus.Gauge
	newTasks       prometheus.Gauge
	novelTasks     prometheus.Gauge
	liveTasks      prometheus.Gauge
	stm            prometheus.Gauge
	busy           prometheus.Gauge
	happy          prometheus.Gauge
	volume         prometheus.Gauge
	clock          prometheus.Gauge
}

// New registers the metrics and subscribes to the emitter.
func New(c *Config) (*Sense, error) {
	if c.Namespace == "" {
		c.Namespace = defaultNamespace
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	s := &Sense{
		registry: prometheus.NewRegistry(),
		emitter:  c.Emitter,
		source:   c.Source,
		logger:   c.Logger.With(zap.String("component", "sense")),
	}
	s.register(c.Namespace)

	if c.Emitter != nil {
		if err := s.subscribe(); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// Registry is the registry holding the memory metrics.
func (s *Sense) Registry() *prometheus.Registry { return s.registry }

// Handler serves the registry in the Prometheus exposition format.
func (s *Sense) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		ErrorLog: zap.NewStdLog(s.logger),
	})
}

// Close unsubscribes from the emitter. The registry stays readable.
func (s *Sense) Close() {
	for _, sub := range s.subs {
		s.emitter.Off(sub)
	}
	s.subs = nil
}

// Refresh sets the gauges from a snapshot.
func (s *Sense) Refresh(st memory.Stats) {
	s.concepts.Set(float64(st.Concepts))
	s.cachedConcepts.Set(float64(st.CachedConcepts))
	s.newTasks.Set(float64(st.NewTasks))
	s.novelTasks.Set(float64(st.NovelTasks))
	s.liveTasks.Set(float64(st.LiveTasks))
	s.stm.Set(float64(st.STM))
	s.busy.Set(st.Busy)
	s.happy.Set(st.Happy)
	s.volume.Set(float64(st.Volume))
	s.clock.Set(float64(st.Time))
}

func (s *Sense) subscribe() error {
	handlers := map[events.Kind]events.Handler{
		events.CycleEnd: func(events.Event) {
			s.cycles.Inc()
			if s.source != nil {
				s.Refresh(s.source.Stats())
			}
		},
		events.TaskAdd: func(ev events.Event) {
			s.tasksAdded.WithLabelValues(string(ev.(events.TaskAdded).Reason)).Inc()
		},
		events.TaskRemove: func(ev events.Event) {
			s.tasksRemoved.WithLabelValues(string(ev.(events.TaskRemoved).Reason)).Inc()
		},
		events.TaskDerive:           func(events.Event) { s.tasksDerived.Inc() },
		events.TaskImmediateProcess: func(events.Event) { s.tasksProcessed.Inc() },
		events.ConceptNew:           func(events.Event) { s.conceptsCreated.Inc() },
		events.ConceptFire:          func(events.Event) { s.conceptsFired.Inc() },
		events.ConceptForget: func(ev events.Event) {
			outcome := "destroyed"
			if ev.(events.ConceptForgotten).Cached {
				outcome = "cached"
			}
			s.conceptsForgotten.WithLabelValues(outcome).Inc()
		},
		events.ConceptRemember:       func(events.Event) { s.conceptsRecalled.Inc() },
		events.InduceSucceedingEvent: func(events.Event) { s.inductions.Inc() },
		events.Input:                 func(events.Event) { s.inputs.Inc() },
		events.Output:                func(events.Event) { s.outputs.Inc() },
		events.Error: func(ev events.Event) {
			s.errors.Inc()
			s.logger.Debug("memory error", zap.Error(ev.(events.ErrorRaised).Err))
		},
	}

	for kind, fn := range handlers {
		sub, err := s.emitter.On(kind, fn)
		if err != nil {
			return err
		}
		s.subs = append(s.subs, sub)
	}
	return nil
}

func (s *Sense) register(namespace string) {
	counter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
		s.registry.MustRegister(c)
		return c
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		c := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
		s.registry.MustRegister(c)
		return c
	}
	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
		s.registry.MustRegister(g)
		return g
	}

	s.cycles = counter("cycles_total", "Completed memory cycles")
	s.tasksAdded = counterVec("tasks_added_total", "Tasks queued for processing", "reason")
	s.tasksRemoved = counterVec("tasks_removed_total", "Tasks removed from the system", "reason")
	s.tasksDerived = counter("tasks_derived_total", "Tasks returned by the inference engine")
	s.tasksProcessed = counter("tasks_processed_total", "Tasks processed immediately")
	s.conceptsCreated = counter("concepts_created_total", "Concepts formed")
	s.conceptsFired = counter("concepts_fired_total", "Concepts selected for reasoning")
	s.conceptsForgotten = counterVec("concepts_forgotten_total", "Concepts dropped from the concept bag", "outcome")
	s.conceptsRecalled = counter("concepts_remembered_total", "Cached concepts restored")
	s.inductions = counter("stm_inductions_total", "Events considered for temporal induction")
	s.inputs = counter("inputs_total", "Items taken from the input source")
	s.outputs = counter("outputs_total", "Tasks reported as output")
	s.errors = counter("errors_total", "Errors handled inside a cycle")

	s.concepts = gauge("concepts", "Concepts in the concept bag")
	s.cachedConcepts = gauge("cached_concepts", "Concepts in the concept cache")
	s.newTasks = gauge("new_tasks", "Tasks waiting in the new-task queue")
	s.novelTasks = gauge("novel_tasks", "Tasks in the novelty bag")
	s.liveTasks = gauge("live_tasks", "Tasks still referenced anywhere")
	s.stm = gauge("stm_events", "Events held in short-term memory")
	s.busy = gauge("emotion_busy", "Busy level")
	s.happy = gauge("emotion_happy", "Happy level")
	s.volume = gauge("volume", "Output volume")
	s.clock = gauge("time", "Memory time")
}
