package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-formcatalog/pkg/catalog"
	"github.com/goliatone/go-formcatalog/pkg/choices"
	"github.com/goliatone/go-formcatalog/pkg/dataset"
)

const metricsNamespace = "formcatalog"

// Metrics counts what runs produce and drop.
type Metrics struct {
	FormsParsed   prometheus.Counter
	FormsSkipped  prometheus.Counter
	FieldsEmitted prometheus.Counter
	Warnings      *prometheus.CounterVec
	Lookups       *prometheus.CounterVec
	Observations  prometheus.Counter
	Unmatched     prometheus.Counter
	DroppedFields prometheus.Counter
	RunDuration   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		FormsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "forms_parsed_total",
			Help: "Forms flattened into the catalog.",
		}),
		FormsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "forms_skipped_total",
			Help: "Forms whose definition could not be decoded.",
		}),
		FieldsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "fields_emitted_total",
			Help: "Distinct catalog fields produced.",
		}),
		Warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "field_warnings_total",
			Help: "Coding validity warnings by code.",
		}, []string{"code"}),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "choice_lookups_total",
			Help: "Remote option lookups by outcome.",
		}, []string{"outcome"}),
		Observations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "observations_total",
			Help: "Observations synchronized against the catalog.",
		}),
		Unmatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "observations_unmatched_total",
			Help: "Observations dropped because their form is not in the catalog.",
		}),
		DroppedFields: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "answers_dropped_total",
			Help: "Distinct answer keys without a catalog field.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Name: "run_duration_seconds",
			Help:    "Wall time of pipeline runs.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.FormsParsed, m.FormsSkipped, m.FieldsEmitted, m.Warnings, m.Lookups,
		m.Observations, m.Unmatched, m.DroppedFields, m.RunDuration,
	}
}

func (m *Metrics) observeLookup(_ string, outcome choices.Outcome) {
	if m == nil {
		return
	}
	m.Lookups.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) observeCatalog(res catalog.Result) {
	if m == nil {
		return
	}
	m.FormsParsed.Add(float64(len(res.Catalog.Forms())))
	m.FormsSkipped.Add(float64(len(res.Skipped)))
}

func (m *Metrics) observeFields(nested catalog.Catalog) {
	if m == nil {
		return
	}
	m.FieldsEmitted.Add(float64(len(nested)))
	for _, rec := range nested {
		for _, w := range rec.Warnings {
			m.Warnings.WithLabelValues(w.String()).Inc()
		}
	}
}

func (m *Metrics) observeSync(obs dataset.Observations) {
	if m == nil {
		return
	}
	m.Observations.Add(float64(len(obs.Rows)))
	for _, miss := range obs.Unmatched {
		m.Unmatched.Add(float64(miss.Rows))
	}
	for _, keys := range obs.Dropped {
		m.DroppedFields.Add(float64(len(keys)))
	}
}
