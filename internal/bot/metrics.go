package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the bot's Prometheus collectors.
type Metrics struct {
	MessagesProcessed    prometheus.Counter
	CommandsProcessed    *prometheus.CounterVec
	ErrorsTotal          prometheus.Counter
	UpdateProcessingTime prometheus.Histogram
	WizardSteps          *prometheus.CounterVec
	BookingsCreated      *prometheus.CounterVec
	PhotosUploaded       prometheus.Counter
}

// NewMetrics registers the collectors on reg, or on the default registry
// when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		MessagesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "telegram_bot_messages_processed_total",
			Help: "Total number of updates accepted for processing",
		}),
		CommandsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_bot_commands_processed_total",
			Help: "Total number of commands processed",
		}, []string{"command"}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "telegram_bot_errors_total",
			Help: "Total number of errors, panics included",
		}),
		UpdateProcessingTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "telegram_bot_update_processing_time_seconds",
			Help:    "Time spent processing updates",
			Buckets: prometheus.DefBuckets,
		}),
		WizardSteps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_bot_wizard_steps_total",
			Help: "Wizard views rendered, by step",
		}, []string{"step"}),
		BookingsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_bot_bookings_created_total",
			Help: "Total number of bookings created",
		}, []string{"room_type"}),
		PhotosUploaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "telegram_bot_photos_uploaded_total",
			Help: "Photos uploaded to the hostel API by managers",
		}),
	}
}

func (b *Bot) countCommand(cmd string) {
	if b.metrics != nil {
		b.metrics.CommandsProcessed.WithLabelValues(cmd).Inc()
	}
}

func (b *Bot) countError() {
	if b.metrics != nil {
		b.metrics.ErrorsTotal.Inc()
	}
}
