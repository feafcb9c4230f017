// Package metrics exposes pipeline counters for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"autobot-go/internal/autobot"
)

// Collector records ingestion, rotation and command counters.
type Collector struct {
	imagesSaved      prometheus.Counter
	messagesIngested prometheus.Counter
	ingestFailures   prometheus.Counter
	filesArchived    prometheus.Counter
	mirrorFailures   prometheus.Counter
	commands         *prometheus.CounterVec
}

var _ autobot.Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		imagesSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autobot_images_saved_total",
			Help: "Images written to the archive.",
		}),
		messagesIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autobot_messages_ingested_total",
			Help: "Messages recorded in the ledger.",
		}),
		ingestFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autobot_ingest_failures_total",
			Help: "Messages whose images all failed to save.",
		}),
		filesArchived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autobot_files_archived_total",
			Help: "Files moved out of weekly buckets by rotation.",
		}),
		mirrorFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autobot_mirror_failures_total",
			Help: "Archived files that could not be copied to the vault.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autobot_commands_total",
			Help: "Chat commands handled, by command and outcome.",
		}, []string{"command", "outcome"}),
	}

	reg.MustRegister(
		c.imagesSaved,
		c.messagesIngested,
		c.ingestFailures,
		c.filesArchived,
		c.mirrorFailures,
		c.commands,
	)
	return c
}

func (c *Collector) ImageSaved()      { c.imagesSaved.Inc() }
func (c *Collector) MessageIngested() { c.messagesIngested.Inc() }
func (c *Collector) IngestFailed()    { c.ingestFailures.Inc() }
func (c *Collector) FileArchived()    { c.filesArchived.Inc() }
func (c *Collector) MirrorFailed()    { c.mirrorFailures.Inc() }

// CommandHandled counts one chat command. outcome is "ok", "denied" or "error".
func (c *Collector) CommandHandled(command, outcome string) {
	c.commands.WithLabelValues(command, outcome).Inc()
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
