// Package observability provides a metrics extension for Balancer that records
// session lifecycle counts and settlement sizes via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/balancer/plugin"
	"github.com/xraph/balancer/session"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                = (*MetricsExtension)(nil)
	_ plugin.OnInit                = (*MetricsExtension)(nil)
	_ plugin.OnSessionCreated      = (*MetricsExtension)(nil)
	_ plugin.OnParticipantJoined   = (*MetricsExtension)(nil)
	_ plugin.OnSessionStateChanged = (*MetricsExtension)(nil)
	_ plugin.OnSessionSettled      = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Balancer plugin to track session and settlement metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Session metrics
	SessionCreated   Counter
	SessionActivated Counter
	SessionSettled   Counter

	// Membership metrics
	ParticipantsInvited Counter
	ParticipantJoined   Counter
	SessionSize         Histogram

	// Settlement metrics
	SettlementTotal     Histogram // minor units
	SettlementRemainder Histogram // minor units
	SettlementVolume    Counter   // minor units
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		SessionCreated:   factory.Counter("balancer.session.created"),
		SessionActivated: factory.Counter("balancer.session.activated"),
		SessionSettled:   factory.Counter("balancer.session.settled"),

		ParticipantsInvited: factory.Counter("balancer.participant.invited"),
		ParticipantJoined:   factory.Counter("balancer.participant.joined"),
		SessionSize:         factory.Histogram("balancer.session.participants"),

		SettlementTotal:     factory.Histogram("balancer.settlement.total_amount"),
		SettlementRemainder: factory.Histogram("balancer.settlement.remainder"),
		SettlementVolume:    factory.Counter("balancer.settlement.volume"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// OnSessionCreated implements plugin.OnSessionCreated.
func (m *MetricsExtension) OnSessionCreated(_ context.Context, evt session.SessionCreated) error {
	n := float64(len(evt.Invited))
	m.SessionCreated.Inc()
	m.ParticipantsInvited.Add(n)
	m.SessionSize.Observe(n)
	return nil
}

// OnParticipantJoined implements plugin.OnParticipantJoined.
func (m *MetricsExtension) OnParticipantJoined(_ context.Context, _ session.ParticipantJoined) error {
	m.ParticipantJoined.Inc()
	return nil
}

// OnSessionStateChanged implements plugin.OnSessionStateChanged.
func (m *MetricsExtension) OnSessionStateChanged(_ context.Context, evt session.SessionStateChanged) error {
	switch evt.State {
	case session.StateActive:
		m.SessionActivated.Inc()
	case session.StateSettled:
		m.SessionSettled.Inc()
	}
	return nil
}

// OnSessionSettled implements plugin.OnSessionSettled.
func (m *MetricsExtension) OnSessionSettled(_ context.Context, evt session.SessionSettled) error {
	if evt.Settlement == nil {
		return nil
	}
	total := float64(evt.Settlement.Total.Amount)
	m.SettlementTotal.Observe(total)
	m.SettlementRemainder.Observe(float64(evt.Settlement.Remainder.Amount))
	// Expenses are non-negative, so the total is safe to add to a counter.
	m.SettlementVolume.Add(total)
	return nil
}
