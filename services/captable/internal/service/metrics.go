package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	IssuancesTotal       *prometheus.CounterVec
	SharesIssued         prometheus.Counter
	CertificateConflicts prometheus.Counter
	CertificatesRendered *prometheus.CounterVec
	ShareholdersCreated  *prometheus.CounterVec
	LoginAttempts        *prometheus.CounterVec
}

func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		IssuancesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "captable_issuances_total",
				Help: "Share issuance attempts by outcome.",
			},
			[]string{"status"},
		),
		SharesIssued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "captable_shares_issued_total",
				Help: "Total number of shares issued.",
			},
		),
		CertificateConflicts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "captable_certificate_number_conflicts_total",
				Help: "Certificate numbers rejected by the uniqueness constraint.",
			},
		),
		CertificatesRendered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "captable_certificates_rendered_total",
				Help: "Certificate documents rendered by format and outcome.",
			},
			[]string{"format", "status"},
		),
		ShareholdersCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "captable_shareholders_created_total",
				Help: "Shareholder registrations by outcome.",
			},
			[]string{"status"},
		),
		LoginAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "captable_login_attempts_total",
				Help: "Login attempts by outcome.",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		m.IssuancesTotal,
		m.SharesIssued,
		m.CertificateConflicts,
		m.CertificatesRendered,
		m.ShareholdersCreated,
		m.LoginAttempts,
	)
	return m
}

func (m *Metrics) ObserveIssuance(status string, shares int64) {
	if m == nil {
		return
	}
	m.IssuancesTotal.WithLabelValues(status).Inc()
	if status == "success" {
		m.SharesIssued.Add(float64(shares))
	}
}

func (m *Metrics) IncCertificateConflict() {
	if m == nil {
		return
	}
	m.CertificateConflicts.Inc()
}

func (m *Metrics) ObserveCertificate(format, status string) {
	if m == nil {
		return
	}
	m.CertificatesRendered.WithLabelValues(format, status).Inc()
}

func (m *Metrics) ObserveShareholder(status string) {
	if m == nil {
		return
	}
	m.ShareholdersCreated.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveLogin(status string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(status).Inc()
}
