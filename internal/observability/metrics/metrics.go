package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	OnboardsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camera_onboards_total",
			Help: "Total number of device onboarding attempts.",
		},
		[]string{"result"},
	)

	ActivationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camera_activations_total",
			Help: "Total number of device activation attempts.",
		},
		[]string{"result"},
	)

	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_requests_total",
			Help: "Total number of registration and login attempts.",
		},
		[]string{"flow", "result"},
	)

	RelayConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relay_connections",
			Help: "Live relay connections by role.",
		},
		[]string{"role"},
	)

	RelayMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_messages_total",
			Help: "Messages forwarded through the relay, labelled by sender role.",
		},
		[]string{"from"},
	)

	RelayBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_bytes_total",
			Help: "Payload bytes forwarded through the relay, labelled by sender role.",
		},
		[]string{"from"},
	)
)

func MustRegister() {
	prometheus.MustRegister(
		OnboardsTotal,
		ActivationsTotal,
		LoginsTotal,
		RelayConnections,
		RelayMessagesTotal,
		RelayBytesTotal,
	)
}
