package attendance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	qrSessionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollcall_qr_sessions_opened_total",
		Help: "QR attendance sessions opened by lecturers.",
	})

	redemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rollcall_redemptions_total",
		Help: "QR redemption attempts by outcome.",
	}, []string{"outcome"})

	absencesSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollcall_absences_swept_total",
		Help: "ABSENT rows inserted by session-close sweeps.",
	})
)
