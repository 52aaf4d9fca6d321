package metrics

import (
	"errors"
	"testing"
	"time"

	"UD_contest_bot/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Registration(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RegistrationStarted()
	m.StepCompleted(model.StepWaitName)
	m.StepCompleted(model.StepWaitName)
	m.InputRejected(model.StepWaitPhone)
	m.RegistrationCompleted(true)
	m.RegistrationCompleted(false)
	m.RegistrationCompleted(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RegistrationsStarted))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StepsCompleted.WithLabelValues("wait_name")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InputsRejected.WithLabelValues("wait_phone")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RegistrationsCompleted.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RegistrationsCompleted.WithLabelValues("false")))
}

func TestMetrics_Updates(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveUpdate("message", nil, time.Now())
	m.ObserveUpdate("message", errors.New("boom"), time.Now())
	m.FeedClientConnected()
	m.FeedClientConnected()
	m.FeedClientDisconnected()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpdatesHandled.WithLabelValues("message", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpdatesHandled.WithLabelValues("message", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedClients))
}
