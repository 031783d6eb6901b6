package metrics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/goform"
	"github.com/reoring/goform/metrics"
)

func TestNew(t *testing.T) {
	// a fresh registry avoids conflicts with other tests
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	require.NotNil(t, m)

	m.ValidationRun(goform.TriggerChange, 0)
	m.SubmitStarted()
	m.ObserveRequest("POST", "/change", 200, time.Millisecond)
	m.ConfigReloaded(nil)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"goform_validations_total",
		"goform_validation_invalid_fields",
		"goform_submissions_in_flight",
		"goform_http_requests_total",
		"goform_http_request_duration_seconds",
		"goform_config_reloads_total",
		"goform_config_last_reload_timestamp",
	} {
		assert.True(t, names[want], "%s not gathered", want)
	}
}

func TestNew_NilRegistry(t *testing.T) {
	m := metrics.New(nil)
	m.ValidationRun("manual", 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationsTotal.WithLabelValues("manual", "invalid")))
}

func TestValidationRun(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	m.ValidationRun(goform.TriggerSubmit, 0)
	m.ValidationRun(goform.TriggerSubmit, 3)
	m.ValidationRun(goform.TriggerSubmit, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationsTotal.WithLabelValues(goform.TriggerSubmit, "valid")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ValidationsTotal.WithLabelValues(goform.TriggerSubmit, "invalid")))
}

func TestSubmissionLifecycle(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	m.SubmitStarted()
	m.SubmitStarted()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SubmissionsPending))

	m.SubmitFinished(goform.StatusSuccess, 20*time.Millisecond)
	m.SubmitFinished(goform.StatusError, time.Second)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.SubmissionsPending))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SubmissionsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SubmissionsTotal.WithLabelValues("error")))
}

func TestCollectorAsRecorder(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	f, err := goform.New(context.Background(), goform.Props{
		InitialValues: map[string]any{"a": ""},
		Validation:    goform.ValidationConfig{Initial: true},
		Submit:        &goform.Submit{Endpoint: "/x"},
	},
		goform.WithRecorder(m),
		goform.WithTransport(goform.TransportFunc(func(context.Context, goform.Request) (*goform.Response, error) {
			return &goform.Response{StatusCode: 200}, nil
		})),
	)
	require.NoError(t, err)
	require.NoError(t, f.HandleSubmit(context.Background(), goform.NewSubmitEvent(nil)))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationsTotal.WithLabelValues(goform.TriggerInitial, "valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationsTotal.WithLabelValues(goform.TriggerSubmit, "valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SubmissionsTotal.WithLabelValues("success")))
}

func TestConfigReloaded(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	m.ConfigReloaded(errors.New("bad yaml"))
	m.ConfigReloaded(nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConfigReloadErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConfigReloads))
	assert.Greater(t, testutil.ToFloat64(m.ConfigLastReload), 0.0)
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{200: "2xx", 201: "2xx", 404: "4xx", 503: "5xx", 42: "42"}
	for code, want := range tests {
		assert.Equal(t, want, metrics.StatusClass(code))
	}
}
