package reporter

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	discoveryv1 "k8s.io/api/discovery/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/tools/record"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/navikt/statusplattform-operator/model"
)

type recordingReporter struct {
	phases []model.Phase
	err    error
}

func (r *recordingReporter) record(out model.Outcome) error {
	r.phases = append(r.phases, out.Phase)
	return r.err
}

func (r *recordingReporter) Reported(_ context.Context, _ *discoveryv1.EndpointSlice, out model.Outcome) error {
	return r.record(out)
}

func (r *recordingReporter) Skipped(_ context.Context, _ *discoveryv1.EndpointSlice, out model.Outcome) error {
	return r.record(out)
}

func (r *recordingReporter) Failed(_ context.Context, _ *discoveryv1.EndpointSlice, out model.Outcome) error {
	return r.record(out)
}

func testSlice() *discoveryv1.EndpointSlice {
	return &discoveryv1.EndpointSlice{ObjectMeta: metav1.ObjectMeta{Namespace: "payments", Name: "checkout-x7k2p"}}
}

func testContext(t *testing.T) context.Context {
	return log.IntoContext(context.Background(), zapr.NewLogger(zaptest.NewLogger(t)))
}

func TestMultiOutcomeReporter(t *testing.T) {
	ctx := testContext(t)
	c := model.NewCorrelation(testSlice())
	ok, failing := &recordingReporter{}, &recordingReporter{err: errors.New("boom")}
	r := MultiOutcomeReporter{failing, ok, &LogReporter{Name: "test"}}

	r.Report(ctx, testSlice(), model.Reported(c, true, "1/1 endpoints ready"))
	r.Report(ctx, testSlice(), model.Skipped(c, model.Disqualify(model.ReasonMissingLabels, "missing")))
	r.Report(ctx, testSlice(), model.Failed(c, model.ReasonRegistryReport, errors.New("unavailable")))

	want := []model.Phase{model.PhaseReported, model.PhaseSkipped, model.PhaseFailed}
	assert.Equal(t, want, ok.phases)
	assert.Equal(t, want, failing.phases)
}

func TestEventReporter(t *testing.T) {
	ctx := context.Background()
	rec := record.NewFakeRecorder(10)
	r := &EventReporter{EventRecorder: rec}
	c := model.NewCorrelation(testSlice())

	require.NoError(t, r.Reported(ctx, testSlice(), model.Reported(c, false, "0/2 endpoints ready")))
	require.NoError(t, r.Skipped(ctx, testSlice(), model.Skipped(c, model.Disqualify(model.ReasonNoServiceOwner, "no owner"))))
	require.NoError(t, r.Failed(ctx, testSlice(), model.Failed(c, model.ReasonRegistryResolve, errors.New("registry down"))))
	close(rec.Events)

	var events []string
	for e := range rec.Events {
		events = append(events, e)
	}
	assert.Equal(t, []string{
		"Normal StatusReported status DOWN reported: 0/2 endpoints ready",
		"Warning RegistryResolveFailed registry down",
	}, events)
}

func TestMetricsReporter(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	r, err := NewMetricsReporter(reg)
	require.NoError(t, err)
	c := model.NewCorrelation(testSlice())

	require.NoError(t, r.Reported(ctx, testSlice(), model.Reported(c, true, "")))
	require.NoError(t, r.Reported(ctx, testSlice(), model.Reported(c, true, "")))
	require.NoError(t, r.Reported(ctx, testSlice(), model.Reported(c, false, "")))
	require.NoError(t, r.Skipped(ctx, testSlice(), model.Skipped(c, model.Disqualify(model.ReasonNoApplication, "none"))))
	require.NoError(t, r.Skipped(ctx, testSlice(), model.Skipped(c, errors.New("plain"))))
	require.NoError(t, r.Failed(ctx, testSlice(), model.Failed(c, model.ReasonRegistryReport, errors.New("x"))))

	assert.Equal(t, 3.0, testutil.ToFloat64(r.outcomes.WithLabelValues("Reported", model.ReasonStatusReported)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.outcomes.WithLabelValues("Skipped", model.ReasonNoApplication)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.outcomes.WithLabelValues("Skipped", reasonUnknown)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.outcomes.WithLabelValues("Failed", model.ReasonRegistryReport)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.statuses.WithLabelValues("OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.statuses.WithLabelValues("DOWN")))

	again, err := NewMetricsReporter(reg)
	require.NoError(t, err)
	assert.Same(t, r.outcomes, again.outcomes)
}
