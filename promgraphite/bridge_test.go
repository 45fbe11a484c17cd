package promgraphite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sender "github.com/itzg/graphite-sender"
)

type recordingSender struct {
	batches [][]sender.Sample
	err     error
}

func (r *recordingSender) SendList(_ context.Context, samples []sender.Sample) (string, error) {
	r.batches = append(r.batches, samples)
	return "", r.err
}

func TestPathSegment(t *testing.T) {
	type testCase struct {
		name     string
		input    string
		expected string
	}

	testCases := []testCase{
		{name: "already valid", input: "http_requests:total-2", expected: "http_requests:total-2"},
		{name: "dots and slashes", input: "/api/v1.users", expected: "_api_v1_users"},
		{name: "spaces", input: "GET users", expected: "GET_users"},
		{name: "multibyte rune", input: "caf\u00e9", expected: "caf_"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, pathSegment(tc.input))
		})
	}
}

func TestPush(t *testing.T) {
	reg := prometheus.NewRegistry()
	cntVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "name",
			Help:        "docstring",
			ConstLabels: prometheus.Labels{"constname": "constvalue"},
		},
		[]string{"labelname"},
	)
	cntVec.WithLabelValues("val1").Inc()
	cntVec.WithLabelValues("val2").Add(2)
	reg.MustRegister(cntVec)

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "idle", Help: "docstring"})
	gauge.Set(0.5)
	reg.MustRegister(gauge)

	rec := &recordingSender{}
	bridge, err := NewBridge(Config{Sender: rec, Gatherer: reg})
	require.NoError(t, err)
	bridge.now = func() time.Time { return time.Unix(1477043083, 0) }

	require.NoError(t, bridge.Push(context.Background()))
	require.Len(t, rec.batches, 1)

	values := make(map[string]float64)
	for _, s := range rec.batches[0] {
		values[s.Name] = s.Value
		assert.Equal(t, int64(1477043083), s.Timestamp.Unix())
	}
	assert.Equal(t, map[string]float64{
		"name.constname_constvalue.labelname_val1": 1,
		"name.constname_constvalue.labelname_val2": 2,
		"idle":                                     0.5,
	}, values)
}

func TestPush_SendError(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "c", Help: "docstring"})
	reg.MustRegister(counter)

	sendErr := errors.New("boom")
	bridge, err := NewBridge(Config{Sender: &recordingSender{err: sendErr}, Gatherer: reg})
	require.NoError(t, err)

	assert.ErrorIs(t, bridge.Push(context.Background()), sendErr)
}

func TestPush_NothingGathered(t *testing.T) {
	rec := &recordingSender{}
	bridge, err := NewBridge(Config{Sender: rec, Gatherer: prometheus.NewRegistry()})
	require.NoError(t, err)

	require.NoError(t, bridge.Push(context.Background()))
	assert.Empty(t, rec.batches)
}

func TestNewBridge_MissingSender(t *testing.T) {
	_, err := NewBridge(Config{})
	assert.Error(t, err)
}

func TestRun_ReportsErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "c", Help: "docstring"}))

	errs := make(chan error, 1)
	bridge, err := NewBridge(Config{
		Sender:   &recordingSender{err: errors.New("boom")},
		Gatherer: reg,
		Interval: 5 * time.Millisecond,
		OnError: func(err error) {
			select {
			case errs <- err:
			default:
			}
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		bridge.Run(ctx)
		close(done)
	}()

	select {
	case err := <-errs:
		assert.EqualError(t, err, "boom")
	case <-time.After(time.Second):
		t.Fatal("expected an error to be reported")
	}

	cancel()
	<-done
}
