// Package promgraphite pushes metrics gathered from a Prometheus registry through a graphite
// sender client.
package promgraphite

import (
	"context"
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/model"

	dto "github.com/prometheus/client_model/go"

	sender "github.com/itzg/graphite-sender"
)

const defaultInterval = 15 * time.Second

// Sender is the part of *sender.Client used by the bridge.
type Sender interface {
	SendList(ctx context.Context, samples []sender.Sample) (string, error)
}

// Config defines the bridge config.
type Config struct {
	// The client to send samples with. Required.
	Sender Sender

	// The interval to use for pushing data. Defaults to 15 seconds.
	Interval time.Duration

	// The Gatherer to use for metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// OnError receives the error of every failed push made by Run. Failed pushes are dropped when nil.
	OnError func(error)
}

// Bridge pushes gathered metrics to graphite.
type Bridge struct {
	sender   Sender
	interval time.Duration
	gatherer prometheus.Gatherer
	onError  func(error)
	now      func() time.Time
}

func NewBridge(c Config) (*Bridge, error) {
	if c.Sender == nil {
		return nil, errors.New("missing sender")
	}

	b := &Bridge{
		sender:   c.Sender,
		interval: c.Interval,
		gatherer: c.Gatherer,
		onError:  c.OnError,
		now:      time.Now,
	}
	if b.interval == 0 {
		b.interval = defaultInterval
	}
	if b.gatherer == nil {
		b.gatherer = prometheus.DefaultGatherer
	}
	return b, nil
}

// Run pushes at the configured interval until ctx is done.
func (b *Bridge) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := b.Push(ctx); err != nil && b.onError != nil {
				b.onError(err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Push gathers once and sends every finite sample as a single message.
func (b *Bridge) Push(ctx context.Context) error {
	mfs, err := b.gatherer.Gather()
	if err != nil {
		return err
	}

	samples, err := Samples(mfs, model.TimeFromUnixNano(b.now().UnixNano()))
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return nil
	}

	_, err = b.sender.SendList(ctx, samples)
	return err
}

// Samples converts gathered metric families into graphite samples named
// "<name>.<label>_<value>..." with labels in sorted order. NaN and infinite values are dropped.
func Samples(mfs []*dto.MetricFamily, now model.Time) ([]sender.Sample, error) {
	vec, err := expfmt.ExtractSamples(&expfmt.DecodeOptions{
		Timestamp: now,
	}, mfs...)
	if err != nil {
		return nil, err
	}

	samples := make([]sender.Sample, 0, len(vec))
	for _, s := range vec {
		value := float64(s.Value)
		if math.IsNaN(value) || math.IsInf(value, 0) {
			continue
		}
		samples = append(samples, sender.NewTimedSample(metricPath(s.Metric), value, s.Timestamp.Time()))
	}
	return samples, nil
}

func metricPath(m model.Metric) string {
	labels := make([]string, 0, len(m))
	for label, value := range m {
		if label != model.MetricNameLabel {
			labels = append(labels, pathSegment(string(label))+"_"+pathSegment(string(value)))
		}
	}
	sort.Strings(labels)

	segments := append([]string{pathSegment(string(m[model.MetricNameLabel]))}, labels...)
	return strings.Join(segments, ".")
}

var invalidSegmentChars = regexp.MustCompile(`[^A-Za-z0-9_:-]`)

// pathSegment makes a label name or value usable as one segment of a graphite path.
func pathSegment(s string) string {
	return invalidSegmentChars.ReplaceAllString(s, "_")
}
