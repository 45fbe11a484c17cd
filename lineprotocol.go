package sender

import (
	"context"
	"fmt"
	"sort"
	"strings"

	protocol "github.com/influxdata/line-protocol"
)

// ParseLineProtocol parses Influx line protocol. Lines without a timestamp are stamped with the current time.
func ParseLineProtocol(input []byte) ([]protocol.Metric, error) {
	parser := protocol.NewParser(protocol.NewMetricHandler())
	metrics, err := parser.Parse(input)
	if err != nil {
		return nil, fmt.Errorf("failed to parse line protocol: %w", err)
	}
	return metrics, nil
}

// SamplesFromMetric flattens each numeric field of m into a sample named
// "<measurement>.<tag values ordered by key>.<field>".
func SamplesFromMetric(m protocol.Metric) ([]Sample, error) {
	tags := append([]*protocol.Tag(nil), m.TagList()...)
	sort.Slice(tags, func(i, j int) bool {
		return tags[i].Key < tags[j].Key
	})

	segments := []string{m.Name()}
	for _, tag := range tags {
		if tag.Value != "" {
			segments = append(segments, tag.Value)
		}
	}
	base := strings.Join(segments, ".")

	fields := m.FieldList()
	if len(fields) == 0 {
		return nil, invalidSample("metric %s has no fields", m.Name())
	}

	samples := make([]Sample, 0, len(fields))
	for _, field := range fields {
		var value float64
		switch v := field.Value.(type) {
		case float64:
			value = v
		case int64:
			value = float64(v)
		case uint64:
			value = float64(v)
		default:
			return nil, invalidSample("field %s of %s has non-numeric type %T", field.Key, m.Name(), field.Value)
		}
		samples = append(samples, NewTimedSample(base+"."+field.Key, value, m.Time()))
	}
	return samples, nil
}

// SendMetrics flattens the metrics and sends them as one message.
func (c *Client) SendMetrics(ctx context.Context, metrics ...protocol.Metric) (string, error) {
	var samples []Sample
	for _, m := range metrics {
		flattened, err := SamplesFromMetric(m)
		if err != nil {
			return "", err
		}
		samples = append(samples, flattened...)
	}
	return c.SendList(ctx, samples)
}
