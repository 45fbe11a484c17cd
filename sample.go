package sender

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Sample is a single scalar measurement. A zero Timestamp is resolved when the sample is sent.
type Sample struct {
	Name      string
	Value     float64
	Timestamp time.Time
}

func NewSample(name string, value float64) Sample {
	return Sample{Name: name, Value: value}
}

func NewTimedSample(name string, value float64, timestamp time.Time) Sample {
	return Sample{Name: name, Value: value, Timestamp: timestamp}
}

// SamplesFromTuples converts loosely typed (name, value) or (name, value, timestamp) tuples.
// Values and timestamps may be numbers or numeric strings.
func SamplesFromTuples(tuples [][]any) ([]Sample, error) {
	samples := make([]Sample, 0, len(tuples))
	for i, tuple := range tuples {
		if len(tuple) != 2 && len(tuple) != 3 {
			return nil, invalidSample("tuple %d has %d elements, expected 2 or 3", i, len(tuple))
		}

		name, err := cast.ToStringE(tuple[0])
		if err != nil {
			return nil, invalidSample("tuple %d name: %v", i, err)
		}
		value, err := cast.ToFloat64E(tuple[1])
		if err != nil {
			return nil, invalidSample("tuple %d value: %v", i, err)
		}

		sample := NewSample(name, value)
		if len(tuple) == 3 {
			sample.Timestamp, err = ParseTimestamp(tuple[2])
			if err != nil {
				return nil, invalidSample("tuple %d: %v", i, err)
			}
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

// ParseTimestamp coerces seconds since the epoch, given as a number, numeric string or time.Time.
// A nil timestamp yields the zero time.
func ParseTimestamp(timestamp any) (time.Time, error) {
	switch ts := timestamp.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return ts, nil
	case string:
		seconds, err := strconv.ParseInt(strings.TrimSpace(ts), 10, 64)
		if err != nil {
			return time.Time{}, invalidSample("timestamp %q is not an integer", ts)
		}
		return time.Unix(seconds, 0), nil
	case float32:
		return floatTimestamp(float64(ts))
	case float64:
		return floatTimestamp(ts)
	case bool:
		return time.Time{}, invalidSample("timestamp %v is not an integer", ts)
	}

	seconds, err := cast.ToInt64E(timestamp)
	if err != nil {
		return time.Time{}, invalidSample("timestamp %v: %v", timestamp, err)
	}
	return time.Unix(seconds, 0), nil
}

func floatTimestamp(ts float64) (time.Time, error) {
	if math.IsNaN(ts) || math.IsInf(ts, 0) || ts != math.Trunc(ts) {
		return time.Time{}, invalidSample("timestamp %v is not an integer", ts)
	}
	return time.Unix(int64(ts), 0), nil
}

// formatter renders samples as plaintext protocol lines.
type formatter struct {
	prefix    string
	suffix    string
	sanitizer Sanitizer
}

func (f formatter) metricPath(name string) string {
	path := f.prefix + f.sanitizer.Clean(name)
	if f.suffix != "" {
		path += "." + f.suffix
	}
	return path
}

// format resolves each sample's timestamp (own, then batch default, then fallback) and joins the lines.
func (f formatter) format(samples []Sample, batchDefault, fallback time.Time) (string, error) {
	if len(samples) == 0 {
		return "", invalidSample("no samples to send")
	}

	var b strings.Builder
	for i, s := range samples {
		if s.Name == "" {
			return "", invalidSample("sample %d has an empty name", i)
		}
		if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
			return "", invalidSample("sample %d (%s) has non-finite value %v", i, s.Name, s.Value)
		}

		timestamp := s.Timestamp
		if timestamp.IsZero() {
			timestamp = batchDefault
		}
		if timestamp.IsZero() {
			timestamp = fallback
		}

		b.WriteString(f.metricPath(s.Name))
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(s.Value, 'f', 6, 64))
		b.WriteByte(' ')
		b.WriteString(strconv.FormatInt(timestamp.Unix(), 10))
		b.WriteByte('\n')
	}
	return b.String(), nil
}
