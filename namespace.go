package sender

import (
	"fmt"
	"os"
	"strings"
)

const (
	// SystemNameAuto resolves the system segment from the local host name.
	SystemNameAuto = "auto"

	defaultRootSegment = "systems"
)

// HostnameFunc returns the identifier of the local host.
type HostnameFunc func() (string, error)

// BuildPrefix composes the dot terminated namespace that is prepended to every metric name.
// An empty systemName leaves out the system segment. SystemNameAuto looks it up with hostname when
// prefix is empty or a group is given.
func BuildPrefix(prefix, systemName, group string, hostname HostnameFunc) (string, error) {
	return buildPrefix(prefix, systemName, group, hostname, false)
}

func buildPrefix(prefix, systemName, group string, hostname HostnameFunc, squashFQDN bool) (string, error) {
	var segments []string

	if prefix != "" {
		segments = append(segments, prefix)
	} else {
		segments = append(segments, defaultRootSegment)
	}

	switch {
	case systemName == "":
	case systemName == SystemNameAuto && prefix != "" && group == "":
		// a custom prefix stands on its own unless a group is nested under it
	case systemName == SystemNameAuto:
		if hostname == nil {
			hostname = os.Hostname
		}
		host, err := hostname()
		if err != nil {
			return "", fmt.Errorf("failed to resolve host name: %w", err)
		}
		if squashFQDN {
			host = strings.ReplaceAll(host, ".", "_")
		}
		if host != "" {
			segments = append(segments, host)
		}
	default:
		segments = append(segments, systemName)
	}

	if group != "" {
		segments = append(segments, group)
	}

	trimmed := segments[:0]
	for _, segment := range segments {
		if segment = strings.TrimRight(segment, "."); segment != "" {
			trimmed = append(trimmed, segment)
		}
	}
	if len(trimmed) == 0 {
		trimmed = append(trimmed, defaultRootSegment)
	}

	return strings.ReplaceAll(strings.Join(trimmed, "."), " ", "_") + ".", nil
}

var metricNameReplacer = strings.NewReplacer(
	"(", "_",
	")", "",
	" ", "_",
	"\t", "_",
	"\r", "_",
	"\n", "_",
)

// Sanitizer turns arbitrary metric names into tokens that are safe for the plaintext protocol.
type Sanitizer struct {
	Lowercase bool
}

// Clean replaces each space, tab, line break and opening parenthesis with an underscore and drops
// closing parentheses. Runs of spaces keep their length.
func (s Sanitizer) Clean(name string) string {
	name = metricNameReplacer.Replace(name)
	if s.Lowercase {
		name = strings.ToLower(name)
	}
	return name
}
