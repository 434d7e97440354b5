package parser

import (
	"fmt"
	"strconv"
	"strings"
)

const fingerprintLen = 40

// ParseLine parses "<fingerprint> <method> [key=value]*".
// The fingerprint is only length checked here; ParseFile applies the hex check.
func ParseLine(line string) (*LineEntry, error) {
	parts := strings.Fields(line)
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: expected fingerprint and method", ErrInvalidLine)
	}
	if len(parts[0]) != fingerprintLen {
		return nil, fmt.Errorf("%w: fingerprint length %d", ErrInvalidLine, len(parts[0]))
	}

	entry := &LineEntry{
		Fingerprint:        parts[0],
		DistributionMethod: parts[1],
	}

	for _, part := range parts[2:] {
		kv := strings.Split(part, "=")
		if len(kv) != 2 {
			continue
		}
		key, value := kv[0], kv[1]

		switch key {
		case "transport":
			entry.Transport = &value
		case "ip":
			entry.IP = &value
		case "blocklist":
			entry.Blocklist = &value
		case "distributed":
			distributed := value == "true"
			entry.Distributed = &distributed
		case "state":
			entry.State = &value
		case "bandwidth":
			entry.Bandwidth = &value
		case "ratio":
			if ratio, err := strconv.ParseFloat(value, 64); err == nil {
				entry.Ratio = &ratio
			}
		}
	}

	return entry, nil
}
