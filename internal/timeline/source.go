package timeline

import (
	"errors"

	"example.com/wiblgate/internal/stats"
)

// TimeSource identifies the real-time reference channel used to translate
// elapsed time into UTC.
type TimeSource int

const (
	SourceNone TimeSource = iota
	SourceSystemTime
	SourceGNSS
	SourceZDA
	SourceRMC
)

func (s TimeSource) String() string {
	switch s {
	case SourceSystemTime:
		return "SystemTime"
	case SourceGNSS:
		return "GNSS"
	case SourceZDA:
		return "ZDA"
	case SourceRMC:
		return "RMC"
	default:
		return "none"
	}
}

var ErrNoTimeSource = errors.New("no usable real-time reference in file")

// timeSourcePriority lists candidate references best-first. The NMEA2000
// sources are pre-decoded and low-latency; ZDA carries a full date/time;
// RMC is the weakest fallback with minimal fix data.
var timeSourcePriority = []TimeSource{SourceSystemTime, SourceGNSS, SourceZDA, SourceRMC}

// SelectTimeSource picks the single best reference channel present in the
// file's statistics. A channel counts as present if it was seen at all, even
// if only through faults.
func SelectTimeSource(st *stats.Statistics) (TimeSource, error) {
	for _, src := range timeSourcePriority {
		if st.Seen(src.String()) {
			return src, nil
		}
	}
	return SourceNone, ErrNoTimeSource
}
