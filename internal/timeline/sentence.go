package timeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/adrianmo/go-nmea"

	"example.com/wiblgate/internal/stats"
)

// Sentences shorter than this cannot carry their mandatory fields and are
// counted as short-message faults.
const minSentenceLen = 11

// SentenceTag extracts the three-letter sentence type from a raw NMEA0183
// sentence ("$GPZDA,…" → "ZDA").
func SentenceTag(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) < 6 || (trimmed[0] != '$' && trimmed[0] != '!') {
		return "", false
	}
	return trimmed[3:6], true
}

// sentenceFault describes a recoverable per-sentence failure in the fault
// taxonomy used by the statistics.
type sentenceFault struct {
	kind   stats.FaultKind
	detail string
}

// observation is the typed content extracted from one sentence; only the
// fields for the sentence's kind are populated.
type observation struct {
	parsedType string

	refTime    float64
	hasRefTime bool

	lat, lon    float64
	hasPosition bool

	depth    float64
	hasDepth bool

	heading    float64
	hasHeading bool

	waterTemp    float64
	hasWaterTemp bool

	windDir, windSpeed float64
	hasWind            bool
}

// decodeSentence parses one raw sentence and extracts whatever observation it
// carries. A nil observation with a non-nil fault means the sentence must be
// counted and skipped; an observation with no populated fields is a sentence
// type the timeline does not route.
func decodeSentence(raw string) (*observation, *sentenceFault) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) < minSentenceLen {
		return nil, &sentenceFault{kind: stats.ShortMessage, detail: fmt.Sprintf("%d chars", len(trimmed))}
	}
	sent, err := nmea.Parse(trimmed)
	if err != nil {
		kind := stats.ParseFault
		if strings.Contains(err.Error(), "checksum") {
			kind = stats.ChecksumFault
		}
		return nil, &sentenceFault{kind: kind, detail: err.Error()}
	}

	obs := &observation{parsedType: sent.DataType()}
	switch s := sent.(type) {
	case nmea.ZDA:
		if !s.Time.Valid || s.Year == 0 {
			return nil, &sentenceFault{kind: stats.AttributeFault, detail: "ZDA without complete date/time"}
		}
		obs.refTime = epochSeconds(int(s.Year), time.Month(s.Month), int(s.Day), s.Time)
		obs.hasRefTime = true
	case nmea.RMC:
		if !s.Date.Valid || !s.Time.Valid {
			return nil, &sentenceFault{kind: stats.AttributeFault, detail: "RMC without complete date/time"}
		}
		// Two-digit years resolve into 2000-2099; the logger hardware
		// postdates the rollover.
		obs.refTime = epochSeconds(2000+s.Date.YY, time.Month(s.Date.MM), s.Date.DD, s.Time)
		obs.hasRefTime = true
	case nmea.GGA:
		obs.lat, obs.lon = s.Latitude, s.Longitude
		obs.hasPosition = true
	case nmea.GLL:
		obs.lat, obs.lon = s.Latitude, s.Longitude
		obs.hasPosition = true
	case nmea.DBT:
		obs.depth = s.DepthMeters
		obs.hasDepth = true
	case nmea.DPT:
		obs.depth = s.Depth
		obs.hasDepth = true
	case nmea.HDT:
		obs.heading = s.Heading
		obs.hasHeading = true
	case nmea.MWD:
		obs.windDir = s.WindDirectionTrue
		obs.windSpeed = s.WindSpeedMeters
		obs.hasWind = true
	case nmea.MTW:
		obs.waterTemp = s.Temperature
		obs.hasWaterTemp = true
	}
	return obs, nil
}

func epochSeconds(year int, month time.Month, day int, t nmea.Time) float64 {
	base := time.Date(year, month, day, t.Hour, t.Minute, t.Second, 0, time.UTC).Unix()
	return float64(base) + float64(t.Millisecond)/1000
}
