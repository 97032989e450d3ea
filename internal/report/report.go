// Package report formats the outcome of one processing run for people and
// downstream tooling: a JSON summary and a printable PDF with an integrity QR
// code.
package report

import (
	"encoding/json"
	"os"
	"time"

	"example.com/wiblgate/internal/common"
	"example.com/wiblgate/internal/stats"
	"example.com/wiblgate/internal/timeline"
)

// ChannelCounts lists how many aligned observations each output channel ended
// up with.
type ChannelCounts struct {
	Depth     int `json:"depth"`
	Heading   int `json:"heading"`
	WaterTemp int `json:"watertemp"`
	Wind      int `json:"wind"`
}

// Summary is the per-file processing record written next to the converted
// output.
type Summary struct {
	File        string    `json:"file"`
	SizeBytes   int64     `json:"sizeBytes"`
	Sha256      string    `json:"sha256"`
	GeneratedAt time.Time `json:"generatedAt"`

	LoggerName    string `json:"loggerName,omitempty"`
	Platform      string `json:"platform,omitempty"`
	LoggerVersion string `json:"loggerVersion,omitempty"`

	TimeSource        string            `json:"timeSource"`
	TotalPackets      int               `json:"totalPackets"`
	TotalFaults       int               `json:"totalFaults"`
	UnresolvedElapsed int               `json:"unresolvedElapsed"`
	Packets           []stats.NameCount `json:"packets"`
	Channels          ChannelCounts     `json:"channels"`
}

// BuildSummary collects the summary for one processed file. The source file
// is re-read to hash it.
func BuildSummary(path string, res *timeline.Result, eng *timeline.Engine) (Summary, error) {
	hex, size, err := common.Sha256OfFile(path)
	if err != nil {
		return Summary{}, err
	}
	counts := eng.Statistics().Snapshot()
	faults := 0
	for _, c := range counts {
		faults += c.Faults
	}
	return Summary{
		File:              path,
		SizeBytes:         size,
		Sha256:            hex,
		GeneratedAt:       time.Now().UTC(),
		LoggerName:        res.LoggerName,
		Platform:          res.Platform,
		LoggerVersion:     res.LoggerVersion,
		TimeSource:        res.TimeSource,
		TotalPackets:      eng.PacketCount(),
		TotalFaults:       faults,
		UnresolvedElapsed: eng.UnresolvedElapsed(),
		Packets:           counts,
		Channels: ChannelCounts{
			Depth:     len(res.Depth.Z),
			Heading:   len(res.Heading.Heading),
			WaterTemp: len(res.WaterTemp.Temperature),
			Wind:      len(res.Wind.Direction),
		},
	}, nil
}

func SaveSummaryJSON(s Summary, out string) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0644)
}

func LoadSummaryJSON(path string) (Summary, error) {
	var s Summary
	b, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	err = json.Unmarshal(b, &s)
	return s, err
}

// SaveResultJSON writes the aligned observation channels themselves; this is
// the primary converted output.
func SaveResultJSON(res *timeline.Result, out string) error {
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0644)
}
