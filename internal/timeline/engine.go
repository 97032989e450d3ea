// Package timeline reconstructs a consistent real-world timeline for the
// observations in a logger file. Logger-side time assignment is causal and
// inaccurate, so timestamps are re-derived offline: the whole file is decoded
// first, the best real-time reference channel is selected, elapsed-time
// counters are repaired where the firmware left them unset, and every
// observation channel is then interpolated against the reference. The
// algorithm is inherently two-pass and cannot stream.
package timeline

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"example.com/wiblgate/internal/common"
	"example.com/wiblgate/internal/stats"
	"example.com/wiblgate/internal/wibl"
)

var ErrNoData = errors.New("no usable observations in file")

// Options configure one processing run.
type Options struct {
	// QuantumBits is the bit width of the logger's elapsed-time counter.
	QuantumBits uint
	// FaultLimit caps individually logged faults per name.
	FaultLimit int
	// Metrics, when set, receives throughput counters.
	Metrics *common.Metrics
}

type Algorithm struct {
	Name   string `json:"name"`
	Params string `json:"params"`
}

// Series is the common part of every output channel: per-observation epoch
// seconds and interpolated position, all arrays equal length.
type Series struct {
	T   []float64 `json:"t"`
	Lat []float64 `json:"lat"`
	Lon []float64 `json:"lon"`
}

type DepthSeries struct {
	Series
	Z []float64 `json:"z"`
}

type HeadingSeries struct {
	Series
	Heading []float64 `json:"heading"`
}

type WaterTempSeries struct {
	Series
	Temperature []float64 `json:"temperature"`
}

type WindSeries struct {
	Series
	Direction []float64 `json:"direction"`
	Speed     []float64 `json:"speed"`
}

// Result is the aligned output handed to external formatting stages.
type Result struct {
	LoggerName    string          `json:"loggername"`
	Platform      string          `json:"platform"`
	LoggerVersion string          `json:"loggerversion"`
	Metadata      *string         `json:"metadata"`
	Algorithms    []Algorithm     `json:"algorithms"`
	TimeSource    string          `json:"timesource"`
	Depth         DepthSeries     `json:"depth"`
	Heading       HeadingSeries   `json:"heading"`
	WaterTemp     WaterTempSeries `json:"watertemp"`
	Wind          WindSeries      `json:"wind"`
}

// Engine processes exactly one file; state does not survive across files.
type Engine struct {
	opts    Options
	stats   *stats.Statistics
	packets []wibl.Packet
	version *wibl.SerialiserVersion
	source  TimeSource

	needsElapsedRepair bool
	unresolvedElapsed  int
}

func NewEngine(opts Options) *Engine {
	if opts.QuantumBits == 0 {
		opts.QuantumBits = DefaultQuantumBits
	}
	return &Engine{
		opts:  opts,
		stats: stats.New(opts.FaultLimit),
	}
}

func (e *Engine) Statistics() *stats.Statistics { return e.stats }

// TimeSource reports the reference channel chosen for the file; valid after
// Process.
func (e *Engine) TimeSource() TimeSource { return e.source }

// PacketCount reports how many packets were decoded; valid after Process.
func (e *Engine) PacketCount() int { return len(e.packets) }

// UnresolvedElapsed reports how many packets still lacked an elapsed time
// after reconciliation; valid after Process.
func (e *Engine) UnresolvedElapsed() int { return e.unresolvedElapsed }

// ProcessFile runs the full two-pass algorithm over the file at path. The
// file handle is held only while the packet list is materialised.
func (e *Engine) ProcessFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if e.opts.Metrics != nil {
		if info, err := f.Stat(); err == nil {
			e.opts.Metrics.SetTotalBytes(info.Size())
		}
	}
	res, perr := e.Process(bufio.NewReader(f))
	if cerr := f.Close(); perr == nil && cerr != nil {
		return nil, cerr
	}
	return res, perr
}

// Process runs the full algorithm over an already-open stream. Fatal errors
// abort with no partial result.
func (e *Engine) Process(r io.Reader) (*Result, error) {
	if err := e.load(r); err != nil {
		return nil, err
	}
	src, err := SelectTimeSource(e.stats)
	if err != nil {
		return nil, err
	}
	e.source = src
	if e.needsElapsedRepair {
		e.unresolvedElapsed = ReconcileElapsed(e.packets, src, e.stats, e.opts.QuantumBits)
	}
	return e.interpolate()
}

// load decodes every packet into memory, tallying statistics as it goes.
// Time-source selection needs the whole file's statistics, which is why the
// list is materialised rather than streamed.
func (e *Engine) load(r io.Reader) error {
	if e.opts.Metrics != nil {
		r = &countingReader{r: r, m: e.opts.Metrics}
	}
	for {
		pkt, err := wibl.Decode(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, wibl.ErrUnknownPacketType) {
				continue
			}
			return err
		}
		if e.opts.Metrics != nil {
			e.opts.Metrics.IncPacket()
		}
		if ss, ok := pkt.(*wibl.SerialString); ok {
			// Serial strings are tallied under their sentence tag so the
			// selector can see which NMEA0183 channels exist.
			if tag, ok := SentenceTag(ss.Payload); ok {
				e.stats.Observed(tag)
			} else {
				e.fault(wibl.TypeSerialString.String(), stats.ShortMessage,
					fmt.Sprintf("%d chars", len(ss.Payload)))
			}
		} else {
			e.stats.Observed(pkt.Type().String())
			if sv, ok := pkt.(*wibl.SerialiserVersion); ok {
				if err := wibl.CheckVersion(sv); err != nil {
					return err
				}
				e.version = sv
			}
		}
		if !pkt.Hdr().HasElapsed() {
			e.needsElapsedRepair = true
		}
		e.packets = append(e.packets, pkt)
	}
}

func (e *Engine) fault(name string, kind stats.FaultKind, detail string) {
	e.stats.Fault(name, kind, detail)
	if e.opts.Metrics != nil {
		e.opts.Metrics.IncFault()
	}
}

// interpolate is the second pass: it routes every packet into its channel
// table and then aligns each channel against the reference-time and position
// tables. The wraparound offset is re-derived here from scratch rather than
// carried over from reconciliation; both derivations agree over the repaired
// packet list, and downstream consumers rely on each pass being independently
// reproducible.
func (e *Engine) interpolate() (*Result, error) {
	ref := NewTable("ref")
	pos := NewTable("lon", "lat")
	depth := NewTable("z")
	heading := NewTable("h")
	temp := NewTable("temp")
	wind := NewTable("dir", "spd")

	res := &Result{
		Algorithms: []Algorithm{},
		TimeSource: e.source.String(),
	}
	if e.version != nil {
		res.LoggerVersion = fmt.Sprintf("%d.%d", e.version.Major, e.version.Minor)
	}

	tr := newWrapTracker(e.opts.QuantumBits)
	for _, pkt := range e.packets {
		h := pkt.Hdr()
		resolved := h.HasElapsed()
		var eff float64
		if resolved {
			eff = tr.correct(h.Elapsed)
		}
		var err error
		switch p := pkt.(type) {
		case *wibl.Metadata:
			res.LoggerName = p.LoggerName
			res.Platform = p.UniqueID
		case *wibl.JSONMetadata:
			doc := p.Payload
			res.Metadata = &doc
		case *wibl.AlgorithmRequest:
			res.Algorithms = append(res.Algorithms, Algorithm{Name: p.Name, Params: p.Params})
		case *wibl.SystemTime:
			if resolved && e.source == SourceSystemTime {
				err = ref.AddPoint(eff, "ref", p.EpochSeconds())
			}
		case *wibl.GNSS:
			if resolved {
				err = pos.AddPoints(eff, []string{"lon", "lat"}, []float64{p.Longitude, p.Latitude})
				if err == nil && e.source == SourceGNSS {
					err = ref.AddPoint(eff, "ref", float64(p.MsgDate)*86400+p.MsgTime)
				}
			}
		case *wibl.Depth:
			if resolved {
				err = depth.AddPoint(eff, "z", p.Depth)
			}
		case *wibl.SerialString:
			if resolved {
				err = e.routeSentence(p, eff, ref, pos, depth, heading, temp, wind)
			}
		}
		if err != nil {
			return nil, err
		}
	}

	if depth.NPoints() == 0 {
		return nil, fmt.Errorf("no depth observations: %w", ErrNoData)
	}
	if ref.NPoints() == 0 {
		return nil, fmt.Errorf("%s packets carried no usable reference points: %w", e.source, ErrNoTimeSource)
	}
	if pos.NPoints() == 0 {
		return nil, fmt.Errorf("no position observations: %w", ErrNoData)
	}

	var err error
	if res.Depth.Series, err = alignChannel(depth, ref, pos); err != nil {
		return nil, err
	}
	res.Depth.Z = channelValues(depth, "z")
	if res.Heading.Series, err = alignChannel(heading, ref, pos); err != nil {
		return nil, err
	}
	res.Heading.Heading = channelValues(heading, "h")
	if res.WaterTemp.Series, err = alignChannel(temp, ref, pos); err != nil {
		return nil, err
	}
	res.WaterTemp.Temperature = channelValues(temp, "temp")
	if res.Wind.Series, err = alignChannel(wind, ref, pos); err != nil {
		return nil, err
	}
	res.Wind.Direction = channelValues(wind, "dir")
	res.Wind.Speed = channelValues(wind, "spd")
	return res, nil
}

// routeSentence dispatches one stamped serial string into the channel table
// matching its sentence type. Failures are recoverable: they are counted
// against the tag and the sentence is skipped.
func (e *Engine) routeSentence(ss *wibl.SerialString, eff float64, ref, pos, depth, heading, temp, wind *Table) error {
	tag, ok := SentenceTag(ss.Payload)
	if !ok {
		// Tallied as a short message during load.
		return nil
	}
	obs, fault := decodeSentence(ss.Payload)
	if fault != nil {
		e.fault(tag, fault.kind, fault.detail)
		return nil
	}
	if obs.parsedType != tag {
		e.fault(tag, stats.TypeFault, "sentence decoded as "+obs.parsedType)
		return nil
	}
	switch {
	case obs.hasRefTime:
		// Reference points come only from the selected sentence type; an
		// unselected time sentence is simply not routed.
		if (e.source == SourceZDA && tag == "ZDA") || (e.source == SourceRMC && tag == "RMC") {
			return ref.AddPoint(eff, "ref", obs.refTime)
		}
	case obs.hasPosition:
		return pos.AddPoints(eff, []string{"lon", "lat"}, []float64{obs.lon, obs.lat})
	case obs.hasDepth:
		return depth.AddPoint(eff, "z", obs.depth)
	case obs.hasHeading:
		return heading.AddPoint(eff, "h", obs.heading)
	case obs.hasWind:
		return wind.AddPoints(eff, []string{"dir", "spd"}, []float64{obs.windDir, obs.windSpeed})
	case obs.hasWaterTemp:
		return temp.AddPoint(eff, "temp", obs.waterTemp)
	}
	return nil
}

// alignChannel interpolates real time and position onto a channel's own
// elapsed-time axis.
func alignChannel(channel, ref, pos *Table) (Series, error) {
	xs := channel.Ind()
	tvals, err := ref.Interpolate([]string{"ref"}, xs)
	if err != nil {
		return Series{}, err
	}
	pvals, err := pos.Interpolate([]string{"lon", "lat"}, xs)
	if err != nil {
		return Series{}, err
	}
	return Series{T: tvals[0], Lon: pvals[0], Lat: pvals[1]}, nil
}

func channelValues(t *Table, name string) []float64 {
	col, err := t.Var(name)
	if err != nil || col == nil {
		return []float64{}
	}
	return col
}

type countingReader struct {
	r io.Reader
	m *common.Metrics
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.m.AddBytes(int64(n))
	}
	return n, err
}
