package timeline

import (
	"math"

	"example.com/wiblgate/internal/stats"
	"example.com/wiblgate/internal/wibl"
)

// DefaultQuantumBits is the elapsed counter width on current logger hardware.
const DefaultQuantumBits = 32

// wrapTracker corrects elapsed-time counter wraparound. The counter is a
// fixed-width millisecond value; whenever a packet's raw reading drops below
// its predecessor's, one quantum is added to the running offset. This assumes
// packets arrive in non-decreasing true-time order and at most one wrap
// between consecutive readings.
type wrapTracker struct {
	quantum float64
	offset  float64
	lastRaw float64
	primed  bool
}

func newWrapTracker(quantumBits uint) *wrapTracker {
	if quantumBits == 0 {
		quantumBits = DefaultQuantumBits
	}
	return &wrapTracker{quantum: math.Pow(2, float64(quantumBits))}
}

// correct returns the effective elapsed time for one raw counter reading and
// advances the tracker.
func (w *wrapTracker) correct(raw float64) float64 {
	if w.primed && raw < w.lastRaw {
		w.offset += w.quantum
	}
	w.primed = true
	w.lastRaw = raw
	return raw + w.offset
}

// ReconcileElapsed repairs packets whose elapsed-time counter is unset, in
// two steps.
//
// If the selected time source is a serial sentence type (ZDA/RMC), unstamped
// serial strings of that type first get an elapsed time synthesised from
// their own embedded date/time: the first parseable sentence anchors elapsed
// zero, and later ones are offset by their time difference in milliseconds.
//
// Any packet still unset is then bracketed by its nearest resolved
// neighbours in file order, and every packet in the gap receives the
// arithmetic mean of the two bracket values. The fill is deliberately flat
// rather than spread across the gap. The mean is computed on wrap-corrected
// values and stored back in the raw counter domain, so a later independent
// wraparound derivation over the repaired list reproduces the same effective
// times. Leading and trailing runs with only one bracket stay unset and are
// excluded from interpolation.
//
// The number of packets left unresolved is returned.
func ReconcileElapsed(packets []wibl.Packet, src TimeSource, st *stats.Statistics, quantumBits uint) int {
	if src == SourceZDA || src == SourceRMC {
		synthesiseSerialElapsed(packets, src, st)
	}

	tr := newWrapTracker(quantumBits)
	var (
		havePrev   bool
		prevEff    float64
		prevOffset float64
		pending    []int
	)
	for i, pkt := range packets {
		h := pkt.Hdr()
		if !h.HasElapsed() {
			pending = append(pending, i)
			continue
		}
		eff := tr.correct(h.Elapsed)
		if havePrev && len(pending) > 0 {
			fill := (prevEff+eff)/2 - prevOffset
			for _, j := range pending {
				packets[j].Hdr().Elapsed = fill
			}
		}
		pending = pending[:0]
		havePrev = true
		prevEff = eff
		prevOffset = tr.offset
	}

	unresolved := len(pending)
	if !havePrev {
		// No packet carried an elapsed time at all; everything stays unset.
		unresolved = 0
		for _, pkt := range packets {
			if !pkt.Hdr().HasElapsed() {
				unresolved++
			}
		}
		return unresolved
	}
	// Count the leading run, which never found a first bracket.
	for _, pkt := range packets {
		if pkt.Hdr().HasElapsed() {
			break
		}
		unresolved++
	}
	return unresolved
}

func synthesiseSerialElapsed(packets []wibl.Packet, src TimeSource, st *stats.Statistics) {
	var (
		epochSet  bool
		epochTime float64
	)
	for _, pkt := range packets {
		ss, ok := pkt.(*wibl.SerialString)
		if !ok || ss.HasElapsed() {
			continue
		}
		tag, ok := SentenceTag(ss.Payload)
		if !ok || tag != src.String() {
			continue
		}
		obs, fault := decodeSentence(ss.Payload)
		if fault != nil {
			st.Fault(tag, fault.kind, fault.detail)
			continue
		}
		if obs.parsedType != tag {
			st.Fault(tag, stats.TypeFault, "sentence decoded as "+obs.parsedType)
			continue
		}
		if !obs.hasRefTime {
			st.Fault(tag, stats.AttributeFault, "sentence carries no usable date/time")
			continue
		}
		if !epochSet {
			epochSet = true
			epochTime = obs.refTime
			ss.Elapsed = 0
			continue
		}
		ss.Elapsed = 1000 * (obs.refTime - epochTime)
	}
}
