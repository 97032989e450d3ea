package wibl

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"example.com/wiblgate/internal/common"
)

// Every record on the wire is {u32 type id, u32 payload length, payload},
// little-endian throughout. Fixed-layout payload sizes per type:
const (
	recordHeaderSize = 8
	commonFieldsSize = 14 // u16 date, f64 timestamp, u32 elapsed

	serialiserVersionSize = 16
	systemTimeSize        = commonFieldsSize + 1
	attitudeSize          = commonFieldsSize + 24
	depthSize             = commonFieldsSize + 24
	cogSize               = commonFieldsSize + 16
	gnssSize              = commonFieldsSize + 73
	environmentSize       = commonFieldsSize + 24
	temperatureSize       = commonFieldsSize + 8
	humiditySize          = commonFieldsSize + 8
	pressureSize          = commonFieldsSize + 8
	motionSize            = commonFieldsSize + 24

	// Payloads beyond this are treated as corruption rather than attempted.
	maxPayloadSize = 16 << 20
)

var (
	ErrPacketTranscription = errors.New("packet payload does not match its serialised layout")
	ErrUnknownPacketType   = errors.New("unrecognised packet type")
)

// Decode reads the next record from the stream.
//
// A clean end of stream (fewer than eight header bytes remaining) returns
// io.EOF. An unrecognised type id consumes the record, logs a warning and
// returns ErrUnknownPacketType so the caller can keep pulling from the
// stream. A payload that does not match the fixed layout for its type returns
// ErrPacketTranscription, which is fatal for the whole file.
func Decode(r io.Reader) (Packet, error) {
	var hdr [recordHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	id := binary.LittleEndian.Uint32(hdr[0:4])
	length := binary.LittleEndian.Uint32(hdr[4:8])
	if length > maxPayloadSize {
		return nil, fmt.Errorf("type %d declares %d byte payload: %w", id, length, ErrPacketTranscription)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("type %d payload truncated: %w", id, ErrPacketTranscription)
	}

	switch PacketType(id) {
	case TypeSerialiserVersion:
		return decodeSerialiserVersion(payload)
	case TypeSystemTime:
		return decodeSystemTime(payload)
	case TypeAttitude:
		return decodeAttitude(payload)
	case TypeDepth:
		return decodeDepth(payload)
	case TypeCOG:
		return decodeCOG(payload)
	case TypeGNSS:
		return decodeGNSS(payload)
	case TypeEnvironment:
		return decodeEnvironment(payload)
	case TypeTemperature:
		return decodeTemperature(payload)
	case TypeHumidity:
		return decodeHumidity(payload)
	case TypePressure:
		return decodePressure(payload)
	case TypeSerialString:
		return decodeSerialString(payload)
	case TypeMotion:
		return decodeMotion(payload)
	case TypeMetadata:
		return decodeMetadata(payload)
	case TypeAlgorithmRequest:
		return decodeAlgorithmRequest(payload)
	case TypeJSONMetadata:
		return decodeJSONMetadata(payload)
	case TypeNMEA0183Filter:
		return decodeNMEA0183Filter(payload)
	default:
		common.Logf("skipping unrecognised packet type %d (%d byte payload)", id, length)
		return nil, ErrUnknownPacketType
	}
}

// payloadReader walks a payload slice with little-endian accessors. Overruns
// latch short=true; decoders check it once at the end.
type payloadReader struct {
	buf   []byte
	off   int
	short bool
}

func (p *payloadReader) u8() uint8 {
	if p.off+1 > len(p.buf) {
		p.short = true
		return 0
	}
	v := p.buf[p.off]
	p.off++
	return v
}

func (p *payloadReader) u16() uint16 {
	if p.off+2 > len(p.buf) {
		p.short = true
		return 0
	}
	v := binary.LittleEndian.Uint16(p.buf[p.off:])
	p.off += 2
	return v
}

func (p *payloadReader) u32() uint32 {
	if p.off+4 > len(p.buf) {
		p.short = true
		return 0
	}
	v := binary.LittleEndian.Uint32(p.buf[p.off:])
	p.off += 4
	return v
}

func (p *payloadReader) f64() float64 {
	if p.off+8 > len(p.buf) {
		p.short = true
		return 0
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(p.buf[p.off:]))
	p.off += 8
	return v
}

// str reads one u32-length-prefixed byte string.
func (p *payloadReader) str() string {
	n := int(p.u32())
	if p.short || p.off+n > len(p.buf) {
		p.short = true
		return ""
	}
	v := string(p.buf[p.off : p.off+n])
	p.off += n
	return v
}

func (p *payloadReader) common() Header {
	return Header{
		Date:      p.u16(),
		Timestamp: p.f64(),
		Elapsed:   float64(p.u32()),
	}
}

// done reports whether the payload was consumed exactly.
func (p *payloadReader) done() bool {
	return !p.short && p.off == len(p.buf)
}

func sizeErr(t PacketType, got, want int) error {
	return fmt.Errorf("%s payload is %d bytes, want %d: %w", t, got, want, ErrPacketTranscription)
}

func stringErr(t PacketType) error {
	return fmt.Errorf("%s string fields disagree with payload length: %w", t, ErrPacketTranscription)
}

func decodeSerialiserVersion(buf []byte) (*SerialiserVersion, error) {
	if len(buf) != serialiserVersionSize {
		return nil, sizeErr(TypeSerialiserVersion, len(buf), serialiserVersionSize)
	}
	p := &payloadReader{buf: buf}
	out := &SerialiserVersion{Header: Header{Elapsed: ElapsedUnset}}
	out.Major = p.u16()
	out.Minor = p.u16()
	out.NMEA2000 = ComponentVersion{Major: p.u16(), Minor: p.u16(), Patch: p.u16()}
	out.NMEA0183 = ComponentVersion{Major: p.u16(), Minor: p.u16(), Patch: p.u16()}
	return out, nil
}

func decodeSystemTime(buf []byte) (*SystemTime, error) {
	if len(buf) != systemTimeSize {
		return nil, sizeErr(TypeSystemTime, len(buf), systemTimeSize)
	}
	p := &payloadReader{buf: buf}
	return &SystemTime{Header: p.common(), Source: p.u8()}, nil
}

func decodeAttitude(buf []byte) (*Attitude, error) {
	if len(buf) != attitudeSize {
		return nil, sizeErr(TypeAttitude, len(buf), attitudeSize)
	}
	p := &payloadReader{buf: buf}
	return &Attitude{Header: p.common(), Yaw: p.f64(), Pitch: p.f64(), Roll: p.f64()}, nil
}

func decodeDepth(buf []byte) (*Depth, error) {
	if len(buf) != depthSize {
		return nil, sizeErr(TypeDepth, len(buf), depthSize)
	}
	p := &payloadReader{buf: buf}
	return &Depth{Header: p.common(), Depth: p.f64(), Offset: p.f64(), Range: p.f64()}, nil
}

func decodeCOG(buf []byte) (*COG, error) {
	if len(buf) != cogSize {
		return nil, sizeErr(TypeCOG, len(buf), cogSize)
	}
	p := &payloadReader{buf: buf}
	return &COG{Header: p.common(), CourseOverGround: p.f64(), SpeedOverGround: p.f64()}, nil
}

func decodeGNSS(buf []byte) (*GNSS, error) {
	if len(buf) != gnssSize {
		return nil, sizeErr(TypeGNSS, len(buf), gnssSize)
	}
	p := &payloadReader{buf: buf}
	out := &GNSS{Header: p.common()}
	out.MsgDate = p.u16()
	out.MsgTime = p.f64()
	out.Latitude = p.f64()
	out.Longitude = p.f64()
	out.Altitude = p.f64()
	out.ReceiverType = p.u8()
	out.ReceiverMethod = p.u8()
	out.NumSVs = p.u8()
	out.HorizontalDOP = p.f64()
	out.PositionDOP = p.f64()
	out.GeoidSeparation = p.f64()
	out.NumRefStations = p.u8()
	out.RefStationType = p.u8()
	out.RefStationID = p.u16()
	out.CorrectionAge = p.f64()
	return out, nil
}

func decodeEnvironment(buf []byte) (*Environment, error) {
	if len(buf) != environmentSize {
		return nil, sizeErr(TypeEnvironment, len(buf), environmentSize)
	}
	p := &payloadReader{buf: buf}
	return &Environment{Header: p.common(), Temperature: p.f64(), Humidity: p.f64(), Pressure: p.f64()}, nil
}

func decodeTemperature(buf []byte) (*Temperature, error) {
	if len(buf) != temperatureSize {
		return nil, sizeErr(TypeTemperature, len(buf), temperatureSize)
	}
	p := &payloadReader{buf: buf}
	return &Temperature{Header: p.common(), Temperature: p.f64()}, nil
}

func decodeHumidity(buf []byte) (*Humidity, error) {
	if len(buf) != humiditySize {
		return nil, sizeErr(TypeHumidity, len(buf), humiditySize)
	}
	p := &payloadReader{buf: buf}
	return &Humidity{Header: p.common(), Humidity: p.f64()}, nil
}

func decodePressure(buf []byte) (*Pressure, error) {
	if len(buf) != pressureSize {
		return nil, sizeErr(TypePressure, len(buf), pressureSize)
	}
	p := &payloadReader{buf: buf}
	return &Pressure{Header: p.common(), Pressure: p.f64()}, nil
}

func decodeSerialString(buf []byte) (*SerialString, error) {
	p := &payloadReader{buf: buf}
	raw := p.u32()
	payload := p.str()
	if !p.done() {
		return nil, stringErr(TypeSerialString)
	}
	elapsed := float64(raw)
	if raw == 0 {
		// Older firmware does not stamp serial strings; a zero counter is
		// the unset sentinel here, never a real reading.
		elapsed = ElapsedUnset
	}
	return &SerialString{Header: Header{Elapsed: elapsed}, Payload: payload}, nil
}

func decodeMotion(buf []byte) (*Motion, error) {
	if len(buf) != motionSize {
		return nil, sizeErr(TypeMotion, len(buf), motionSize)
	}
	p := &payloadReader{buf: buf}
	return &Motion{Header: p.common(), AccelX: p.f64(), AccelY: p.f64(), AccelZ: p.f64()}, nil
}

func decodeMetadata(buf []byte) (*Metadata, error) {
	p := &payloadReader{buf: buf}
	name := p.str()
	id := p.str()
	if !p.done() {
		return nil, stringErr(TypeMetadata)
	}
	return &Metadata{Header: Header{Elapsed: ElapsedUnset}, LoggerName: name, UniqueID: id}, nil
}

func decodeAlgorithmRequest(buf []byte) (*AlgorithmRequest, error) {
	p := &payloadReader{buf: buf}
	name := p.str()
	params := p.str()
	if !p.done() {
		return nil, stringErr(TypeAlgorithmRequest)
	}
	return &AlgorithmRequest{Header: Header{Elapsed: ElapsedUnset}, Name: name, Params: params}, nil
}

func decodeJSONMetadata(buf []byte) (*JSONMetadata, error) {
	p := &payloadReader{buf: buf}
	payload := p.str()
	if !p.done() {
		return nil, stringErr(TypeJSONMetadata)
	}
	return &JSONMetadata{Header: Header{Elapsed: ElapsedUnset}, Payload: payload}, nil
}

func decodeNMEA0183Filter(buf []byte) (*NMEA0183Filter, error) {
	p := &payloadReader{buf: buf}
	id := p.str()
	if !p.done() {
		return nil, stringErr(TypeNMEA0183Filter)
	}
	return &NMEA0183Filter{Header: Header{Elapsed: ElapsedUnset}, SentenceID: id}, nil
}

type payloadWriter struct {
	buf []byte
}

func (w *payloadWriter) u8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *payloadWriter) u16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *payloadWriter) u32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *payloadWriter) f64(v float64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(v))
}

func (w *payloadWriter) str(s string) {
	w.u32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *payloadWriter) common(h Header) {
	w.u16(h.Date)
	w.f64(h.Timestamp)
	w.u32(wireElapsed(h))
}

// wireElapsed narrows the in-memory counter back to the 32-bit wire field.
// Unset counters serialise as zero.
func wireElapsed(h Header) uint32 {
	if h.Elapsed < 0 {
		return 0
	}
	return uint32(h.Elapsed)
}

// Encode serialises a packet into a complete wire record, the exact inverse
// of Decode for every kind.
func Encode(pkt Packet) ([]byte, error) {
	w := &payloadWriter{}
	switch p := pkt.(type) {
	case *SerialiserVersion:
		w.u16(p.Major)
		w.u16(p.Minor)
		w.u16(p.NMEA2000.Major)
		w.u16(p.NMEA2000.Minor)
		w.u16(p.NMEA2000.Patch)
		w.u16(p.NMEA0183.Major)
		w.u16(p.NMEA0183.Minor)
		w.u16(p.NMEA0183.Patch)
	case *SystemTime:
		w.common(p.Header)
		w.u8(p.Source)
	case *Attitude:
		w.common(p.Header)
		w.f64(p.Yaw)
		w.f64(p.Pitch)
		w.f64(p.Roll)
	case *Depth:
		w.common(p.Header)
		w.f64(p.Depth)
		w.f64(p.Offset)
		w.f64(p.Range)
	case *COG:
		w.common(p.Header)
		w.f64(p.CourseOverGround)
		w.f64(p.SpeedOverGround)
	case *GNSS:
		w.common(p.Header)
		w.u16(p.MsgDate)
		w.f64(p.MsgTime)
		w.f64(p.Latitude)
		w.f64(p.Longitude)
		w.f64(p.Altitude)
		w.u8(p.ReceiverType)
		w.u8(p.ReceiverMethod)
		w.u8(p.NumSVs)
		w.f64(p.HorizontalDOP)
		w.f64(p.PositionDOP)
		w.f64(p.GeoidSeparation)
		w.u8(p.NumRefStations)
		w.u8(p.RefStationType)
		w.u16(p.RefStationID)
		w.f64(p.CorrectionAge)
	case *Environment:
		w.common(p.Header)
		w.f64(p.Temperature)
		w.f64(p.Humidity)
		w.f64(p.Pressure)
	case *Temperature:
		w.common(p.Header)
		w.f64(p.Temperature)
	case *Humidity:
		w.common(p.Header)
		w.f64(p.Humidity)
	case *Pressure:
		w.common(p.Header)
		w.f64(p.Pressure)
	case *SerialString:
		w.u32(wireElapsed(p.Header))
		w.str(p.Payload)
	case *Motion:
		w.common(p.Header)
		w.f64(p.AccelX)
		w.f64(p.AccelY)
		w.f64(p.AccelZ)
	case *Metadata:
		w.str(p.LoggerName)
		w.str(p.UniqueID)
	case *AlgorithmRequest:
		w.str(p.Name)
		w.str(p.Params)
	case *JSONMetadata:
		w.str(p.Payload)
	case *NMEA0183Filter:
		w.str(p.SentenceID)
	default:
		return nil, fmt.Errorf("encode: %w (%T)", ErrUnknownPacketType, pkt)
	}

	out := make([]byte, recordHeaderSize, recordHeaderSize+len(w.buf))
	binary.LittleEndian.PutUint32(out[0:4], uint32(pkt.Type()))
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(w.buf)))
	return append(out, w.buf...), nil
}
