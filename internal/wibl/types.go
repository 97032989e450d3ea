package wibl

// ElapsedUnset marks a packet whose logger-local elapsed-time counter was not
// recorded. Reconciliation may later replace it with a synthesised value;
// packets still carrying it after reconciliation are excluded from
// interpolation.
const ElapsedUnset = float64(-1)

// Header carries the fields common to every packet: the logger-assigned date
// (days since 1970-01-01), timestamp (seconds since midnight) and the local
// monotonic elapsed-time counter in milliseconds since boot.
//
// Elapsed is widened to float64 because reconciliation can assign fractional
// fill values and wraparound correction pushes effective values past the
// 32-bit wire range.
type Header struct {
	Date      uint16
	Timestamp float64
	Elapsed   float64
}

func (h *Header) Hdr() *Header { return h }

func (h *Header) HasElapsed() bool { return h.Elapsed >= 0 }

// EpochSeconds converts the logger-assigned date/timestamp pair into seconds
// since the Unix epoch.
func (h *Header) EpochSeconds() float64 {
	return float64(h.Date)*86400 + h.Timestamp
}

type PacketType uint32

const (
	TypeSerialiserVersion PacketType = iota
	TypeSystemTime
	TypeAttitude
	TypeDepth
	TypeCOG
	TypeGNSS
	TypeEnvironment
	TypeTemperature
	TypeHumidity
	TypePressure
	TypeSerialString
	TypeMotion
	TypeMetadata
	TypeAlgorithmRequest
	TypeJSONMetadata
	TypeNMEA0183Filter

	numPacketTypes
)

var packetTypeNames = [numPacketTypes]string{
	"SerialiserVersion",
	"SystemTime",
	"Attitude",
	"Depth",
	"COG",
	"GNSS",
	"Environment",
	"Temperature",
	"Humidity",
	"Pressure",
	"SerialString",
	"Motion",
	"Metadata",
	"AlgorithmRequest",
	"JSONMetadata",
	"NMEA0183Filter",
}

func (t PacketType) String() string {
	if t < numPacketTypes {
		return packetTypeNames[t]
	}
	return "Unknown"
}

// Packet is the closed union of the sixteen record kinds a logger file can
// contain. Exactly one struct below implements it per wire type id.
type Packet interface {
	Type() PacketType
	Hdr() *Header
}

// ComponentVersion is a semantic version triple for one of the logger's
// protocol translators.
type ComponentVersion struct {
	Major uint16
	Minor uint16
	Patch uint16
}

// SerialiserVersion is always the first packet of a file and declares the
// serialiser and translator versions the logger was built with.
type SerialiserVersion struct {
	Header
	Major    uint16
	Minor    uint16
	NMEA2000 ComponentVersion
	NMEA0183 ComponentVersion
}

// SystemTime is the logger's own real-time reference, pre-decoded from the
// NMEA2000 bus.
type SystemTime struct {
	Header
	Source uint8
}

type Attitude struct {
	Header
	Yaw   float64
	Pitch float64
	Roll  float64
}

// Depth is a single sounding in metres, with the transducer offset and the
// maximum range configured at measurement time.
type Depth struct {
	Header
	Depth  float64
	Offset float64
	Range  float64
}

type COG struct {
	Header
	CourseOverGround float64
	SpeedOverGround  float64
}

// GNSS is a pre-decoded NMEA2000 position report. MsgDate/MsgTime are the
// date and in-day time reported by the receiver itself, as opposed to the
// logger-assigned pair in the header.
type GNSS struct {
	Header
	MsgDate         uint16
	MsgTime         float64
	Latitude        float64
	Longitude       float64
	Altitude        float64
	ReceiverType    uint8
	ReceiverMethod  uint8
	NumSVs          uint8
	HorizontalDOP   float64
	PositionDOP     float64
	GeoidSeparation float64
	NumRefStations  uint8
	RefStationType  uint8
	RefStationID    uint16
	CorrectionAge   float64
}

type Environment struct {
	Header
	Temperature float64
	Humidity    float64
	Pressure    float64
}

type Temperature struct {
	Header
	Temperature float64
}

type Humidity struct {
	Header
	Humidity float64
}

type Pressure struct {
	Header
	Pressure float64
}

// SerialString carries one raw NMEA0183 sentence as logged from the serial
// bus. Older logger firmware does not stamp these records, in which case the
// wire counter is zero and the header is decoded as ElapsedUnset.
type SerialString struct {
	Header
	Payload string
}

type Motion struct {
	Header
	AccelX float64
	AccelY float64
	AccelZ float64
}

// Metadata identifies the logger and the platform it is mounted on.
type Metadata struct {
	Header
	LoggerName string
	UniqueID   string
}

// AlgorithmRequest asks the post-processing chain to run a named algorithm
// with the given parameter string.
type AlgorithmRequest struct {
	Header
	Name   string
	Params string
}

// JSONMetadata carries an opaque JSON document supplied at logger
// configuration time; it is passed through to the output untouched.
type JSONMetadata struct {
	Header
	Payload string
}

// NMEA0183Filter echoes one sentence identifier the logger was configured to
// accept on the serial bus.
type NMEA0183Filter struct {
	Header
	SentenceID string
}

func (*SerialiserVersion) Type() PacketType { return TypeSerialiserVersion }
func (*SystemTime) Type() PacketType        { return TypeSystemTime }
func (*Attitude) Type() PacketType          { return TypeAttitude }
func (*Depth) Type() PacketType             { return TypeDepth }
func (*COG) Type() PacketType               { return TypeCOG }
func (*GNSS) Type() PacketType              { return TypeGNSS }
func (*Environment) Type() PacketType       { return TypeEnvironment }
func (*Temperature) Type() PacketType       { return TypeTemperature }
func (*Humidity) Type() PacketType          { return TypeHumidity }
func (*Pressure) Type() PacketType          { return TypePressure }
func (*SerialString) Type() PacketType      { return TypeSerialString }
func (*Motion) Type() PacketType            { return TypeMotion }
func (*Metadata) Type() PacketType          { return TypeMetadata }
func (*AlgorithmRequest) Type() PacketType  { return TypeAlgorithmRequest }
func (*JSONMetadata) Type() PacketType      { return TypeJSONMetadata }
func (*NMEA0183Filter) Type() PacketType    { return TypeNMEA0183Filter }
