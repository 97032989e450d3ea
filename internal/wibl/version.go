package wibl

import (
	"errors"
	"fmt"
)

// Highest serialiser version this build understands. Files written by a newer
// serialiser are rejected rather than misread.
const (
	SerialiserVersionMajor uint16 = 1
	SerialiserVersionMinor uint16 = 1
)

var ErrNewerDataFile = errors.New("file was written by a newer serialiser than this build supports")

// ProtocolVersion folds a major/minor pair into a single comparable value.
func ProtocolVersion(major, minor uint16) uint32 {
	return uint32(major)*1000 + uint32(minor)
}

// MaxProtocolVersion is the encoded form of the build's version ceiling.
func MaxProtocolVersion() uint32 {
	return ProtocolVersion(SerialiserVersionMajor, SerialiserVersionMinor)
}

// CheckVersion gates a decoded SerialiserVersion packet against the build's
// version ceiling.
func CheckVersion(p *SerialiserVersion) error {
	if p == nil {
		return nil
	}
	if ProtocolVersion(p.Major, p.Minor) > MaxProtocolVersion() {
		return fmt.Errorf("file version %d.%d exceeds supported %d.%d: %w",
			p.Major, p.Minor, SerialiserVersionMajor, SerialiserVersionMinor, ErrNewerDataFile)
	}
	return nil
}
