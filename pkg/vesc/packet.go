// Package vesc drives a VESC motor controller over a serial link.
package vesc

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Command IDs from the VESC firmware communication protocol.
const (
	CommSetDuty     byte = 5
	CommSetDetect   byte = 11
	CommSetServoPos byte = 12
	CommAlive       byte = 30
)

// Frame delimiters.
const (
	startShort byte = 0x02
	startLong  byte = 0x03
	stopByte   byte = 0x03
)

// Wire scaling of command values.
const (
	dutyScale  = 100000
	servoScale = 1000
)

// DispPosOff disables rotor position streaming (used with CommSetDetect).
const DispPosOff byte = 0

// CRC16 computes CRC-16/XMODEM (poly 0x1021, init 0) over data.
func CRC16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for range 8 {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// Encode frames a payload: start byte, length, payload, CRC16, stop byte.
// Payloads up to 256 bytes use the one-byte length form.
func Encode(payload []byte) ([]byte, error) {
	n := len(payload)
	if n == 0 {
		return nil, fmt.Errorf("vesc: empty payload")
	}
	if n > math.MaxUint16 {
		return nil, fmt.Errorf("vesc: payload too large (%d bytes)", n)
	}

	var out []byte
	if n <= 256 {
		out = make([]byte, 0, n+5)
		out = append(out, startShort, byte(n))
	} else {
		out = make([]byte, 0, n+6)
		out = append(out, startLong, byte(n>>8), byte(n))
	}
	out = append(out, payload...)
	out = binary.BigEndian.AppendUint16(out, CRC16(payload))
	out = append(out, stopByte)
	return out, nil
}

// DutyPayload encodes COMM_SET_DUTY for a duty cycle in [-1, 1].
func DutyPayload(duty float64) []byte {
	p := []byte{CommSetDuty}
	return binary.BigEndian.AppendUint32(p, uint32(int32(math.Round(duty*dutyScale))))
}

// ServoPayload encodes COMM_SET_SERVO_POS for a servo position (nominally 0..1).
// Positions beyond the int16 wire range saturate rather than wrap.
func ServoPayload(pos float64) []byte {
	v := math.Round(pos * servoScale)
	switch {
	case math.IsNaN(v):
		v = 0
	case v > math.MaxInt16:
		v = math.MaxInt16
	case v < math.MinInt16:
		v = math.MinInt16
	}
	p := []byte{CommSetServoPos}
	return binary.BigEndian.AppendUint16(p, uint16(int16(v)))
}

// AlivePayload encodes the COMM_ALIVE keep-alive.
func AlivePayload() []byte {
	return []byte{CommAlive}
}

// DetectPayload encodes COMM_SET_DETECT with the given display mode.
func DetectPayload(mode byte) []byte {
	return []byte{CommSetDetect, mode}
}
