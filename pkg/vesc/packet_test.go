package vesc

import (
	"bytes"
	"math"
	"testing"
)

func TestCRC16_CheckValue(t *testing.T) {
	// CRC-16/XMODEM check value.
	if got := CRC16([]byte("123456789")); got != 0x31C3 {
		t.Errorf("CRC16 = %#04x, want 0x31c3", got)
	}
	if got := CRC16(nil); got != 0 {
		t.Errorf("CRC16(nil) = %#04x, want 0", got)
	}
}

func TestEncode_ShortFrame(t *testing.T) {
	payload := AlivePayload()
	frame, err := Encode(payload)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	crc := CRC16(payload)
	want := []byte{0x02, 0x01, CommAlive, byte(crc >> 8), byte(crc), 0x03}
	if !bytes.Equal(frame, want) {
		t.Errorf("frame = % x, want % x", frame, want)
	}
}

func TestEncode_LongFrame(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAA}, 300)
	frame, err := Encode(payload)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if frame[0] != 0x03 || frame[1] != 0x01 || frame[2] != 0x2C {
		t.Errorf("long header = % x, want 03 01 2c", frame[:3])
	}
	if len(frame) != 300+6 {
		t.Errorf("len = %d, want 306", len(frame))
	}
	if frame[len(frame)-1] != 0x03 {
		t.Error("missing stop byte")
	}
}

func TestEncode_Empty(t *testing.T) {
	if _, err := Encode(nil); err == nil {
		t.Error("expected error for empty payload")
	}
}

func TestDutyPayload(t *testing.T) {
	tests := []struct {
		duty float64
		want []byte
	}{
		{0, []byte{CommSetDuty, 0, 0, 0, 0}},
		{0.2, []byte{CommSetDuty, 0x00, 0x00, 0x4E, 0x20}},  // 20000
		{-0.2, []byte{CommSetDuty, 0xFF, 0xFF, 0xB1, 0xE0}}, // -20000
		{1, []byte{CommSetDuty, 0x00, 0x01, 0x86, 0xA0}},    // 100000
	}
	for _, tt := range tests {
		if got := DutyPayload(tt.duty); !bytes.Equal(got, tt.want) {
			t.Errorf("DutyPayload(%v) = % x, want % x", tt.duty, got, tt.want)
		}
	}
}

func TestServoPayload(t *testing.T) {
	tests := []struct {
		pos  float64
		want []byte
	}{
		{0.5, []byte{CommSetServoPos, 0x01, 0xF4}}, // 500
		{1, []byte{CommSetServoPos, 0x03, 0xE8}},   // 1000
		{0, []byte{CommSetServoPos, 0x00, 0x00}},
		{32.767, []byte{CommSetServoPos, 0x7F, 0xFF}},
		// Out of range saturates instead of wrapping to the opposite lock.
		{40, []byte{CommSetServoPos, 0x7F, 0xFF}},
		{-40, []byte{CommSetServoPos, 0x80, 0x00}},
		{math.NaN(), []byte{CommSetServoPos, 0x00, 0x00}},
	}
	for _, tt := range tests {
		if got := ServoPayload(tt.pos); !bytes.Equal(got, tt.want) {
			t.Errorf("ServoPayload(%v) = % x, want % x", tt.pos, got, tt.want)
		}
	}
}
