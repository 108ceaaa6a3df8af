package pgp

import (
	"bytes"
	"errors"
	"testing"
)

func TestReadPackets(t *testing.T) {
	stream := []byte{
		0xB4, 0x03, 'b', 'o', 'b', // old format user id
		0xC2, 0x02, 0xAA, 0xBB, // new format signature
		0x8B, 0x01, 0x02, 0x03, // indeterminate takes the rest
	}
	packets, err := ReadPackets(stream)
	if err != nil {
		t.Fatalf("ReadPackets failed: %v", err)
	}
	if len(packets) != 3 {
		t.Fatalf("expected 3 packets, got %d", len(packets))
	}
	if packets[0].Header.Tag.Type != PacketUserID || string(packets[0].Body) != "bob" {
		t.Errorf("unexpected first packet: %+v", packets[0])
	}
	if packets[1].Header.Tag.Format != FormatNew || !bytes.Equal(packets[1].Body, []byte{0xAA, 0xBB}) {
		t.Errorf("unexpected second packet: %+v", packets[1])
	}
	if !packets[2].Header.Indeterminate || !bytes.Equal(packets[2].Body, []byte{1, 2, 3}) {
		t.Errorf("unexpected third packet: %+v", packets[2])
	}

	var out []byte
	for _, p := range packets {
		b, err := p.Bytes()
		if err != nil {
			t.Fatalf("Bytes failed: %v", err)
		}
		out = append(out, b...)
	}
	if !bytes.Equal(out, stream) {
		t.Errorf("re-encoded stream differs:\n%x\n%x", out, stream)
	}
}

func TestReadPacketOverrun(t *testing.T) {
	_, _, err := ReadPacket([]byte{0xB4, 0x05, 'b', 'o', 'b'})
	if !errors.Is(err, ErrFraming) {
		t.Fatalf("expected ErrFraming, got %v", err)
	}

	_, err = ReadPackets([]byte{0xB4, 0x01, 'x', 0xC2, 0x09, 0x00})
	var de *DecodeError
	if !errors.As(err, &de) || !errors.Is(err, ErrFraming) {
		t.Fatalf("expected a framing DecodeError, got %v", err)
	}
	if de.Offset != 5 {
		t.Errorf("expected the offset to account for the first packet, got %d", de.Offset)
	}
}
