package audio

import (
	"encoding/binary"
	"testing"
)

func TestEncodeWAVPCM16LEHeader(t *testing.T) {
	pcm := make([]byte, 320)
	out, err := EncodeWAVPCM16LE(pcm, 16000)
	if err != nil {
		t.Fatalf("EncodeWAVPCM16LE error = %v", err)
	}
	if len(out) != 44+len(pcm) {
		t.Fatalf("encoded length = %d, want %d", len(out), 44+len(pcm))
	}
	if string(out[0:4]) != "RIFF" || string(out[8:12]) != "WAVE" {
		t.Fatalf("missing RIFF/WAVE markers: %q %q", out[0:4], out[8:12])
	}
	if got := binary.LittleEndian.Uint32(out[24:28]); got != 16000 {
		t.Fatalf("sample rate = %d, want 16000", got)
	}
	if got := binary.LittleEndian.Uint32(out[40:44]); got != uint32(len(pcm)) {
		t.Fatalf("data size = %d, want %d", got, len(pcm))
	}
}

func TestSniffContentType(t *testing.T) {
	wav, err := EncodeWAVPCM16LE([]byte{0, 0}, 16000)
	if err != nil {
		t.Fatalf("EncodeWAVPCM16LE error = %v", err)
	}
	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"wav", wav, "audio/wav"},
		{"mp3_id3", []byte("ID3\x03rest"), "audio/mpeg"},
		{"mp3_frame", []byte{0xFF, 0xFB, 0x90, 0x00}, "audio/mpeg"},
		{"ogg", []byte("OggS\x00\x02more"), "audio/ogg"},
		{"unknown", []byte{0x01, 0x02}, "audio/wav"},
	}
	for _, tc := range cases {
		if got := SniffContentType(tc.data); got != tc.want {
			t.Errorf("%s: SniffContentType = %q, want %q", tc.name, got, tc.want)
		}
	}
}
