package link

import "testing"

func TestVLQEncodeDecodeInt(t *testing.T) {
	cases := []int32{0, 1, -1, 127, -127, 128, -128, 255, -255, 1000, -1000, 65535, -65535, 1000000, -1000000}

	for _, want := range cases {
		out := NewScratchOutput()
		EncodeVLQInt(out, want)
		data := out.Result()

		got, err := DecodeVLQInt(&data)
		if err != nil {
			t.Errorf("decode %d: %v", want, err)
			continue
		}
		if got != want {
			t.Errorf("VLQ roundtrip mismatch: want %d, got %d (encoded %v)", want, got, out.Result())
		}
		if len(data) != 0 {
			t.Errorf("decode %d left %d unread bytes", want, len(data))
		}
	}
}

func TestVLQEncodeDecodeUint(t *testing.T) {
	cases := []uint32{0, 1, 127, 128, 255, 1000, 65535, 1000000}

	for _, want := range cases {
		out := NewScratchOutput()
		EncodeVLQUint(out, want)
		data := out.Result()

		got, err := DecodeVLQUint(&data)
		if err != nil {
			t.Errorf("decode %d: %v", want, err)
			continue
		}
		if got != want {
			t.Errorf("VLQ roundtrip mismatch: want %d, got %d", want, got)
		}
	}
}

func TestVLQBytes(t *testing.T) {
	cases := [][]byte{{}, {0x01}, {0x01, 0x02, 0x03}, {0xFF, 0xFE, 0xFD}, make([]byte, 50)}

	for i, want := range cases {
		out := NewScratchOutput()
		EncodeVLQBytes(out, want)
		data := out.Result()

		got, err := DecodeVLQBytes(&data)
		if err != nil {
			t.Errorf("case %d: %v", i, err)
			continue
		}
		if len(got) != len(want) {
			t.Errorf("case %d: length mismatch: want %d, got %d", i, len(want), len(got))
		}
	}
}

func TestVLQString(t *testing.T) {
	cases := []string{"", "hello", "line X10 Y0 F600", "Special chars: !@#$%^&*()"}

	for _, want := range cases {
		out := NewScratchOutput()
		EncodeVLQString(out, want)
		data := out.Result()

		got, err := DecodeVLQString(&data)
		if err != nil {
			t.Errorf("decode %q: %v", want, err)
			continue
		}
		if got != want {
			t.Errorf("string roundtrip mismatch: want %q, got %q", want, got)
		}
	}
}

func TestVLQBufferTooSmall(t *testing.T) {
	data := []byte{0x80}
	if _, err := DecodeVLQInt(&data); err != ErrBufferTooSmall {
		t.Errorf("expected ErrBufferTooSmall, got %v", err)
	}
}
