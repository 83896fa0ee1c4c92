package cpu

import (
	"testing"
)

// FuzzDecode checks that every word the decoder accepts re-encodes to
// the identical word, and that decoding is stable.
func FuzzDecode(f *testing.F) {
	f.Add(uint16(0x1027))
	f.Add(uint16(0x0E01))
	f.Add(uint16(0xF025))
	f.Add(uint16(0x907F))
	f.Add(uint16(0xD000))
	f.Add(uint16(0xFFFF))

	f.Fuzz(func(t *testing.T, word uint16) {
		inst, err := Decode(word)
		if err != nil {
			return
		}

		encoded, err := inst.Encode()
		if err != nil {
			t.Fatalf("decode(x%04X) = %v, but encode failed: %v", word, inst, err)
		}
		if encoded != word {
			t.Fatalf("decode(x%04X) re-encodes to x%04X", word, encoded)
		}

		again, err := Decode(encoded)
		if err != nil || again != inst {
			t.Fatalf("decode(x%04X) is unstable: %v vs %v", word, inst, again)
		}
	})
}
