package wav

import "encoding/binary"

// IMA-ADPCM step and index tables.
var stepTable = [89]int32{
	7, 8, 9, 10, 11, 12, 13, 14, 16, 17,
	19, 21, 23, 25, 28, 31, 34, 37, 41, 45,
	50, 55, 60, 66, 73, 80, 88, 97, 107, 118,
	130, 143, 157, 173, 190, 209, 230, 253, 279, 307,
	337, 371, 408, 449, 494, 544, 598, 658, 724, 796,
	876, 963, 1060, 1166, 1282, 1411, 1552, 1707, 1878, 2066,
	2272, 2499, 2749, 3024, 3327, 3660, 4026, 4428, 4871, 5358,
	5894, 6484, 7132, 7845, 8630, 9493, 10442, 11487, 12635, 13899,
	15289, 16818, 18500, 20350, 22385, 24623, 27086, 29794, 32767,
}

var indexTable = [16]int32{
	-1, -1, -1, -1, 2, 4, 6, 8,
	-1, -1, -1, -1, 2, 4, 6, 8,
}

type adpcmState struct {
	predictor int32
	index     int32
}

func (s *adpcmState) decode(nibble byte) int16 {
	step := stepTable[s.index]

	diff := step >> 3
	if nibble&4 != 0 {
		diff += step
	}
	if nibble&2 != 0 {
		diff += step >> 1
	}
	if nibble&1 != 0 {
		diff += step >> 2
	}
	if nibble&8 != 0 {
		s.predictor -= diff
	} else {
		s.predictor += diff
	}

	if s.predictor > 32767 {
		s.predictor = 32767
	} else if s.predictor < -32768 {
		s.predictor = -32768
	}

	s.index += indexTable[nibble]
	if s.index < 0 {
		s.index = 0
	} else if s.index > 88 {
		s.index = 88
	}

	return int16(s.predictor)
}

// decodeADPCM expands IMA-ADPCM nibbles to interleaved 16-bit PCM. Each
// byte carries two nibbles (low first) for a single channel; stereo
// streams alternate channels byte by byte.
func decodeADPCM(data []byte, channels int) []byte {
	states := make([]adpcmState, channels)
	perChannel := make([][]int16, channels)

	for i, b := range data {
		ch := i % channels
		st := &states[ch]
		perChannel[ch] = append(perChannel[ch], st.decode(b&0x0F), st.decode(b>>4))
	}

	frames := len(perChannel[0])
	for _, pc := range perChannel {
		if len(pc) < frames {
			frames = len(pc)
		}
	}

	out := make([]byte, 0, frames*channels*2)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			out = binary.LittleEndian.AppendUint16(out, uint16(perChannel[ch][i]))
		}
	}
	return out
}
