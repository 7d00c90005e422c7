package tfevent

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

type wavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// encodeAudio renders mono samples in [-1, 1] as 16-bit PCM WAV. Values
// outside the range are clipped.
func encodeAudio(samples []float64, sampleRate float64) (*Audio, error) {
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("sample rate must be positive, got %v", sampleRate)
	}
	rate := uint32(math.Round(sampleRate))
	dataSize := uint32(2 * len(samples))

	hdr := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   1,
		SampleRate:    rate,
		ByteRate:      rate * 2,
		BlockAlign:    2,
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	var buf bytes.Buffer
	buf.Grow(44 + int(dataSize))
	if err := binary.Write(&buf, binary.LittleEndian, hdr); err != nil {
		return nil, fmt.Errorf("writing wav header: %w", err)
	}
	pcm := make([]int16, len(samples))
	for i, s := range samples {
		if math.IsNaN(s) {
			s = 0
		}
		pcm[i] = int16(math.Round(math.Max(-1, math.Min(1, s)) * math.MaxInt16))
	}
	if err := binary.Write(&buf, binary.LittleEndian, pcm); err != nil {
		return nil, fmt.Errorf("writing wav samples: %w", err)
	}

	return &Audio{
		SampleRate:   float32(sampleRate),
		NumChannels:  1,
		LengthFrames: int64(len(samples)),
		Encoded:      buf.Bytes(),
		ContentType:  "audio/wav",
	}, nil
}
