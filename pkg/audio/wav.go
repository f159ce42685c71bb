package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// wavHeaderSize is the size of a canonical RIFF/WAV header with a single
// "fmt " chunk followed by a "data" chunk.
const wavHeaderSize = 44

// bitsPerSample is fixed at 16; the codec only handles int16 PCM.
const bitsPerSample = 16

// ErrNotWAV is returned by DecodeWAV for data that is not a RIFF/WAVE file.
var ErrNotWAV = errors.New("audio: not a RIFF/WAVE file")

// EncodeWAV wraps raw 16-bit signed little-endian PCM data in a standard
// RIFF/WAV container. The returned byte slice is suitable for direct upload
// to batch transcription endpoints.
func EncodeWAV(pcm []byte, f Format) []byte {
	byteRate := f.SampleRate * f.Channels * bitsPerSample / 8
	blockAlign := f.Channels * bitsPerSample / 8
	dataSize := len(pcm)

	buf := make([]byte, wavHeaderSize+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(buf[20:22], 1)  // audio format: PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(f.Channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bitsPerSample))

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[44:], pcm)

	return buf
}

// DecodeWAV parses a RIFF/WAV file and returns its PCM payload and format.
// Only uncompressed 16-bit PCM is accepted. Chunks other than "fmt " and
// "data" (LIST, INFO, cue, ...) are skipped.
func DecodeWAV(data []byte) ([]byte, Format, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, Format{}, ErrNotWAV
	}

	var (
		f        Format
		haveFmt  bool
		pcm      []byte
		haveData bool
	)

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if size < 0 || body+size > len(data) {
			return nil, Format{}, fmt.Errorf("audio: truncated %q chunk", id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, Format{}, errors.New("audio: fmt chunk too short")
			}
			audioFormat := binary.LittleEndian.Uint16(data[body : body+2])
			if audioFormat != 1 {
				return nil, Format{}, fmt.Errorf("audio: unsupported WAV format %d (want PCM)", audioFormat)
			}
			bits := binary.LittleEndian.Uint16(data[body+14 : body+16])
			if bits != bitsPerSample {
				return nil, Format{}, fmt.Errorf("audio: unsupported bit depth %d (want 16)", bits)
			}
			f.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			f.SampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			haveFmt = true
		case "data":
			pcm = data[body : body+size]
			haveData = true
		}

		// Chunks are word-aligned; odd sizes carry a pad byte.
		pos = body + size
		if size%2 == 1 {
			pos++
		}
	}

	if !haveFmt {
		return nil, Format{}, errors.New("audio: missing fmt chunk")
	}
	if !haveData {
		return nil, Format{}, errors.New("audio: missing data chunk")
	}
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return nil, Format{}, fmt.Errorf("audio: invalid format %d Hz / %d channels", f.SampleRate, f.Channels)
	}

	return pcm, f, nil
}
