package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// pcmFromSamples packs int16 samples as little-endian PCM bytes.
func pcmFromSamples(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func samplesFromPCM(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out
}

func TestStereoToMono(t *testing.T) {
	t.Parallel()

	pcm := pcmFromSamples(1000, 3000, -2000, -4000)
	mono := samplesFromPCM(StereoToMono(pcm))
	if len(mono) != 2 {
		t.Fatalf("got %d mono samples, want 2", len(mono))
	}
	if mono[0] != 2000 {
		t.Errorf("mono[0] = %d, want 2000", mono[0])
	}
	if mono[1] != -3000 {
		t.Errorf("mono[1] = %d, want -3000", mono[1])
	}
}

func TestMonoToStereoRoundTrip(t *testing.T) {
	t.Parallel()

	pcm := pcmFromSamples(123, -456, 32767)
	back := StereoToMono(MonoToStereo(pcm))
	if !bytes.Equal(back, pcm) {
		t.Errorf("round trip changed samples: got %v, want %v",
			samplesFromPCM(back), samplesFromPCM(pcm))
	}
}

func TestResampleMono16Identity(t *testing.T) {
	t.Parallel()

	pcm := pcmFromSamples(1, 2, 3)
	if got := ResampleMono16(pcm, 16000, 16000); !bytes.Equal(got, pcm) {
		t.Error("same-rate resample should return input unchanged")
	}
}

func TestResampleMono16Halves(t *testing.T) {
	t.Parallel()

	// 8 samples at 32 kHz downsampled to 16 kHz yields 4 samples.
	pcm := pcmFromSamples(0, 100, 200, 300, 400, 500, 600, 700)
	out := ResampleMono16(pcm, 32000, 16000)
	if len(out) != 8 {
		t.Fatalf("got %d bytes, want 8", len(out))
	}
	got := samplesFromPCM(out)
	want := []int16{0, 200, 400, 600}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestConvertStereo48kToMono16k(t *testing.T) {
	t.Parallel()

	// 48 kHz stereo, 6 frames; target 16 kHz mono should yield 2 samples.
	pcm := make([]byte, 6*4)
	out := Convert(pcm, Format{SampleRate: 48000, Channels: 2}, Format{SampleRate: 16000, Channels: 1})
	if len(out) != 2*2 {
		t.Errorf("got %d bytes, want 4", len(out))
	}
}

func TestConvertNoOp(t *testing.T) {
	t.Parallel()

	pcm := pcmFromSamples(5, 6, 7)
	f := Format{SampleRate: 16000, Channels: 1}
	out := Convert(pcm, f, f)
	if &out[0] != &pcm[0] {
		t.Error("matching formats should return the input slice")
	}
}

func TestWAVRoundTrip(t *testing.T) {
	t.Parallel()

	pcm := pcmFromSamples(0, 1000, -1000, 32767, -32768)
	f := Format{SampleRate: 16000, Channels: 1}

	wav := EncodeWAV(pcm, f)
	if len(wav) != wavHeaderSize+len(pcm) {
		t.Fatalf("encoded size = %d, want %d", len(wav), wavHeaderSize+len(pcm))
	}

	gotPCM, gotF, err := DecodeWAV(wav)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if gotF != f {
		t.Errorf("format = %+v, want %+v", gotF, f)
	}
	if !bytes.Equal(gotPCM, pcm) {
		t.Errorf("payload = %v, want %v", samplesFromPCM(gotPCM), samplesFromPCM(pcm))
	}
}

func TestDecodeWAVSkipsUnknownChunks(t *testing.T) {
	t.Parallel()

	pcm := pcmFromSamples(42, -42)
	wav := EncodeWAV(pcm, Format{SampleRate: 8000, Channels: 1})

	// Splice a LIST chunk between fmt and data.
	list := append([]byte("LIST"), 0, 0, 0, 0)
	binary.LittleEndian.PutUint32(list[4:], 4)
	list = append(list, 'I', 'N', 'F', 'O')

	spliced := append([]byte{}, wav[:36]...)
	spliced = append(spliced, list...)
	spliced = append(spliced, wav[36:]...)
	binary.LittleEndian.PutUint32(spliced[4:8], uint32(len(spliced)-8))

	gotPCM, gotF, err := DecodeWAV(spliced)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if gotF.SampleRate != 8000 || gotF.Channels != 1 {
		t.Errorf("format = %+v, want 8000 Hz mono", gotF)
	}
	if !bytes.Equal(gotPCM, pcm) {
		t.Errorf("payload mismatch after chunk skip")
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, _, err := DecodeWAV([]byte("definitely not audio")); !errors.Is(err, ErrNotWAV) {
		t.Errorf("err = %v, want ErrNotWAV", err)
	}
}

func TestDecodeWAVRejectsNonPCM(t *testing.T) {
	t.Parallel()

	wav := EncodeWAV(pcmFromSamples(1), Format{SampleRate: 16000, Channels: 1})
	binary.LittleEndian.PutUint16(wav[20:22], 3) // IEEE float
	if _, _, err := DecodeWAV(wav); err == nil {
		t.Error("expected error for non-PCM format")
	}
}

func TestDecodeWAVTruncatedData(t *testing.T) {
	t.Parallel()

	wav := EncodeWAV(pcmFromSamples(1, 2, 3, 4), Format{SampleRate: 16000, Channels: 1})
	if _, _, err := DecodeWAV(wav[:len(wav)-3]); err == nil {
		t.Error("expected error for truncated data chunk")
	}
}
