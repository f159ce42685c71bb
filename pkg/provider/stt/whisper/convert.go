package whisper

import "encoding/binary"

// pcmSample decodes the i-th 16-bit little-endian signed sample of pcm as a
// float32 normalised to [-1.0, 1.0].
func pcmSample(pcm []byte, i int) float32 {
	v := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
	return float32(v) / 32768.0
}

// pcmToFloat32 converts raw 16-bit signed little-endian PCM into the
// normalised float32 samples whisper.cpp inference expects. A trailing odd
// byte is ignored.
func pcmToFloat32(pcm []byte) []float32 {
	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		samples[i] = pcmSample(pcm, i)
	}
	return samples
}

// pcmToFloat32Mono converts interleaved multi-channel PCM to mono by
// averaging each frame across its channels. Learner audio is mono in
// practice; this keeps stereo capture devices working. With channels <= 1 it
// behaves like pcmToFloat32.
func pcmToFloat32Mono(pcm []byte, channels int) []float32 {
	if channels <= 1 {
		return pcmToFloat32(pcm)
	}
	frames := len(pcm) / (2 * channels)
	mono := make([]float32, frames)
	for f := range frames {
		var sum float32
		for ch := range channels {
			sum += pcmSample(pcm, f*channels+ch)
		}
		mono[f] = sum / float32(channels)
	}
	return mono
}
