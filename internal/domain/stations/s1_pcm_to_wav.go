package stations

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"strings"

	"github.com/Vovarama1992/voicepost/internal/models"
)

// S1PCMtoWAV wraps headerless 16 kHz mono PCM uploads into a WAV container
// so the transcription provider can detect the format. Other audio passes through.
type S1PCMtoWAV struct{}

func NewS1PCMtoWAV() *S1PCMtoWAV { return &S1PCMtoWAV{} }

func (s *S1PCMtoWAV) Run(audio models.AudioInput) models.AudioInput {
	if !audio.IsRawPCM() {
		return audio
	}

	name := audio.FileName
	if name == "" {
		name = "audio"
	}
	name = strings.TrimSuffix(name, filepath.Ext(name)) + ".wav"

	return models.AudioInput{
		Data:     wrapWAV(audio.Data),
		FileName: name,
		FileType: "audio/wav",
	}
}

func wrapWAV(pcm []byte) []byte {
	const (
		sampleRate     = 16000
		channels       = 1
		bitsPerSample  = 16
		bytesPerSample = bitsPerSample / 8
	)

	dataSize := len(pcm)
	byteRate := sampleRate * channels * bytesPerSample
	blockAlign := channels * bytesPerSample

	buf := bytes.NewBuffer(make([]byte, 0, 44+dataSize))

	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	_, _ = buf.Write(pcm)

	return buf.Bytes()
}
