package models

import "strings"

const MaxAudioSize = 25 << 20

// AudioInput is an uploaded recording before transcription.
type AudioInput struct {
	Data     []byte
	FileName string
	FileType string
}

// IsRawPCM reports whether the declared media type is headerless 16-bit PCM.
func (a AudioInput) IsRawPCM() bool {
	t := strings.ToLower(a.FileType)
	return strings.HasPrefix(t, "audio/pcm") || strings.HasPrefix(t, "audio/l16")
}
