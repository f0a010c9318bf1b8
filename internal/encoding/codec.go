package encoding

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Codec is the output video codec.
type Codec string

const (
	CodecH264 Codec = "h264"
	CodecVP9  Codec = "vp9"
	CodecAV1  Codec = "av1"
)

// Encoder is an encoder family: software or a hardware vendor path.
type Encoder string

const (
	EncoderAuto  Encoder = "auto"
	EncoderCPU   Encoder = "cpu"
	EncoderNVENC Encoder = "nvenc"
	EncoderVAAPI Encoder = "vaapi"
)

// ErrIncompatibleEncoder marks an explicit encoder request the codec does not allow.
var ErrIncompatibleEncoder = errors.New("encoder not compatible with codec")

// IncompatibleError carries the details of a rejected encoder request.
type IncompatibleError struct {
	Codec     Codec
	Requested Encoder
	Allowed   []Encoder
}

func (e *IncompatibleError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, enc := range e.Allowed {
		allowed[i] = string(enc)
	}
	return fmt.Sprintf("encoder %q is not compatible with codec %q (allowed: %s)", e.Requested, e.Codec, strings.Join(allowed, ", "))
}

func (e *IncompatibleError) Unwrap() error { return ErrIncompatibleEncoder }

// Codecs lists every supported codec.
func Codecs() []Codec {
	return []Codec{CodecH264, CodecVP9, CodecAV1}
}

// Encoders lists every encoder value accepted on input, including auto.
func Encoders() []Encoder {
	return []Encoder{EncoderAuto, EncoderCPU, EncoderNVENC, EncoderVAAPI}
}

// ParseCodec validates a codec name.
func ParseCodec(value string) (Codec, error) {
	c := Codec(strings.ToLower(strings.TrimSpace(value)))
	if slices.Contains(Codecs(), c) {
		return c, nil
	}
	return "", fmt.Errorf("unknown codec %q (want h264, vp9 or av1)", value)
}

// ParseEncoder validates an encoder name.
func ParseEncoder(value string) (Encoder, error) {
	e := Encoder(strings.ToLower(strings.TrimSpace(value)))
	if slices.Contains(Encoders(), e) {
		return e, nil
	}
	return "", fmt.Errorf("unknown encoder %q (want auto, cpu, nvenc or vaapi)", value)
}

// AllowedEncoders returns the concrete encoders a codec may run on.
func AllowedEncoders(c Codec) []Encoder {
	switch c {
	case CodecH264:
		return []Encoder{EncoderCPU, EncoderNVENC}
	case CodecVP9:
		return []Encoder{EncoderCPU}
	case CodecAV1:
		return []Encoder{EncoderVAAPI}
	}
	return nil
}

// Extension returns the container extension (with dot) for artifacts of codec c.
func (c Codec) Extension() string {
	switch c {
	case CodecH264:
		return ".mp4"
	case CodecVP9:
		return ".webm"
	case CodecAV1:
		return ".mkv"
	}
	return ""
}

// CheckCompatible reports whether a concrete encoder may run the codec.
func CheckCompatible(requested Encoder, c Codec) error {
	allowed := AllowedEncoders(c)
	if slices.Contains(allowed, requested) {
		return nil
	}
	return &IncompatibleError{Codec: c, Requested: requested, Allowed: allowed}
}

// CheckRequested validates an encoder as a caller asked for it. Auto is
// always accepted here; the selector resolves it per host.
func CheckRequested(requested Encoder, c Codec) error {
	if requested == EncoderAuto {
		return nil
	}
	return CheckCompatible(requested, c)
}

func init() {
	for _, c := range Codecs() {
		if len(AllowedEncoders(c)) == 0 || c.Extension() == "" {
			panic(fmt.Sprintf("encoding: codec %q is missing a compatibility row or container", c))
		}
	}
	for _, p := range Profiles() {
		if p.FPS <= 0 || p.Preset == "" {
			panic(fmt.Sprintf("encoding: profile %q is incomplete", p.Name))
		}
	}
}
