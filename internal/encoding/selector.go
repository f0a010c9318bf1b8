package encoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"hyprwall/internal/logging"
)

// ErrHardwareUnavailable is returned when auto selection needs hardware that is absent.
var ErrHardwareUnavailable = errors.New("required hardware encoder unavailable")

const cudaLibrary = "libcuda.so.1"

// Capabilities records which hardware paths are usable on this host.
type Capabilities struct {
	NVENC    bool
	AV1VAAPI bool
}

// SelectorOptions configures a Selector.
type SelectorOptions struct {
	FFmpeg          string
	VAAPIDevice     string
	CUDALibraryDirs []string
	Runner          CommandRunner
	Logger          *slog.Logger
}

// Selector resolves requested encoders into the encoder that will run.
type Selector struct {
	ffmpeg      string
	vaapiDevice string
	cudaDirs    []string
	runner      CommandRunner
	exists      func(string) bool
	logger      *slog.Logger

	probeOnce sync.Once
	caps      Capabilities
}

// NewSelector builds a selector; probing happens lazily on the first auto request.
func NewSelector(opts SelectorOptions) *Selector {
	runner := opts.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	ffmpeg := strings.TrimSpace(opts.FFmpeg)
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return &Selector{
		ffmpeg:      ffmpeg,
		vaapiDevice: opts.VAAPIDevice,
		cudaDirs:    append([]string(nil), opts.CUDALibraryDirs...),
		runner:      runner,
		exists:      fileExists,
		logger:      logging.NewComponentLogger(opts.Logger, "encoder-selector"),
	}
}

// Pick returns the encoder that will run for codec given the request.
func (s *Selector) Pick(ctx context.Context, requested Encoder, codec Codec) (Encoder, error) {
	if AllowedEncoders(codec) == nil {
		return "", fmt.Errorf("unknown codec %q", codec)
	}
	if requested != EncoderAuto {
		if err := CheckCompatible(requested, codec); err != nil {
			return "", err
		}
		return requested, nil
	}

	caps := s.Capabilities(ctx)
	switch codec {
	case CodecH264:
		if caps.NVENC {
			return EncoderNVENC, nil
		}
		return EncoderCPU, nil
	case CodecVP9:
		return EncoderCPU, nil
	case CodecAV1:
		if caps.AV1VAAPI {
			return EncoderVAAPI, nil
		}
		return "", fmt.Errorf("%w: av1 needs av1_vaapi and %s (no software av1 path)", ErrHardwareUnavailable, s.vaapiDevice)
	}
	return "", fmt.Errorf("unknown codec %q", codec)
}

// Capabilities probes ffmpeg and the host once and caches the answer.
// Probe failures degrade to "no hardware".
func (s *Selector) Capabilities(ctx context.Context) Capabilities {
	s.probeOnce.Do(func() {
		s.caps = s.probe(ctx)
	})
	return s.caps
}

func (s *Selector) probe(ctx context.Context) Capabilities {
	stdout, stderr, err := s.runner.Run(ctx, s.ffmpeg, "-hide_banner", "-encoders")
	if err != nil {
		logging.WarnWithContext(s.logger, "encoder probe failed; assuming no hardware encoders", "encoder_probe_failed",
			logging.Error(err),
			logging.String("stderr", strings.TrimSpace(string(stderr))),
			logging.String(logging.FieldErrorHint, "run 'ffmpeg -hide_banner -encoders' to inspect the build"),
			logging.String(logging.FieldImpact, "auto selects software encoders"),
		)
		return Capabilities{}
	}
	listing := string(stdout)
	caps := Capabilities{
		NVENC:    strings.Contains(listing, "h264_nvenc") && s.hasCUDA(),
		AV1VAAPI: strings.Contains(listing, "av1_vaapi") && s.vaapiDevice != "" && s.exists(s.vaapiDevice),
	}
	s.logger.Debug("encoder capabilities probed",
		logging.Bool("nvenc", caps.NVENC),
		logging.Bool("av1_vaapi", caps.AV1VAAPI),
	)
	return caps
}

func (s *Selector) hasCUDA() bool {
	for _, dir := range s.cudaDirs {
		if s.exists(filepath.Join(dir, cudaLibrary)) {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
