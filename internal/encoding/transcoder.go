package encoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"hyprwall/internal/logging"
)

var (
	// ErrToolMissing means the ffmpeg binary could not be found.
	ErrToolMissing = errors.New("ffmpeg not found in PATH; install ffmpeg (e.g. dnf install ffmpeg)")
	// ErrInterrupted means the encode was cancelled before it finished.
	ErrInterrupted = errors.New("transcode interrupted")
)

// TranscodeError wraps a failed ffmpeg run together with its stderr.
type TranscodeError struct {
	Source string
	Stderr string
	Err    error
}

func (e *TranscodeError) Error() string {
	detail := strings.TrimSpace(e.Stderr)
	if detail == "" {
		return fmt.Sprintf("ffmpeg failed for %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("ffmpeg failed for %s: %v: %s", e.Source, e.Err, detail)
}

func (e *TranscodeError) Unwrap() error { return e.Err }

// FFmpegTranscoder runs encode jobs through the ffmpeg binary.
type FFmpegTranscoder struct {
	binary   string
	runner   CommandRunner
	lookPath func(string) (string, error)
	logger   *slog.Logger
}

// NewFFmpegTranscoder builds a transcoder. A nil runner uses os/exec.
func NewFFmpegTranscoder(binary string, runner CommandRunner, logger *slog.Logger) *FFmpegTranscoder {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &FFmpegTranscoder{
		binary:   binary,
		runner:   runner,
		lookPath: exec.LookPath,
		logger:   logging.NewComponentLogger(logger, "transcoder"),
	}
}

// Transcode encodes job into job.Output. The bytes land in a temporary file in
// the same directory first and are renamed into place only after ffmpeg exits
// cleanly with a non-empty result.
func (t *FFmpegTranscoder) Transcode(ctx context.Context, job Job) error {
	if _, err := t.lookPath(t.binary); err != nil {
		return fmt.Errorf("%w (%s)", ErrToolMissing, t.binary)
	}

	final := job.Output
	tmp := TempPath(final)
	job.Output = tmp
	args, err := BuildArgs(job)
	if err != nil {
		return err
	}

	started := time.Now()
	t.logger.Info("transcode started",
		logging.String("source", job.Source),
		logging.String(logging.FieldProfile, string(job.Profile.Name)),
		logging.String("codec", string(job.Codec)),
		logging.String(logging.FieldEncoder, string(job.UsedEncoder())),
		logging.String("size", fmt.Sprintf("%dx%d", job.Width, job.Height)),
	)
	t.logger.Debug("ffmpeg command", logging.String("command", t.binary+" "+strings.Join(args, " ")))

	_, stderr, runErr := t.runner.Run(ctx, t.binary, args...)
	if runErr != nil {
		_ = os.Remove(tmp)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %v", ErrInterrupted, ctxErr)
		}
		return &TranscodeError{Source: job.Source, Stderr: string(stderr), Err: runErr}
	}

	info, err := os.Stat(tmp)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(tmp)
		return &TranscodeError{Source: job.Source, Stderr: string(stderr), Err: errors.New("ffmpeg produced no output")}
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish artifact: %w", err)
	}

	t.logger.Info("transcode finished",
		logging.String("output", final),
		logging.Int64("output_bytes", info.Size()),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// TempPath derives a unique sibling path for final, keeping its extension so
// ffmpeg can infer the container.
func TempPath(final string) string {
	ext := filepath.Ext(final)
	base := strings.TrimSuffix(filepath.Base(final), ext)
	return filepath.Join(filepath.Dir(final), base+"."+uuid.NewString()+".tmp"+ext)
}
