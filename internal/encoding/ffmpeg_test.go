package encoding

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

var balanced = Profile{Name: ProfileBalanced, FPS: 30, Quality: 24, Preset: "veryfast"}

func TestBuildArgsPerCodecEncoder(t *testing.T) {
	cases := []struct {
		name  string
		job   Job
		want  []string
		avoid []string
	}{
		{
			name: "h264 cpu",
			job:  Job{Codec: CodecH264, Encoder: EncoderCPU},
			want: []string{"-c:v libx264 -crf 24 -preset veryfast -pix_fmt yuv420p"},
		},
		{
			name: "h264 nvenc",
			job:  Job{Codec: CodecH264, Encoder: EncoderNVENC},
			want: []string{"-c:v h264_nvenc -preset p4 -cq 24 -pix_fmt yuv420p"},
		},
		{
			name: "vp9 cpu",
			job:  Job{Codec: CodecVP9, Encoder: EncoderCPU},
			want: []string{"-c:v libvpx-vp9 -crf 24 -b:v 0"},
		},
		{
			name: "av1 vaapi",
			job:  Job{Codec: CodecAV1, Encoder: EncoderVAAPI, VAAPIDevice: "/dev/dri/renderD129"},
			want: []string{
				"-y -vaapi_device /dev/dri/renderD129 -i",
				"fps=30,format=nv12,hwupload,setsar=1",
				"-c:v av1_vaapi -quality 24",
			},
		},
		{
			name:  "still image av1 uses software",
			job:   Job{Codec: CodecAV1, Encoder: EncoderVAAPI, StillImage: true},
			want:  []string{"-loop 1 -i /src/in -t 2", "-c:v libaom-av1 -crf 24 -b:v 0"},
			avoid: []string{"vaapi", "hwupload"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job := tc.job
			job.Source = "/src/in"
			job.Output = "/cache/out.mp4"
			job.Width, job.Height = 1920, 1080
			job.Profile = balanced
			args, err := BuildArgs(job)
			if err != nil {
				t.Fatalf("BuildArgs: %v", err)
			}
			line := strings.Join(args, " ")
			if !strings.HasPrefix(line, "-hide_banner -loglevel error -y") {
				t.Fatalf("unexpected prefix: %s", line)
			}
			if args[len(args)-1] != "/cache/out.mp4" {
				t.Fatalf("output must be last, got %s", line)
			}
			if !strings.Contains(line, "-an -vf scale=1920:1080:force_original_aspect_ratio=increase,crop=1920:1080,fps=30") {
				t.Fatalf("missing filter chain: %s", line)
			}
			for _, want := range tc.want {
				if !strings.Contains(line, want) {
					t.Fatalf("expected %q in %s", want, line)
				}
			}
			for _, avoid := range tc.avoid {
				if strings.Contains(line, avoid) {
					t.Fatalf("did not expect %q in %s", avoid, line)
				}
			}
		})
	}
}

func TestBuildArgsRejectsIncompatibleCombination(t *testing.T) {
	_, err := BuildArgs(Job{Source: "a", Output: "b", Width: 10, Height: 10, Profile: balanced, Codec: CodecVP9, Encoder: EncoderNVENC})
	if !errors.Is(err, ErrIncompatibleEncoder) {
		t.Fatalf("expected ErrIncompatibleEncoder, got %v", err)
	}
}

func TestUsedEncoderReportsSoftwareForStills(t *testing.T) {
	if got := (Job{Encoder: EncoderNVENC, StillImage: true}).UsedEncoder(); got != EncoderCPU {
		t.Fatalf("UsedEncoder = %s, want cpu", got)
	}
	if got := (Job{Encoder: EncoderNVENC}).UsedEncoder(); got != EncoderNVENC {
		t.Fatalf("UsedEncoder = %s, want nvenc", got)
	}
}

func TestTempPathKeepsExtensionAndIsUnique(t *testing.T) {
	a := TempPath("/c/k/wallpaper.webm")
	b := TempPath("/c/k/wallpaper.webm")
	if a == b {
		t.Fatal("expected unique temp paths")
	}
	if filepath.Dir(a) != "/c/k" || !strings.HasSuffix(a, ".tmp.webm") || !strings.HasPrefix(filepath.Base(a), "wallpaper.") {
		t.Fatalf("unexpected temp path %q", a)
	}
}

func newTestTranscoder(runner CommandRunner) *FFmpegTranscoder {
	tr := NewFFmpegTranscoder("ffmpeg", runner, nil)
	tr.lookPath = func(string) (string, error) { return "/usr/bin/ffmpeg", nil }
	return tr
}

func testJob(dir string) Job {
	return Job{
		Source:  filepath.Join(dir, "clip.mp4"),
		Output:  filepath.Join(dir, "wallpaper.mp4"),
		Width:   640,
		Height:  360,
		Profile: balanced,
		Codec:   CodecH264,
		Encoder: EncoderCPU,
	}
}

func tmpLeftovers(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp.*"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	return matches
}

func TestTranscodePublishesAtomically(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{run: func(_ string, args []string) error {
		out := args[len(args)-1]
		if !strings.Contains(out, ".tmp.") {
			t.Errorf("ffmpeg should write to a temp path, got %s", out)
		}
		return os.WriteFile(out, []byte("encoded"), 0o644)
	}}
	job := testJob(dir)

	if err := newTestTranscoder(runner).Transcode(context.Background(), job); err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	data, err := os.ReadFile(job.Output)
	if err != nil || string(data) != "encoded" {
		t.Fatalf("artifact = %q, %v", data, err)
	}
	if left := tmpLeftovers(t, dir); len(left) != 0 {
		t.Fatalf("temp files left behind: %v", left)
	}
}

func TestTranscodeFailureRemovesTemp(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{run: func(_ string, args []string) error {
		_ = os.WriteFile(args[len(args)-1], []byte("partial"), 0o644)
		return errors.New("exit status 1")
	}}
	job := testJob(dir)

	err := newTestTranscoder(runner).Transcode(context.Background(), job)
	var terr *TranscodeError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TranscodeError, got %v", err)
	}
	if _, statErr := os.Stat(job.Output); !os.IsNotExist(statErr) {
		t.Fatalf("final artifact must not exist after failure: %v", statErr)
	}
	if left := tmpLeftovers(t, dir); len(left) != 0 {
		t.Fatalf("temp files left behind: %v", left)
	}
}

func TestTranscodeCancellationIsInterrupted(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	runner := &fakeRunner{run: func(_ string, args []string) error {
		_ = os.WriteFile(args[len(args)-1], []byte("partial"), 0o644)
		cancel()
		return errors.New("signal: killed")
	}}

	err := newTestTranscoder(runner).Transcode(ctx, testJob(dir))
	if !errors.Is(err, ErrInterrupted) {
		t.Fatalf("expected ErrInterrupted, got %v", err)
	}
	if left := tmpLeftovers(t, dir); len(left) != 0 {
		t.Fatalf("temp files left behind: %v", left)
	}
}

func TestTranscodeEmptyOutputIsFailure(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{run: func(_ string, args []string) error {
		return os.WriteFile(args[len(args)-1], nil, 0o644)
	}}
	job := testJob(dir)

	if err := newTestTranscoder(runner).Transcode(context.Background(), job); err == nil {
		t.Fatal("expected error for empty output")
	}
	if _, err := os.Stat(job.Output); !os.IsNotExist(err) {
		t.Fatalf("empty encode must not be published: %v", err)
	}
}

func TestTranscodeMissingTool(t *testing.T) {
	tr := NewFFmpegTranscoder("definitely-not-ffmpeg-binary", &fakeRunner{}, nil)
	err := tr.Transcode(context.Background(), testJob(t.TempDir()))
	if !errors.Is(err, ErrToolMissing) {
		t.Fatalf("expected ErrToolMissing, got %v", err)
	}
}

func TestCodecTablesAreComplete(t *testing.T) {
	for _, c := range Codecs() {
		if len(AllowedEncoders(c)) == 0 {
			t.Fatalf("codec %s has no encoders", c)
		}
		if c.Extension() == "" {
			t.Fatalf("codec %s has no container", c)
		}
		if slices.Contains(AllowedEncoders(c), EncoderAuto) {
			t.Fatalf("codec %s lists auto as a concrete encoder", c)
		}
	}
}
