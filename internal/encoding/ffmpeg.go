package encoding

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	defaultStillSeconds = 2
	defaultVAAPIDevice  = "/dev/dri/renderD128"
)

// Job is one ffmpeg encode.
type Job struct {
	Source       string
	Output       string
	Width        int
	Height       int
	Profile      Profile
	Codec        Codec
	Encoder      Encoder
	StillImage   bool
	StillSeconds int
	VAAPIDevice  string
}

// UsedEncoder reports the encoder family the job's command line actually runs.
// Still images always go through the codec's software encoder.
func (j Job) UsedEncoder() Encoder {
	if j.StillImage {
		return EncoderCPU
	}
	return j.Encoder
}

// FilterChain builds the cover-scale, center-crop, frame-rate and SAR filter graph.
func FilterChain(width, height, fps int, hwUpload bool) string {
	chain := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,fps=%d", width, height, width, height, fps)
	if hwUpload {
		chain += ",format=nv12,hwupload"
	}
	return chain + ",setsar=1"
}

// BuildArgs returns the ffmpeg arguments (without the binary) for job.
func BuildArgs(job Job) ([]string, error) {
	if job.Source == "" || job.Output == "" {
		return nil, errors.New("encoding: source and output are required")
	}
	if job.Width <= 0 || job.Height <= 0 {
		return nil, fmt.Errorf("encoding: invalid target size %dx%d", job.Width, job.Height)
	}
	if job.Profile.FPS <= 0 {
		return nil, fmt.Errorf("encoding: profile %q has no frame rate", job.Profile.Name)
	}
	codecArgs, err := videoCodecArgs(job)
	if err != nil {
		return nil, err
	}

	hwUpload := !job.StillImage && job.Encoder == EncoderVAAPI
	args := make([]string, 0, 32)
	args = append(args, "-hide_banner", "-loglevel", "error", "-y")
	if hwUpload {
		device := job.VAAPIDevice
		if device == "" {
			device = defaultVAAPIDevice
		}
		args = append(args, "-vaapi_device", device)
	}
	if job.StillImage {
		seconds := job.StillSeconds
		if seconds <= 0 {
			seconds = defaultStillSeconds
		}
		args = append(args, "-loop", "1", "-i", job.Source, "-t", strconv.Itoa(seconds))
	} else {
		args = append(args, "-i", job.Source)
	}
	args = append(args, "-an", "-vf", FilterChain(job.Width, job.Height, job.Profile.FPS, hwUpload))
	args = append(args, codecArgs...)
	args = append(args, job.Output)
	return args, nil
}

func videoCodecArgs(job Job) ([]string, error) {
	q := strconv.Itoa(job.Profile.Quality)
	if job.StillImage {
		switch job.Codec {
		case CodecH264:
			return []string{"-c:v", "libx264", "-crf", q, "-preset", job.Profile.Preset, "-pix_fmt", "yuv420p"}, nil
		case CodecVP9:
			return []string{"-c:v", "libvpx-vp9", "-crf", q, "-b:v", "0"}, nil
		case CodecAV1:
			return []string{"-c:v", "libaom-av1", "-crf", q, "-b:v", "0"}, nil
		}
		return nil, fmt.Errorf("unknown codec %q", job.Codec)
	}

	if err := CheckCompatible(job.Encoder, job.Codec); err != nil {
		return nil, err
	}
	switch job.Codec {
	case CodecH264:
		if job.Encoder == EncoderNVENC {
			return []string{"-c:v", "h264_nvenc", "-preset", "p4", "-cq", q, "-pix_fmt", "yuv420p"}, nil
		}
		return []string{"-c:v", "libx264", "-crf", q, "-preset", job.Profile.Preset, "-pix_fmt", "yuv420p"}, nil
	case CodecVP9:
		return []string{"-c:v", "libvpx-vp9", "-crf", q, "-b:v", "0"}, nil
	case CodecAV1:
		return []string{"-c:v", "av1_vaapi", "-quality", q}, nil
	}
	return nil, fmt.Errorf("unknown codec %q", job.Codec)
}
