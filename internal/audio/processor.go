package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sojinoh/Audio-Fingerprinting/pkg/utils"
)

type ConvertWAVConfig struct {
	SampleRate int // e.g. 22050, 44100
}

// FFmpegAvailable reports whether an ffmpeg binary is on PATH.
func FFmpegAvailable() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// ConvertToMonoWAV converts an audio file to mono 16-bit PCM WAV at the
// configured rate and saves it to outputDir as <name>.wav.
func ConvertToMonoWAV(
	ctx context.Context,
	inputPath string,
	outputDir string,
	cfg ConvertWAVConfig,
) (string, error) {

	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultFormat.SampleRate
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", err
	}

	baseName := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(outputDir, baseName+".wav")

	tmpPath := outputPath + ".tmp.wav"
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(
		ctx,
		"ffmpeg",
		"-y",
		"-v", "quiet",
		"-i", inputPath,
		"-ac", "1", // mono
		"-ar", fmt.Sprintf("%d", cfg.SampleRate),
		"-c:a", "pcm_s16le",
		tmpPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ffmpeg failed: %v (%s)", err, out)
	}

	if err := utils.MoveFile(tmpPath, outputPath); err != nil {
		return "", err
	}

	return outputPath, nil
}
