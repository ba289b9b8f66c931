// Command spectrogram renders PNG spectrograms of the audio files in a
// directory, decoded the same way the index decodes them.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/draw"
	"os"
	"path/filepath"

	"github.com/eligwz/spectrogram"

	"github.com/sojinoh/Audio-Fingerprinting/internal/audio"
	"github.com/sojinoh/Audio-Fingerprinting/internal/ingest"
	"github.com/sojinoh/Audio-Fingerprinting/pkg/logger"
)

var (
	inputDir   string
	outputDir  string
	width      int
	height     int
	sampleRate int
	useFFmpeg  bool
	log10      bool
)

func init() {
	flag.StringVar(&inputDir, "in", "testdata", "Directory of audio files")
	flag.StringVar(&outputDir, "out", "spectrograms", "Directory PNGs are written to")
	flag.IntVar(&width, "width", 2048, "Image width in pixels")
	flag.IntVar(&height, "height", 512, "Image height in pixels (frequency bins)")
	flag.IntVar(&sampleRate, "rate", 44100, "Sample rate files are decoded at")
	flag.BoolVar(&useFFmpeg, "ffmpeg", false, "Convert other formats and sample rates with ffmpeg")
	flag.BoolVar(&log10, "log", false, "Plot log10 magnitudes instead of linear")
}

func main() {
	flag.Parse()
	log := logger.GetLogger().With("spectrogram")

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		log.Fatalf("Creating %s: %v", outputDir, err)
	}

	files, err := ingest.Scan(inputDir, nil)
	if err != nil {
		log.Fatalf("Scanning %s: %v", inputDir, err)
	}

	format := audio.Format{SampleRate: sampleRate, BitDepth: 16}
	dec := audio.NewFileDecoder(format)
	dec.FFmpeg = useFFmpeg

	var rendered int
	for _, path := range files {
		outputPath := filepath.Join(outputDir, filepath.Base(path)+".png")
		if err := render(context.Background(), dec, path, outputPath); err != nil {
			log.Warnf("Skipping %s: %v", path, err)
			continue
		}
		rendered++
		fmt.Printf("Saved spectrogram to %s\n", outputPath)
	}
	fmt.Printf("Done: %d of %d files\n", rendered, len(files))
}

func render(ctx context.Context, dec *audio.FileDecoder, path, outputPath string) error {
	pcm, err := dec.Decode(ctx, path)
	if err != nil {
		return err
	}

	// Normalise 16-bit samples to [-1, 1].
	samples := audio.Samples(pcm, dec.Format)
	for i := range samples {
		samples[i] /= 32768
	}

	img := spectrogram.NewImage128(image.Rect(0, 0, width, height))
	black := spectrogram.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	// Hamming window, FFT, magnitude.
	spectrogram.Drawfft(
		img,
		samples,
		uint32(dec.Format.SampleRate),
		uint32(height),
		false,
		false,
		true,
		log10,
	)

	return spectrogram.SavePng(img, outputPath)
}
