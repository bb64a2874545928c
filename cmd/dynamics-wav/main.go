// Command dynamics-wav applies the soundboard compressor to a WAV file.
//
// Usage:
//
//	dynamics-wav -threshold -18 -ratio 4 input.wav output.wav
//	dynamics-wav -threshold -24 -ratio 8 -makeup 6 input.wav output.wav
//	dynamics-wav -v input.wav output.wav
//
// The whole file is processed in one pass, the way the soundboard processes
// a clip, and written back in the same bit depth and channel layout.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	dynamics "github.com/tphakala/go-audio-dynamics"
)

const minRequiredArgs = 2

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	inputGain := flag.Float64("input-gain", dynamics.DefaultInputGainDB, "Input gain in dB")
	threshold := flag.Float64("threshold", dynamics.DefaultThresholdDB, "Compression threshold in dBFS")
	ratio := flag.Float64("ratio", dynamics.DefaultRatio, "Compression ratio (>= 1)")
	attack := flag.Float64("attack", dynamics.DefaultAttackMs, "Attack time in milliseconds")
	release := flag.Float64("release", dynamics.DefaultReleaseMs, "Release time in milliseconds")
	makeup := flag.Float64("makeup", dynamics.DefaultMakeupGainDB, "Makeup gain in dB")
	ceiling := flag.Float64("ceiling", dynamics.DefaultOutputCeilingDB, "Output ceiling in dBFS")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	args := flag.Args()
	if len(args) < minRequiredArgs {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] input.wav output.wav\n\nOptions:\n", os.Args[0])
		flag.PrintDefaults()
		return fmt.Errorf("insufficient arguments")
	}
	inputPath := args[0]
	outputPath := args[1]

	settings := dynamics.DefaultSettings()
	settings.InputGainDB = *inputGain
	settings.ThresholdDB = *threshold
	settings.Ratio = *ratio
	settings.AttackMs = *attack
	settings.ReleaseMs = *release
	settings.MakeupGainDB = *makeup
	settings.OutputCeilingDB = *ceiling

	input, err := readWAVClip(inputPath)
	if err != nil {
		return err
	}

	if *verbose {
		log.Printf("Input: %s (%d Hz, %d channels, %s, %d frames)",
			inputPath, input.sampleRate, input.clip.Channels, input.clip.Format, input.clip.Frames())
		log.Printf("Signature: %s", settings.Signature())
	}

	start := time.Now()
	processed, err := dynamics.Process(input.clip, input.sampleRate, settings)
	if err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}
	elapsed := time.Since(start)

	if err := writeWAVClip(outputPath, processed, input.sampleRate); err != nil {
		return err
	}

	inPeak, outPeak := peakLevels(input.clip, processed)
	fmt.Printf("Compressed %s -> %s\n", filepath.Base(inputPath), filepath.Base(outputPath))
	fmt.Printf("  Peak: %.2f dBFS -> %.2f dBFS\n", inPeak, outPeak)
	fmt.Printf("  Duration: %.2fs, Speed: %.1fx realtime\n",
		elapsed.Seconds(),
		input.clip.Duration(input.sampleRate).Seconds()/elapsed.Seconds())

	return nil
}
