package main

import (
	"fmt"
	"os"
	"time"

	"github.com/example/go-pico-tts/internal/audio"
	"github.com/example/go-pico-tts/internal/bench"
	"github.com/example/go-pico-tts/internal/pipeline"
	"github.com/spf13/cobra"
)

func newBenchCmd() *cobra.Command {
	var (
		text         string
		voice        string
		resources    []string
		runs         int
		format       string
		rtfThreshold float64
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark synthesis latency and realtime factor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if text == "" {
				return fmt.Errorf("--text is required for bench")
			}
			if runs < 1 {
				return fmt.Errorf("--runs must be at least 1")
			}
			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be 'table' or 'json'")
			}

			selectedVoice := cfg.Engine.DefaultVoice
			if voice != "" {
				selectedVoice = voice
			}

			_, eng, err := assembleEngine(cfg, selectedVoice, resources)
			if err != nil {
				return err
			}
			defer eng.Dispose()

			results := make([]bench.RunResult, 0, runs)

			for i := 0; i < runs; i++ {
				start := time.Now()

				pcm, err := synthesizeText(eng, text)
				if err != nil {
					return fmt.Errorf("run %d failed: %w", i+1, err)
				}

				dur := time.Since(start)

				wavData, err := audio.EncodeWAVPCM16(pcm, audio.ExpectedSampleRate)
				if err != nil {
					return fmt.Errorf("run %d encode failed: %w", i+1, err)
				}

				audioDur, err := bench.WAVDuration(wavData)
				if err != nil {
					fmt.Fprintf(os.Stderr, "warn: run %d: could not parse WAV duration: %v\n", i+1, err)
				}

				results = append(results, bench.RunResult{
					Index:       i,
					Cold:        i == 0,
					Duration:    dur,
					WAVDuration: audioDur,
					RTF:         bench.CalcRTF(dur, audioDur),
				})

				if err := eng.Reset(pipeline.Full); err != nil {
					return fmt.Errorf("reset after run %d: %w", i+1, err)
				}
			}

			durations := make([]time.Duration, len(results))
			for i, r := range results {
				durations[i] = r.Duration
			}
			stats := bench.ComputeStats(durations)

			if format == "json" {
				bench.FormatJSON(results, stats, os.Stdout)
			} else {
				bench.FormatTable(results, stats, os.Stdout)
			}

			var totalRTF float64
			for _, r := range results {
				totalRTF += r.RTF
			}
			meanRTF := totalRTF / float64(len(results))

			return bench.CheckRTFThreshold(meanRTF, rtfThreshold)
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Text to synthesize for each run (required)")
	cmd.Flags().StringVar(&voice, "voice", "", "Voice name (overrides config)")
	cmd.Flags().StringArrayVar(&resources, "resource", nil, "Resource file to assemble the voice from (repeatable; overrides the voice-definitions file)")
	cmd.Flags().IntVar(&runs, "runs", 5, "Number of synthesis runs")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")
	cmd.Flags().Float64Var(&rtfThreshold, "rtf-threshold", 0, "Exit non-zero if mean RTF exceeds this value (0 = disabled)")

	return cmd
}
