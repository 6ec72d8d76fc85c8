package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/example/go-pico-tts/internal/audio"
	"github.com/example/go-pico-tts/internal/engine"
	"github.com/example/go-pico-tts/internal/pipeline"
	"github.com/lestrrat-go/strftime"
	"github.com/spf13/cobra"
)

func newSynthCmd() *cobra.Command {
	var (
		text      string
		out       string
		voice     string
		resources []string
	)

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Synthesize text to a 16 kHz mono 16-bit WAV file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			selectedVoice := cfg.Engine.DefaultVoice
			if voice != "" {
				selectedVoice = voice
			}
			if selectedVoice == "" {
				return fmt.Errorf("either --voice or engine.default_voice must name a voice")
			}

			inputText, err := readSynthText(text, cmd.InOrStdin())
			if err != nil {
				return err
			}

			sys, eng, err := assembleEngine(cfg, selectedVoice, resources)
			if err != nil {
				return err
			}
			defer eng.Dispose()

			loadedAt, _ := strftime.Format("%Y-%m-%dT%H:%M:%S%z", time.Now())
			cmd.PrintErrf("voice %q assembled at %s\n", selectedVoice, loadedAt)

			pcm, err := synthesizeText(eng, inputText)
			if err != nil {
				return err
			}

			if n := sys.Warnings().NumWarnings(); n > 0 {
				cmd.PrintErrf("note: %d system-level warning(s) during resource load\n", n)
			}

			wavData, err := audio.EncodeWAVPCM16(pcm, audio.ExpectedSampleRate)
			if err != nil {
				return fmt.Errorf("encode wav: %w", err)
			}

			return writeSynthOutput(out, wavData, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Text to synthesize (if empty, read from stdin)")
	cmd.Flags().StringVar(&out, "out", "out.wav", "Output WAV path ('-' for stdout)")
	cmd.Flags().StringVar(&voice, "voice", "", "Voice name from the voice-definitions file (overrides config)")
	cmd.Flags().StringArrayVar(&resources, "resource", nil, "Resource file to assemble the voice from (repeatable; overrides the voice-definitions file)")

	return cmd
}

// synthesizeText feeds text through eng (with a trailing NUL terminator,
// per spec §4.3's flush signal) and drains get_data until the pipeline
// reports genuine completion.
func synthesizeText(eng *engine.Engine, text string) ([]byte, error) {
	eng.FeedText(append([]byte(text), 0))

	var pcm []byte
	buf := make([]byte, 4096)

	for {
		n, _, status := eng.GetData(buf)
		if n > 0 {
			pcm = append(pcm, buf[:n]...)
		}
		if eng.HasException() {
			return nil, fmt.Errorf("synthesis failed: exception code %d", eng.ExceptionCode())
		}
		if status == pipeline.Idle && n == 0 {
			break
		}
		if status == pipeline.Error {
			return nil, fmt.Errorf("synthesis failed: exception code %d", eng.ExceptionCode())
		}
	}

	return pcm, nil
}

func readSynthText(text string, stdin io.Reader) (string, error) {
	if strings.TrimSpace(text) != "" {
		return text, nil
	}

	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}

	input := strings.TrimSpace(string(b))
	if input == "" {
		return "", fmt.Errorf("either provide --text or pipe text on stdin")
	}

	return input, nil
}

func writeSynthOutput(outPath string, wavData []byte, stdout io.Writer) error {
	if outPath == "-" {
		_, err := stdout.Write(wavData)

		return err
	}

	return os.WriteFile(outPath, wavData, 0o644)
}
