package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/example/go-pico-tts/internal/doctor"
	"github.com/example/go-pico-tts/internal/engine"
	"github.com/example/go-pico-tts/internal/voicedefs"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	var voice string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Preflight-check voice resource files",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			var resourceFiles []string

			if voice != "" {
				mgr, err := voicedefs.Load(cfg.Paths.VoiceDefsFile)
				if err != nil {
					return err
				}

				resourceFiles, err = mgr.Resolve(voice)
				if err != nil {
					return err
				}
			} else {
				resourceFiles = cfg.Paths.ResourceFiles
			}

			if len(resourceFiles) == 0 {
				return errors.New("no resource files to check: pass --voice or set paths.resource_files")
			}

			result := doctor.Run(doctor.Config{
				ResourceFiles: resourceFiles,
				RequiredKBs:   []byte{engine.KBPdfLfz, engine.KBPdfMgc},
			}, slog.Default())

			if result.Failed() {
				for _, f := range result.Failures() {
					fmt.Fprintf(os.Stderr, "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			fmt.Fprintln(os.Stdout, "doctor checks passed")

			return nil
		},
	}

	cmd.Flags().StringVar(&voice, "voice", "", "Check the resources a named voice definition assembles from")

	return cmd
}
