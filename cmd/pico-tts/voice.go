package main

import (
	"fmt"
	"os"

	"github.com/example/go-pico-tts/internal/voicedefs"
	"github.com/spf13/cobra"
)

func newVoiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voice",
		Short: "Inspect and validate voice definitions",
	}

	cmd.AddCommand(newVoiceListCmd())
	cmd.AddCommand(newVoiceVerifyCmd())

	return cmd
}

func newVoiceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the voices named in the voice-definitions file",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			mgr, err := voicedefs.Load(cfg.Paths.VoiceDefsFile)
			if err != nil {
				return err
			}

			for _, v := range mgr.ListVoices() {
				fmt.Printf("%s\t%d resource(s)\n", v.Name, len(v.Resources))
			}

			return nil
		},
	}
}

func newVoiceVerifyCmd() *cobra.Command {
	var resources []string

	cmd := &cobra.Command{
		Use:   "verify <name>",
		Short: "Assemble a voice and report whether it creates a working engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			voiceName := args[0]

			sys, eng, err := assembleEngine(cfg, voiceName, resources)
			if err != nil {
				fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)

				return err
			}
			defer eng.Dispose()

			fmt.Printf("voice %q assembled ok (%d warning(s))\n", voiceName, sys.Warnings().NumWarnings())

			return nil
		},
	}

	cmd.Flags().StringArrayVar(&resources, "resource", nil, "Resource file to assemble the voice from (repeatable; overrides the voice-definitions file)")

	return cmd
}
