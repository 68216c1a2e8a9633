package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/avtoolkit/clipforge/internal/media"
)

func newProbeCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "probe <video>",
		Short: "Print the metadata of a video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			info, err := media.NewProber(&a.cfg.Ffmpeg).Probe(ctx, args[0])
			if err != nil {
				return err
			}

			if asJSON {
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(info)
			}

			width, height := info.EffectiveDimensions()
			fmt.Printf("File:       %s\n", info.Filename)
			fmt.Printf("Codec:      %s\n", info.Codec)
			fmt.Printf("Dimensions: %dx%d (stored %dx%d, rotation %d)\n", width, height, info.Width, info.Height, info.Rotation)
			fmt.Printf("Duration:   %s\n", info.Duration)
			fmt.Printf("Frame rate: %.3f\n", info.FrameRate)
			fmt.Printf("Audio:      %v\n", info.HasAudio)
			fmt.Printf("Size:       %d bytes\n", info.Size)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print metadata as JSON")
	return cmd
}
