package main

import (
	"fmt"
	"image/png"
	"os"

	"github.com/spf13/cobra"
)

func maskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mask <scene.yaml>",
		Short: "Render the scene's fog mask as a PNG alpha image, one pixel per cell",
		Args:  cobra.ExactArgs(1),
		RunE:  runMask,
	}
	cmd.Flags().StringP("out", "o", "mask.png", "output PNG file")
	cmd.Flags().Float64("opacity", -1, "fog opacity in [0,1] (default the scene's)")
	return cmd
}

func runMask(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	out, _ := cmd.Flags().GetString("out")
	opacity, _ := cmd.Flags().GetFloat64("opacity")
	if opacity < 0 {
		opacity = s.scene.FogOpacity
	}

	mask := s.editor.Mask()
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}
	if err := png.Encode(f, mask.Image(opacity)); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", out, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", out, err)
	}
	cols, rows := mask.Size()
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%dx%d cells of %g units)\n", out, cols, rows, mask.Resolution())
	return nil
}
