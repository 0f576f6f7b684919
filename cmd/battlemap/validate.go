package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/battlemap/internal/battlemap/geom"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scene.yaml>",
		Short: "Check a scene file and summarize its contents",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	var segments, doors, open, curves int
	for _, w := range s.editor.Map.Walls() {
		for _, seg := range w.Segments {
			segments++
			if seg.IsDoor {
				doors++
				if seg.DoorOpen() {
					open++
				}
			}
			if seg.Kind() != geom.Linear {
				curves++
			}
		}
	}
	mask := s.editor.Mask()
	w, h := mask.Size()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "scene %s (%s) %gx%g\n", s.scene.ID, s.scene.Name, s.scene.Width, s.scene.Height)
	fmt.Fprintf(out, "walls: %d, segments: %d, curves: %d, doors: %d (%d open)\n",
		len(s.editor.Map.Walls()), segments, curves, doors, open)
	fmt.Fprintf(out, "fog: %d shapes, %d rooms, %d of %d cells hidden\n",
		len(s.editor.Map.FogShapes()), len(s.editor.Map.Rooms()), mask.HiddenCount(), w*h)
	return nil
}
