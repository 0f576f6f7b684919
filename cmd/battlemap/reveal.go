package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/battlemap/internal/battlemap/editor"
)

func revealCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reveal <scene.yaml>",
		Short: "Reveal the wall-bounded room around each point and write the scene",
		Long: "Flood-fills from every --at point through the scene's walls and appends the\n" +
			"revealed areas to the fog log as one room.",
		Args: cobra.ExactArgs(1),
		RunE: runReveal,
	}
	cmd.Flags().StringArray("at", nil, "point to reveal from, as x,y (repeatable)")
	cmd.Flags().String("name", "", "room name (default Room N)")
	cmd.Flags().StringP("out", "o", "-", "output scene file")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

func runReveal(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	points, _ := cmd.Flags().GetStringArray("at")
	name, _ := cmd.Flags().GetString("name")
	out, _ := cmd.Flags().GetString("out")

	s.editor.SetMode(editor.FogFill)
	before := len(s.editor.Map.FogShapes())
	for _, v := range points {
		p, err := parsePoint(v)
		if err != nil {
			return err
		}
		s.editor.PointerDown(editor.Event{P: p})
		s.editor.PointerUp(editor.Event{P: p})
	}
	revealed := len(s.editor.Map.FogShapes()) - before
	if revealed == 0 {
		return errors.New("every point lies outside the map or on a wall")
	}
	if id := s.editor.Fog.ActiveRoom(); id != "" && name != "" {
		s.editor.Fog.RenameRoom(id, name)
	}
	s.editor.SetMode(editor.Select)
	fmt.Fprintf(cmd.ErrOrStderr(), "revealed %d of %d areas\n", revealed, len(points))
	return s.save(cmd.OutOrStdout(), out)
}
