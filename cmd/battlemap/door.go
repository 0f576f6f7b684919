package main

import (
	"errors"

	"github.com/spf13/cobra"
)

func doorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "door <scene.yaml>",
		Short: "Insert or toggle a door at a point on a wall and write the scene",
		Args:  cobra.ExactArgs(1),
		RunE:  runDoor,
	}
	cmd.Flags().String("at", "", "point on the wall, as x,y")
	cmd.Flags().StringP("out", "o", "-", "output scene file")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

func runDoor(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	at, _ := cmd.Flags().GetString("at")
	out, _ := cmd.Flags().GetString("out")
	p, err := parsePoint(at)
	if err != nil {
		return err
	}
	if !s.editor.Walls.DoorClick(p) {
		return errors.New("no editable wall near the point, or too close to a wall end")
	}
	return s.save(cmd.OutOrStdout(), out)
}
