package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/battlemap/internal/battlemap/editor"
	"github.com/cory-johannsen/battlemap/internal/battlemap/geom"
	"github.com/cory-johannsen/battlemap/internal/config"
	"github.com/cory-johannsen/battlemap/internal/observability"
	"github.com/cory-johannsen/battlemap/internal/replica"
	"github.com/cory-johannsen/battlemap/internal/scene"
)

// session is one scene opened into a standalone document with every tool
// wired.
type session struct {
	scene  *scene.Scene
	editor *editor.Editor
	logger *zap.Logger
}

func openSession(cmd *cobra.Command, path string) (*session, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := observability.NewCLILogger(cmd.ErrOrStderr(), verbose)
	s, err := scene.LoadSceneFromFile(path)
	if err != nil {
		return nil, err
	}

	opts := cfg.EditorOptions()
	opts.Fog.Bounds = s.Bounds()
	opts.Defaults = s.Settings(cfg.Editor.ActiveLayer)
	if len(s.Layers) > 0 {
		if _, ok := s.Registry().Layer(opts.Defaults.ActiveLayer); !ok {
			opts.Defaults.ActiveLayer = s.Layers[0].ID
		}
	}

	doc := replica.NewDoc(s.ID, "battlemap-cli")
	m := s.Open(doc, observability.ForDocument(logger, s.ID, "battlemap-cli"))
	return &session{
		scene:  s,
		editor: editor.New(m, s.Registry(), opts, logger),
		logger: logger,
	}, nil
}

// save writes the current document back as scene YAML to out, or to stdout
// when out is empty or "-".
func (s *session) save(stdout io.Writer, out string) error {
	data, err := scene.Marshal(s.scene.Capture(s.editor.Map))
	if err != nil {
		return err
	}
	if out == "" || out == "-" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	return nil
}

// parsePoint reads "x,y".
func parsePoint(v string) (geom.Point, error) {
	parts := strings.Split(v, ",")
	if len(parts) != 2 {
		return geom.Point{}, fmt.Errorf("point %q must be x,y", v)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geom.Point{}, fmt.Errorf("point %q: %w", v, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geom.Point{}, fmt.Errorf("point %q: %w", v, err)
	}
	return geom.Pt(x, y), nil
}
