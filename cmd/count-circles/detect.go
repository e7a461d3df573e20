package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironsheep/count-circles/internal/detection"
	"github.com/ironsheep/count-circles/internal/hough"
	"github.com/ironsheep/count-circles/internal/imaging"
	"github.com/ironsheep/count-circles/internal/logging"
)

func (a *app) detectCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "detect <image>",
		Short: "Detect and count the circles in an image",
		Long: `Detect runs blur, edge detection and the circle Hough transform once on
the image, prints every kept circle and the circle count, and optionally
writes the annotated image and the edge map.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.detect(cmd, args[0], asJSON)
		},
	}

	flags := cmd.Flags()
	flags.StringP("output", "o", a.v.GetString("output.annotated"), "Write the image with the circles drawn to this file")
	flags.String("edges-output", a.v.GetString("output.edges"), "Write the edge map to this file")
	flags.String("color", a.v.GetString("output.color"), "Circle outline color as #RRGGBB")
	flags.BoolVar(&asJSON, "json", false, "Print the result as JSON")
	for name, key := range map[string]string{
		"output":       "output.annotated",
		"edges-output": "output.edges",
		"color":        "output.color",
	} {
		if err := a.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
	return cmd
}

func (a *app) detect(cmd *cobra.Command, path string, asJSON bool) error {
	ctx := cmd.Context()
	log := logging.Component(a.log, "detect")

	opts, err := a.settings.DetectionOptions()
	if err != nil {
		return err
	}

	img, err := imaging.NewImageCache().Load(path)
	if err != nil {
		return err
	}

	exec, release, err := a.executor(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(); err != nil {
			log.Warn().Err(err).Msg("failed to release executor")
		}
	}()

	res, err := detection.DetectCircles(ctx, img, exec, opts, hough.Options{Logger: &log})
	if err != nil {
		return err
	}

	out := a.settings.Output
	if out.Annotated != "" {
		if err := imaging.Save(res.Annotated, out.Annotated); err != nil {
			return err
		}
		log.Info().Str("path", out.Annotated).Msg("annotated image written")
	}
	if out.Edges != "" {
		if err := imaging.Save(imaging.EdgeImage(detection.Edges(img, opts)), out.Edges); err != nil {
			return err
		}
		log.Info().Str("path", out.Edges).Msg("edge map written")
	}

	if asJSON {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printCircles(a, res)
	return nil
}

func printCircles(a *app, res *detection.CirclesResult) {
	for i, c := range res.Circles {
		fmt.Fprintf(a.stdout, "circle %d: x=%d y=%d r=%d votes=%d confidence=%.2f color=%s\n",
			i+1, c.Center.X, c.Center.Y, c.Radius, c.Votes, c.Confidence, c.FillColor)
	}
	fmt.Fprintf(a.stdout, "circles found: %d\n", res.Count)
	fmt.Fprintf(a.stdout, "time elapsed (total): %s\n", res.Timings.Total)
	fmt.Fprintf(a.stdout, "time elapsed (hough): %s\n", res.Timings.Compute)
	fmt.Fprintf(a.stdout, "time elapsed (local): %s\n", res.Timings.Local)
}
