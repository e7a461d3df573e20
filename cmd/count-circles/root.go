package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ironsheep/count-circles/internal/config"
	"github.com/ironsheep/count-circles/internal/logging"
)

// app carries the state shared by all subcommands.
type app struct {
	v          *viper.Viper
	configFile string
	settings   *config.Settings
	log        zerolog.Logger
	stdout     io.Writer
	stderr     io.Writer
}

// flagKeys maps persistent flag names to config keys.
var flagKeys = map[string]string{
	"mode":            "mode",
	"transfer":        "transfer",
	"workers":         "workers",
	"threads":         "threads",
	"worker-addr":     "worker_addrs",
	"blur":            "blur.method",
	"blur-ksize":      "blur.ksize",
	"edges":           "edges.method",
	"edges-ksize":     "edges.ksize",
	"sobel-threshold": "edges.sobel_threshold",
	"canny-low":       "edges.canny_low",
	"canny-high":      "edges.canny_high",
	"min-radius":      "hough.min_radius",
	"max-radius":      "hough.max_radius",
	"peak-threshold":  "hough.peak_threshold",
	"binning":         "hough.binning",
	"bin-size":        "hough.bin_size",
	"spacing":         "hough.spacing",
	"spacing-size":    "hough.spacing_size",
	"log-level":       "log.level",
	"log-json":        "log.json",
}

func newRootCommand() *cobra.Command {
	return newApp(os.Stdout, os.Stderr).command()
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		v:      config.New(),
		log:    zerolog.Nop(),
		stdout: stdout,
		stderr: stderr,
	}
}

func (a *app) command() *cobra.Command {
	root := &cobra.Command{
		Use:           "count-circles",
		Short:         "Count circles in images with a circle Hough transform",
		Version:       fmt.Sprintf("%s (built %s, commit %s)", Version, BuildTime, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	setupFlags(root.PersistentFlags(), a)
	if err := bindFlags(a.v, root.PersistentFlags()); err != nil {
		panic(err)
	}

	root.AddCommand(
		a.detectCommand(),
		a.benchCommand(),
		a.workerCommand(),
		a.serveCommand(),
	)
	return root
}

// setupFlags defines the flags shared by every subcommand. Their defaults come
// from the viper defaults so --help shows the effective values.
func setupFlags(flags *pflag.FlagSet, a *app) {
	v := a.v
	flags.StringVarP(&a.configFile, "config", "c", "", "Config file (default ./count-circles.yaml or the user config dir)")

	flags.String("mode", v.GetString("mode"), "Accumulation mode: sequential, parallel or distributed")
	flags.String("transfer", v.GetString("transfer"), "Distributed transfer mode: full or crop")
	flags.Int("workers", v.GetInt("workers"), "In-process workers in distributed mode without --worker-addr")
	flags.IntP("threads", "t", v.GetInt("threads"), "Voting goroutines (per worker in distributed mode)")
	flags.StringSlice("worker-addr", v.GetStringSlice("worker_addrs"), "Remote worker address host:port (repeatable)")

	flags.String("blur", v.GetString("blur.method"), "Blur filter: median or gaussian")
	flags.Int("blur-ksize", v.GetInt("blur.ksize"), "Blur kernel size, odd from 1 to 21")
	flags.String("edges", v.GetString("edges.method"), "Edge detector: canny or sobel")
	flags.Int("edges-ksize", v.GetInt("edges.ksize"), "Edge kernel size: 3, 5 or 7")
	flags.Int("sobel-threshold", v.GetInt("edges.sobel_threshold"), "Sobel black/white threshold (0-255)")
	flags.Int("canny-low", v.GetInt("edges.canny_low"), "First Canny hysteresis threshold")
	flags.Int("canny-high", v.GetInt("edges.canny_high"), "Second Canny hysteresis threshold")

	flags.Int("min-radius", v.GetInt("hough.min_radius"), "Minimum circle radius in pixels")
	flags.Int("max-radius", v.GetInt("hough.max_radius"), "Maximum circle radius in pixels")
	flags.Int("peak-threshold", v.GetInt("hough.peak_threshold"), "Accumulator peak threshold")
	flags.Bool("binning", v.GetBool("hough.binning"), "Keep only the strongest candidate per bin")
	flags.Int("bin-size", v.GetInt("hough.bin_size"), "Bin size in pixels (at least 5)")
	flags.Bool("spacing", v.GetBool("hough.spacing"), "Drop candidates crowding a kept circle")
	flags.Int("spacing-size", v.GetInt("hough.spacing_size"), "Minimum distance between circle centers")

	flags.String("log-level", v.GetString("log.level"), "Log level: debug, info, warn or error")
	flags.Bool("log-json", v.GetBool("log.json"), "Log JSON instead of console output")
}

// bindFlags binds every flag in flagKeys to its config key.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}

// init loads the settings and sets up logging.
func (a *app) init() error {
	settings, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	a.settings = settings

	level, err := logging.ParseLevel(settings.Log.Level)
	if err != nil {
		return err
	}
	// stdout stays free for results and the MCP protocol.
	if settings.Log.JSON {
		a.log = logging.New(a.stderr, level)
	} else {
		a.log = logging.Console(a.stderr, level)
	}

	a.log.Debug().
		Str("version", Version).
		Str("mode", string(settings.Mode)).
		Str("config", a.v.ConfigFileUsed()).
		Msg("settings loaded")
	return nil
}
