package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ironsheep/count-circles/internal/cluster"
	"github.com/ironsheep/count-circles/internal/detection"
	"github.com/ironsheep/count-circles/internal/hough"
	"github.com/ironsheep/count-circles/internal/imaging"
)

// EnvPrefix prefixes every environment variable read by New.
const EnvPrefix = "COUNT_CIRCLES"

// ConfigName is the base name of the config file searched by Load.
const ConfigName = "count-circles"

// Mode selects how the accumulator is built.
type Mode string

const (
	ModeSequential  Mode = "sequential"
	ModeParallel    Mode = "parallel"
	ModeDistributed Mode = "distributed"
)

// Settings holds every setting of the command-line tool and the MCP server.
type Settings struct {
	Mode     Mode   `mapstructure:"mode"`
	Transfer string `mapstructure:"transfer"`

	// Workers is the number of in-process distributed workers started when
	// WorkerAddrs is empty.
	Workers int `mapstructure:"workers"`

	// Threads is the voting goroutine count, per worker in distributed mode.
	Threads int `mapstructure:"threads"`

	// WorkerAddrs lists remote worker endpoints (host:port).
	WorkerAddrs []string `mapstructure:"worker_addrs"`

	Blur    BlurSettings    `mapstructure:"blur"`
	Edges   EdgeSettings    `mapstructure:"edges"`
	Hough   hough.Params    `mapstructure:"hough"`
	Eval    EvalSettings    `mapstructure:"eval"`
	Output  OutputSettings  `mapstructure:"output"`
	Log     LogSettings     `mapstructure:"log"`
	Metrics MetricsSettings `mapstructure:"metrics"`
	Server  ServerSettings  `mapstructure:"server"`
}

// BlurSettings configures the blur filter.
type BlurSettings struct {
	Method string `mapstructure:"method"` // median or gaussian
	KSize  int    `mapstructure:"ksize"`  // odd, 1 to 21
}

// EdgeSettings configures the edge detector.
type EdgeSettings struct {
	Method         string `mapstructure:"method"` // canny or sobel
	KSize          int    `mapstructure:"ksize"`  // odd, 3 to 7
	SobelThreshold int    `mapstructure:"sobel_threshold"`
	CannyLow       int    `mapstructure:"canny_low"`
	CannyHigh      int    `mapstructure:"canny_high"`
}

// EvalSettings configures the bench command.
type EvalSettings struct {
	Times        int    `mapstructure:"times"`
	AveragesFile string `mapstructure:"averages_file"`
}

// OutputSettings names the files written by the detect command. Empty paths
// are not written.
type OutputSettings struct {
	Annotated string `mapstructure:"annotated"`
	Edges     string `mapstructure:"edges"`
	Color     string `mapstructure:"color"`
}

// LogSettings configures logging.
type LogSettings struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// MetricsSettings configures Prometheus export. Empty values disable the
// corresponding output.
type MetricsSettings struct {
	// Listen is the address of the /metrics endpoint of the serve command.
	Listen string `mapstructure:"listen"`

	// Textfile receives the metrics of a bench run in text exposition format.
	Textfile string `mapstructure:"textfile"`
}

// ServerSettings configures the MCP server.
type ServerSettings struct {
	// CacheTTL is how long a decoded image stays cached. Zero keeps images
	// until the server exits.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// SetDefaults registers the default value of every key with v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("mode", string(ModeSequential))
	v.SetDefault("transfer", cluster.TransferFull.String())
	v.SetDefault("workers", 2)
	v.SetDefault("threads", 2)
	v.SetDefault("worker_addrs", []string{})

	v.SetDefault("blur.method", imaging.BlurMedian.String())
	v.SetDefault("blur.ksize", 5)

	v.SetDefault("edges.method", imaging.EdgeCanny.String())
	v.SetDefault("edges.ksize", 3)
	v.SetDefault("edges.sobel_threshold", 128)
	v.SetDefault("edges.canny_low", 100)
	v.SetDefault("edges.canny_high", 200)

	v.SetDefault("hough.min_radius", 15)
	v.SetDefault("hough.max_radius", 30)
	v.SetDefault("hough.peak_threshold", 125)
	v.SetDefault("hough.binning", true)
	v.SetDefault("hough.bin_size", 32)
	v.SetDefault("hough.spacing", true)
	v.SetDefault("hough.spacing_size", 40)

	v.SetDefault("eval.times", 10)
	v.SetDefault("eval.averages_file", "avg.txt")

	v.SetDefault("output.annotated", "")
	v.SetDefault("output.edges", "")
	v.SetDefault("output.color", imaging.DefaultCircleColor)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("metrics.listen", "")
	v.SetDefault("metrics.textfile", "")

	v.SetDefault("server.cache_ttl", 10*time.Minute)
}

// New returns a viper instance with defaults registered and environment
// variables bound.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// DefaultConfigPaths returns the directories searched for the config file:
// the working directory and the user config directory.
func DefaultConfigPaths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, ConfigName))
	}
	return paths
}

// Load reads file into v, or searches DefaultConfigPaths for
// count-circles.yaml when file is empty, and returns the normalized and
// validated settings. A missing config file is not an error unless file
// names it explicitly.
func Load(v *viper.Viper, file string) (*Settings, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		for _, path := range DefaultConfigPaths() {
			v.AddConfigPath(path)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	settings.Normalize()
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}
	return settings, nil
}

// Normalize clamps settings into their usable ranges.
//
// The bin size is at least 5, the minimum radius at least 1 and the maximum
// radius at least the minimum. Blur kernels are odd sizes from 1 to 21, edge
// kernels odd sizes from 3 to 7, and thread and worker counts at least 1.
func (s *Settings) Normalize() {
	s.Mode = Mode(strings.ToLower(strings.TrimSpace(string(s.Mode))))

	h := &s.Hough
	h.BinSize = max(5, h.BinSize)
	h.MinRadius = max(1, h.MinRadius)
	h.MaxRadius = max(h.MinRadius, h.MaxRadius)

	s.Blur.KSize = imaging.OddKernel(s.Blur.KSize, imaging.MinBlurKSize, imaging.MaxBlurKSize)
	s.Edges.KSize = imaging.OddKernel(s.Edges.KSize, imaging.MinEdgeKSize, imaging.MaxEdgeKSize)

	s.Threads = max(1, s.Threads)
	s.Workers = max(1, s.Workers)
	s.Eval.Times = max(1, s.Eval.Times)
}

// Validate reports settings that Normalize cannot repair.
func (s *Settings) Validate() error {
	var errs []error

	switch s.Mode {
	case ModeSequential, ModeParallel, ModeDistributed:
	default:
		errs = append(errs, fmt.Errorf("unknown mode %q (want sequential, parallel or distributed)", s.Mode))
	}
	if _, err := cluster.ParseTransfer(s.Transfer); err != nil {
		errs = append(errs, err)
	}
	if _, err := imaging.ParseBlurMethod(s.Blur.Method); err != nil {
		errs = append(errs, err)
	}
	if _, err := imaging.ParseEdgeMethod(s.Edges.Method); err != nil {
		errs = append(errs, err)
	}
	if err := s.Params().Validate(); err != nil {
		errs = append(errs, err)
	}
	if s.Server.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("server.cache_ttl must not be negative, got %s", s.Server.CacheTTL))
	}
	for _, addr := range s.WorkerAddrs {
		if strings.TrimSpace(addr) == "" {
			errs = append(errs, errors.New("empty worker address"))
			break
		}
	}

	return errors.Join(errs...)
}

// Params returns the Hough parameters.
func (s *Settings) Params() hough.Params {
	return s.Hough
}

// TransferMode returns the parsed Transfer setting.
func (s *Settings) TransferMode() (cluster.Transfer, error) {
	return cluster.ParseTransfer(s.Transfer)
}

// DetectionOptions converts the settings to detection options.
func (s *Settings) DetectionOptions() (detection.Options, error) {
	blur, err := imaging.ParseBlurMethod(s.Blur.Method)
	if err != nil {
		return detection.Options{}, err
	}
	edges, err := imaging.ParseEdgeMethod(s.Edges.Method)
	if err != nil {
		return detection.Options{}, err
	}

	return detection.Options{
		Params:    s.Params(),
		Blur:      blur,
		BlurKSize: s.Blur.KSize,
		Edges: imaging.EdgeOptions{
			Method:         edges,
			KSize:          s.Edges.KSize,
			Low:            s.Edges.CannyLow,
			High:           s.Edges.CannyHigh,
			SobelThreshold: s.Edges.SobelThreshold,
		},
		Annotate: s.Output.Annotated != "",
		Color:    s.Output.Color,
	}, nil
}
