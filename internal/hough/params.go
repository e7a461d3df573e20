package hough

import (
	"errors"
	"fmt"
)

// AngleSamples is the number of angles each edge pixel votes at, per radius.
const AngleSamples = 361

var (
	// ErrInvalidParams is returned for radius ranges, thresholds or sizes the
	// transform cannot work with.
	ErrInvalidParams = errors.New("invalid hough parameters")

	// ErrGeometry is returned when two accumulators cannot be combined.
	ErrGeometry = errors.New("accumulator geometry mismatch")
)

// Params configures one run of the transform.
type Params struct {
	// MinRadius and MaxRadius bound the searched radii, both inclusive.
	MinRadius int `json:"min_radius" mapstructure:"min_radius"`
	MaxRadius int `json:"max_radius" mapstructure:"max_radius"`

	// PeakThreshold is the minimum vote count for a cell to become a candidate.
	PeakThreshold int `json:"peak_threshold" mapstructure:"peak_threshold"`

	// Binning keeps only the strongest cell per BinSize×BinSize tile.
	Binning bool `json:"binning" mapstructure:"binning"`
	BinSize int  `json:"bin_size" mapstructure:"bin_size"`

	// Spacing drops candidates whose center lies within SpacingSize pixels of an
	// already kept candidate.
	Spacing     bool `json:"spacing" mapstructure:"spacing"`
	SpacingSize int  `json:"spacing_size" mapstructure:"spacing_size"`
}

// Depth returns the number of radii searched.
func (p Params) Depth() int {
	return p.MaxRadius - p.MinRadius + 1
}

// Validate reports whether the transform can run with p.
func (p Params) Validate() error {
	switch {
	case p.MinRadius < 1:
		return fmt.Errorf("%w: min radius %d < 1", ErrInvalidParams, p.MinRadius)
	case p.MaxRadius < p.MinRadius:
		return fmt.Errorf("%w: max radius %d < min radius %d", ErrInvalidParams, p.MaxRadius, p.MinRadius)
	case p.PeakThreshold < 0:
		return fmt.Errorf("%w: negative peak threshold %d", ErrInvalidParams, p.PeakThreshold)
	case p.Binning && p.BinSize < 1:
		return fmt.Errorf("%w: bin size %d < 1", ErrInvalidParams, p.BinSize)
	case p.Spacing && p.SpacingSize < 0:
		return fmt.Errorf("%w: negative spacing size %d", ErrInvalidParams, p.SpacingSize)
	}
	return nil
}

// Record is the fixed five-integer parameter record exchanged with workers
// before each run.
type Record [5]int32

// Record packs the numeric parameters in wire order: min radius, max radius,
// peak threshold, bin size, spacing size.
func (p Params) Record() Record {
	return Record{
		int32(p.MinRadius),
		int32(p.MaxRadius),
		int32(p.PeakThreshold),
		int32(p.BinSize),
		int32(p.SpacingSize),
	}
}

// ParamsFromRecord restores numeric parameters from a record. The binning and
// spacing switches are not part of the record and are passed separately.
func ParamsFromRecord(r Record, binning, spacing bool) Params {
	return Params{
		MinRadius:     int(r[0]),
		MaxRadius:     int(r[1]),
		PeakThreshold: int(r[2]),
		Binning:       binning,
		BinSize:       int(r[3]),
		Spacing:       spacing,
		SpacingSize:   int(r[4]),
	}
}
