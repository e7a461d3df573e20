// Package config loads count-circles settings from defaults, an optional YAML
// file, COUNT_CIRCLES_* environment variables and command-line flags, in
// increasing order of precedence.
//
// Keys are dotted paths such as "hough.min_radius"; the matching environment
// variable replaces dots with underscores, for example
// COUNT_CIRCLES_HOUGH_MIN_RADIUS.
package config
