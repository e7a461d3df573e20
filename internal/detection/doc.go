// Package detection finds and counts circles in images.
//
// DetectCircles glues the preprocessing of package imaging to the Hough circle
// transform of package hough and reports every kept circle with its center,
// radius, vote count, confidence and sampled fill color.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// # Confidence Scores
//
// Each edge pixel votes at 361 angle samples per radius, so a perfect digital
// circle collects 361 votes at its center. Confidence is votes / 361, capped at
// 1.0. Thick or blurred outlines can exceed 361 votes and score 1.0.
//
// # Performance Considerations
//
// Voting costs edge pixels × radii × 361. Narrowing the radius range or raising
// the edge thresholds reduces the work more than anything else; the executor
// passed to DetectCircles decides how the work is spread over goroutines or
// workers.
package detection
