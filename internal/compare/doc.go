// Package compare derives comparison metrics from evaluation results. Every
// function here is a pure projection: reports are recomputed on demand and
// never stored.
package compare
