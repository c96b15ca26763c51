// Package scan runs families of optics computations: momentum sweeps
// spread across worker goroutines and scripted YAML scenarios.
//
// Trackers keep per-lattice setup state and are not safe for concurrent
// use, so every task builds its own Analyzer through an AnalyzerFactory.
package scan
