// Package automation runs batches of motor experiments: scripted scenarios
// loaded from yaml, one-dimensional parameter sweeps and Monte Carlo runs
// over motor parameter tolerances.
package automation
