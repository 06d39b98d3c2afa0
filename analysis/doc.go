// Package analysis recovers tone boundaries and tone frequencies from a bare
// waveform, without any side information.
//
// The Segmenter scores 20ms frames by short-time energy, thresholds the
// normalized energy and turns the active runs into sample ranges. The
// Estimator returns the strongest frequency of one segment inside the
// expected tone band, from a time-averaged STFT magnitude spectrum.
//
// Both stages are heuristics tuned on clean synthesized audio. Their
// thresholds and band limits are configuration, not constants of the format.
//
// The package uses:
//
//   - gonum.org/v1/gonum/floats for frame energies and normalization
//   - gonum.org/v1/gonum/dsp/fourier for the STFT frames
//   - github.com/mjibson/go-dsp/window for the Hann window
//   - github.com/mjibson/go-dsp/fft for the whole-segment fallback spectrum
package analysis
