// Package audio renders tone plans into sampled waveforms and moves samples
// between the float domain used by the codec and the 16-bit PCM used on disk
// and on playback devices.
//
// # Architecture Overview
//
//	Encode:   tone.Event → Synthesize → []float64 → Quantize → []int16 (WAV)
//	Playback: []float64 → Resampler → Quantize → GainEffect → s16le → Player sink
//	Intake:   []int16 / Opus frames → Intake → []float64 → analysis
//
// # Core Components
//
// ## Synthesize
//
// Renders one sine tone per event with short linear fades and concatenates
// them into a single buffer:
//
//	waveform := audio.Synthesize(plan.Events, audio.DefaultSampleRate)
//
// ## Resampler
//
// Linear interpolation sample rate conversion for mono waveforms:
//
//	r, err := audio.NewResampler(audio.ResamplerConfig{InputRate: 44100, OutputRate: 48000})
//	out, err := r.Resample(waveform)
//
// ## Player
//
// Playback is an injected port rather than a global device. StreamPlayer
// writes signed 16-bit little-endian PCM into any io.Writer, which can be a
// pipe to aplay, a sound server socket or a buffer in tests:
//
//	player, err := audio.NewStreamPlayer(os.Stdout, audio.PlayerConfig{DeviceRate: 48000, Volume: 1.0})
//	err = player.Play(waveform, 44100)
//	defer player.Stop()
//
// ## Intake
//
// Converts PCM captured from elsewhere, including Opus frames received over a
// call, into the float waveform consumed by the analysis path. Opus audio is
// always decoded at 48kHz; Ogg/Opus files are unpacked with ReadOggOpus:
//
//	f, _ := os.Open("message.opus")
//	waveform, rate, err := audio.NewIntake(44100).FromOgg(f)
//
// # Dependencies
//
//   - github.com/pion/opus: Pure Go Opus decoder (no CGO)
//   - github.com/pion/opus/pkg/oggreader: Ogg page parsing
//   - github.com/sirupsen/logrus: Structured logging
package audio
