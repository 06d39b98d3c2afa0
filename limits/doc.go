// Package limits provides centralized size constants and validation functions
// shared by the encoder, the decoder and the persistence layer.
//
// # Limits
//
//   - MaxMessageChars (4096): the longest message accepted for encoding.
//     Characters, not bytes, are counted because each one becomes a tone.
//
//   - MaxWaveformSamples: ten minutes of 44.1 kHz mono audio. Waveforms handed
//     to the analysis path or written to disk are checked against it.
//
//   - MaxMetadataBytes (4MB): the largest metadata side file that is read and
//     parsed.
//
// # Validation Functions
//
//	if err := limits.ValidateMessage(text); err != nil {
//	    // errors.Is(err, limits.ErrMessageTooLarge)
//	}
//
// ValidateMetadata additionally rejects an empty document with ErrMessageEmpty.
package limits
