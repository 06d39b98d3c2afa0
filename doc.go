// Package soniccipher encodes text as a sequence of audible tones and
// decodes such audio back into text.
//
// Every character is shifted by a key in 1..25 modulo 256 and the resulting
// code is mapped linearly onto a frequency band, 220..880 Hz by default. Each
// code becomes one faded sine tone. Decoding either inverts the frequencies
// stored in the metadata record written alongside the audio, which is exact,
// or analyzes the bare waveform, which is approximate.
//
// The shift is a Caesar-style obfuscation. It provides no confidentiality.
//
// # Getting Started
//
//	options := soniccipher.NewOptions()
//	options.Key = 7
//	options.Algorithm = tone.Enhanced
//
//	codec, err := soniccipher.New(options)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	msg, err := codec.Encrypt("Hello")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := msg.Save("hello.wav"); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Exact decode from the metadata record
//	text, err := codec.Decrypt(msg.Waveform, msg.SampleRate, msg.Metadata)
//
// For one-off calls the package-level Encrypt and Decrypt functions build a
// Codec with default settings.
//
// # Algorithms
//
// The algorithm only changes tone timing and loudness, never the frequency:
//
//   - [tone.Standard]: every tone lasts the base duration at amplitude 0.5
//   - [tone.Enhanced]: durations cycle through five steps of 50ms
//   - [tone.PlusAES]: durations vary with position and key; despite the
//     name no block cipher is involved
//
// Enhanced and PlusAES also vary amplitude between 0.4 and 0.89 with the code.
//
// # Decoding Without Metadata
//
// When no record is available the waveform is split into tones by
// short-time energy and the strongest in-band frequency of each tone is
// snapped to a code. Tones must be separated by silence to be told apart,
// and frequency resolution is far coarser than one code step, so expect
// neighbouring characters and '?' for tones outside the band. Widening
// Options.Tolerance never reduces the number of recovered characters.
//
// A waveform that is loud from its first frame to its last, such as an
// unmodified encoded message, has no edges to segment on and decodes to "".
// Set Options.Segmenter.CloseOpenRuns to treat the signal edges as tone
// boundaries instead.
//
// # Persistence
//
// [EncodedMessage.Save] writes a 16-bit mono WAV file plus a JSON
// ".metadata" side file and a plain-text ".info.txt" summary. The store
// package loads them back. [EncodedMessage.SaveSealed] instead writes the
// record encrypted under a passphrase.
//
// # Error Handling
//
// Invalid options and oversized inputs return errors matching [ErrConfig].
// Unreadable files and malformed records return errors matching [ErrFormat].
// Degraded analysis is never an error.
//
// # Self Test
//
// [Verify] encrypts a text, decrypts it from the metadata and lists the
// positions that differ, which is only possible for characters above U+00FF.
package soniccipher
