// Package main provides the command-line interface for SonicCipher.
//
// It encodes text into tone WAV files, decodes them with or without their
// metadata side file, prints metadata summaries, runs the round-trip self
// test and streams waveforms as raw PCM.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/opd-ai/soniccipher"
	"github.com/opd-ai/soniccipher/audio"
	"github.com/opd-ai/soniccipher/metadata"
	"github.com/opd-ai/soniccipher/store"
	"github.com/opd-ai/soniccipher/tone"
)

// Subcommands
const (
	cmdEncrypt  = "encrypt"
	cmdDecrypt  = "decrypt"
	cmdInfo     = "info"
	cmdSelfTest = "selftest"
	cmdPlay     = "play"
)

// CLI configuration
type CLIConfig struct {
	command string

	// Message and files
	text   string
	input  string
	output string

	// Codec configuration
	key          int
	baseFreq     float64
	freqRange    float64
	baseDuration time.Duration
	algorithm    string
	tolerance    float64 // percent
	sampleRate   uint

	// Decoding
	ignoreMetadata bool
	pcmRate        uint
	opus           bool
	closeRuns      bool
	passphrase     string

	// Playback
	deviceRate uint
	volume     float64

	// Logging and output
	logLevel  string
	logFile   string
	logFormat string
	progress  bool
	help      bool
}

// parseCLIFlags parses the subcommand and its flags.
func parseCLIFlags(args []string, errOut io.Writer) (*CLIConfig, error) {
	config := &CLIConfig{}
	if len(args) == 0 {
		return nil, fmt.Errorf("missing command")
	}
	config.command = args[0]
	if config.command == "-help" || config.command == "--help" || config.command == "-h" || config.command == "help" {
		config.help = true
		return config, nil
	}

	fs := flag.NewFlagSet(config.command, flag.ContinueOnError)
	fs.SetOutput(errOut)

	// Message and files
	fs.StringVar(&config.text, "text", "", "Text to encrypt (default: remaining arguments)")
	fs.StringVar(&config.input, "in", "", "Input WAV file, raw s16le PCM with -pcm-rate, or Ogg/Opus with -opus")
	fs.StringVar(&config.output, "out", "", "Output file (play: '-' for stdout)")

	// Codec configuration
	fs.IntVar(&config.key, "key", soniccipher.DefaultKey, "Shift key (1-25)")
	fs.Float64Var(&config.baseFreq, "base-freq", tone.DefaultBaseFreq, "Base frequency in Hz")
	fs.Float64Var(&config.freqRange, "freq-range", tone.DefaultFreqRange, "Frequency range above the base in Hz")
	fs.DurationVar(&config.baseDuration, "duration", 100*time.Millisecond, "Base tone duration")
	fs.StringVar(&config.algorithm, "algorithm", "standard", "Algorithm (standard, enhanced, aes)")
	fs.Float64Var(&config.tolerance, "tolerance", soniccipher.DefaultTolerance*100, "Frequency tolerance in percent for decoding without metadata")
	fs.UintVar(&config.sampleRate, "sample-rate", uint(audio.DefaultSampleRate), "Sample rate of encoded audio")

	// Decoding
	fs.BoolVar(&config.ignoreMetadata, "no-metadata", false, "Ignore metadata side files and analyze the audio")
	fs.UintVar(&config.pcmRate, "pcm-rate", 0, "Treat -in as raw s16le mono PCM at this rate")
	fs.BoolVar(&config.opus, "opus", false, "Treat -in as an Ogg/Opus recording")
	fs.BoolVar(&config.closeRuns, "close-runs", false, "Treat tones touching the start or end of the audio as segments")
	fs.StringVar(&config.passphrase, "passphrase", "", "Seal or open metadata with this passphrase")

	// Playback
	fs.UintVar(&config.deviceRate, "device-rate", 0, "Playback rate (default: the file's rate)")
	fs.Float64Var(&config.volume, "volume", 1.0, "Playback volume (0-4)")

	// Logging configuration
	fs.StringVar(&config.logLevel, "log-level", "WARN", "Log level (DEBUG, INFO, WARN, ERROR)")
	fs.StringVar(&config.logFile, "log-file", "", "Log file path (default: stderr)")
	fs.StringVar(&config.logFormat, "log-format", "text", "Log format (text, json)")
	fs.BoolVar(&config.progress, "progress", true, "Show progress bars")

	fs.BoolVar(&config.help, "help", false, "Show help message")

	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}
	if config.text == "" && fs.NArg() > 0 {
		config.text = strings.Join(fs.Args(), " ")
	}
	return config, nil
}

// printUsage prints the usage information.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "SonicCipher - text to tone audio codec")
	fmt.Fprintln(w, "======================================")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintf(w, "  %s <command> [options]\n", os.Args[0])
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  encrypt   encode -text into the WAV file -out")
	fmt.Fprintln(w, "  decrypt   decode the WAV file -in")
	fmt.Fprintln(w, "  info      print the metadata summary of -in")
	fmt.Fprintln(w, "  selftest  encode and decode -text, reporting differences")
	fmt.Fprintln(w, "  play      stream -in as s16le PCM to -out")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintf(w, "  %s encrypt -key 7 -algorithm enhanced -out hello.wav Hello\n", os.Args[0])
	fmt.Fprintf(w, "  %s decrypt -key 7 -in hello.wav\n", os.Args[0])
	fmt.Fprintf(w, "  %s decrypt -key 7 -no-metadata -tolerance 10 -in hello.wav\n", os.Args[0])
	fmt.Fprintf(w, "  %s decrypt -key 7 -opus -in call-recording.opus\n", os.Args[0])
	fmt.Fprintf(w, "  %s play -in hello.wav -device-rate 48000 -out - | aplay -f S16_LE -r 48000\n", os.Args[0])
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Run '%s <command> -help' for the options of a command.\n", os.Args[0])
}

// validateCLIConfig validates the CLI configuration.
func validateCLIConfig(config *CLIConfig) error {
	switch config.command {
	case cmdEncrypt:
		if config.output == "" {
			return fmt.Errorf("encrypt requires -out")
		}
	case cmdDecrypt, cmdInfo:
		if config.input == "" {
			return fmt.Errorf("%s requires -in", config.command)
		}
	case cmdPlay:
		if config.input == "" {
			return fmt.Errorf("play requires -in")
		}
		if config.output == "" {
			return fmt.Errorf("play requires -out (use '-' for stdout)")
		}
	case cmdSelfTest:
	default:
		return fmt.Errorf("unknown command %q", config.command)
	}

	if config.opus && config.pcmRate > 0 {
		return fmt.Errorf("-opus and -pcm-rate are mutually exclusive")
	}
	if config.key < soniccipher.MinKey || config.key > soniccipher.MaxKey {
		return fmt.Errorf("invalid key: must be between %d and %d", soniccipher.MinKey, soniccipher.MaxKey)
	}
	if config.baseDuration <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	if config.tolerance < 0 || config.tolerance >= 100 {
		return fmt.Errorf("tolerance must be between 0 and 100 percent")
	}
	if config.sampleRate == 0 || config.sampleRate > 384000 {
		return fmt.Errorf("invalid sample rate: must be between 1 and 384000")
	}
	if _, err := tone.ParseAlgorithm(config.algorithm); err != nil {
		return err
	}
	if config.volume < 0 || config.volume > audio.MaxGain {
		return fmt.Errorf("volume must be between 0 and %v", audio.MaxGain)
	}
	if _, err := logrus.ParseLevel(strings.ToLower(config.logLevel)); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if config.logFormat != "text" && config.logFormat != "json" {
		return fmt.Errorf("invalid log format %q: must be text or json", config.logFormat)
	}
	return nil
}

// createOptions converts CLI configuration to codec options.
func createOptions(config *CLIConfig) *soniccipher.Options {
	opts := soniccipher.NewOptions()
	opts.Key = config.key
	opts.BaseFreq = config.baseFreq
	opts.FreqRange = config.freqRange
	opts.BaseDuration = config.baseDuration.Seconds()
	opts.Algorithm, _ = tone.ParseAlgorithm(config.algorithm)
	opts.SampleRate = uint32(config.sampleRate)
	opts.Tolerance = config.tolerance / 100
	opts.Segmenter.CloseOpenRuns = config.closeRuns
	return opts
}

// setupLogging configures logrus from the CLI flags. The returned closer
// releases the log file, if any.
func setupLogging(config *CLIConfig, stderr io.Writer) (io.Closer, error) {
	level, err := logrus.ParseLevel(strings.ToLower(config.logLevel))
	if err != nil {
		return nil, err
	}
	logrus.SetLevel(level)

	if config.logFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if config.logFile == "" {
		logrus.SetOutput(stderr)
		return nopCloser{}, nil
	}
	logFile, err := os.OpenFile(config.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logrus.SetOutput(logFile)
	return logFile, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// progressBar renders codec progress on stderr until done is called.
type progressBar struct {
	p   *mpb.Progress
	bar *mpb.Bar
}

func newProgressBar(enabled bool, name string, out io.Writer) *progressBar {
	if !enabled {
		return nil
	}
	p := mpb.New(mpb.WithWidth(64), mpb.WithOutput(out))
	bar := p.AddBar(100,
		mpb.PrependDecorators(
			decor.Name(name),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.Elapsed(decor.ET_STYLE_GO),
		),
	)
	return &progressBar{p: p, bar: bar}
}

func (pb *progressBar) attach(codec *soniccipher.Codec) {
	if pb == nil {
		return
	}
	codec.OnProgress(func(percent int) {
		pb.bar.SetCurrent(int64(percent))
	})
}

func (pb *progressBar) done(err error) {
	if pb == nil {
		return
	}
	if err != nil {
		pb.bar.Abort(false)
	} else {
		pb.bar.SetTotal(-1, true)
	}
	pb.p.Wait()
}

// run executes one command. Results go to stdout, progress to stderr.
func run(ctx context.Context, config *CLIConfig, stdout, stderr io.Writer) error {
	switch config.command {
	case cmdEncrypt:
		return runEncrypt(config, stdout, stderr)
	case cmdDecrypt:
		return runDecrypt(config, stdout, stderr)
	case cmdInfo:
		return runInfo(config, stdout)
	case cmdSelfTest:
		return runSelfTest(config, stdout)
	case cmdPlay:
		return runPlay(ctx, config, stdout)
	}
	return fmt.Errorf("unknown command %q", config.command)
}

func runEncrypt(config *CLIConfig, stdout, stderr io.Writer) (err error) {
	codec, err := soniccipher.New(createOptions(config))
	if err != nil {
		return err
	}

	pb := newProgressBar(config.progress, "Encrypting: ", stderr)
	pb.attach(codec)
	defer func() { pb.done(err) }()

	msg, err := codec.Encrypt(config.text)
	if err != nil {
		return err
	}

	if config.passphrase != "" {
		err = msg.SaveSealed(config.output, []byte(config.passphrase))
	} else {
		err = msg.Save(config.output)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Encrypted %d characters into %s (%.2fs, %s)\n",
		msg.Metadata.CharCount, config.output, msg.Duration(), msg.Metadata.Algorithm)
	return nil
}

// loadInput reads -in as a WAV file with its side file, as raw PCM when
// -pcm-rate is set, or as Ogg/Opus when -opus is set. Raw and Opus input
// carries no metadata.
func loadInput(config *CLIConfig) (*store.Loaded, error) {
	if config.opus {
		f, err := os.Open(config.input)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", soniccipher.ErrFormat, err)
		}
		defer f.Close()
		samples, rate, err := audio.NewIntake(uint32(config.sampleRate)).FromOgg(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", soniccipher.ErrFormat, err)
		}
		return &store.Loaded{Samples: samples, SampleRate: rate}, nil
	}
	if config.pcmRate > 0 {
		data, err := os.ReadFile(config.input)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", soniccipher.ErrFormat, err)
		}
		samples, rate, err := audio.NewIntake(uint32(config.sampleRate)).FromPCM(audio.PCMFromBytes(data), uint32(config.pcmRate))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", soniccipher.ErrFormat, err)
		}
		return &store.Loaded{Samples: samples, SampleRate: rate}, nil
	}
	if config.passphrase != "" {
		return store.LoadSealed(config.input, []byte(config.passphrase))
	}
	return store.Load(config.input)
}

func runDecrypt(config *CLIConfig, stdout, stderr io.Writer) (err error) {
	loaded, err := loadInput(config)
	if err != nil {
		return err
	}

	md := loaded.Metadata
	if config.ignoreMetadata {
		md = nil
	}

	codec, err := soniccipher.New(createOptions(config))
	if err != nil {
		return err
	}

	pb := newProgressBar(config.progress, "Decrypting: ", stderr)
	pb.attach(codec)
	defer func() { pb.done(err) }()

	text, err := codec.Decrypt(loaded.Samples, loaded.SampleRate, md)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function":      "runDecrypt",
		"input":         config.input,
		"with_metadata": md != nil,
		"char_count":    len([]rune(text)),
	}).Info("Decryption completed")

	fmt.Fprintln(stdout, text)
	return nil
}

func runInfo(config *CLIConfig, stdout io.Writer) error {
	loaded, err := loadInput(config)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "File: %s\n", config.input)
	fmt.Fprintf(stdout, "Sample Rate: %d Hz\n", loaded.SampleRate)
	fmt.Fprintf(stdout, "Duration: %.2fs\n", float64(len(loaded.Samples))/float64(max(loaded.SampleRate, 1)))
	if loaded.Metadata == nil {
		fmt.Fprintln(stdout, "Metadata: none")
		return nil
	}
	fmt.Fprintln(stdout)
	return metadata.WriteInfo(stdout, loaded.Metadata)
}

func runSelfTest(config *CLIConfig, stdout io.Writer) error {
	text := config.text
	if text == "" {
		text = "Hello, World!"
	}

	report, err := soniccipher.Verify(text, config.key)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Original:  %q\n", report.Text)
	fmt.Fprintf(stdout, "Key:       %d\n", report.Key)
	fmt.Fprintf(stdout, "Decrypted: %q\n", report.Decrypted)
	if report.OK() {
		fmt.Fprintln(stdout, "PASS: decrypted text matches")
		return nil
	}
	fmt.Fprintln(stdout, "FAIL: decrypted text differs")
	for _, m := range report.Mismatches {
		fmt.Fprintf(stdout, "  index %d: want %q (%d) got %q (%d)\n", m.Index, m.Want, m.Want, m.Got, m.Got)
	}
	return errSelfTestFailed
}

var errSelfTestFailed = errors.New("self test failed")

func runPlay(ctx context.Context, config *CLIConfig, stdout io.Writer) error {
	loaded, err := loadInput(config)
	if err != nil {
		return err
	}

	sink := stdout
	if config.output != "-" {
		f, err := os.Create(config.output)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		sink = f
	}

	player, err := audio.NewStreamPlayer(sink, audio.PlayerConfig{
		DeviceRate: uint32(config.deviceRate),
		Volume:     config.volume,
	})
	if err != nil {
		return err
	}
	defer player.Close()

	if err := player.Play(loaded.Samples, loaded.SampleRate); err != nil {
		return err
	}

	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			player.Stop()
		case <-stopped:
		}
	}()
	err = player.Wait()
	close(stopped)
	return err
}

// setupSignalHandling cancels ctx on interrupt.
func setupSignalHandling(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	go func() {
		sig := <-sigChan
		fmt.Fprintf(os.Stderr, "\nReceived signal %v, stopping...\n", sig)
		cancel()
	}()
}

// main is the entry point for the CLI.
func main() {
	cliConfig, err := parseCLIFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		printUsage(os.Stderr)
		os.Exit(2)
	}

	if cliConfig.help {
		printUsage(os.Stdout)
		os.Exit(0)
	}

	if err := validateCLIConfig(cliConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		fmt.Fprintf(os.Stderr, "Use -help for usage information.\n")
		os.Exit(1)
	}

	closer, err := setupLogging(cliConfig, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandling(cancel)

	if err := run(ctx, cliConfig, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		closer.Close()
		os.Exit(1)
	}
}
