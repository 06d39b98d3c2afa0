package audio

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// Player is the playback port. Implementations own the output device; the
// codec never touches one directly.
type Player interface {
	// Play starts playing waveform, replacing anything already playing.
	Play(waveform []float64, sampleRate uint32) error
	// Stop halts playback. Stopping an idle player is not an error.
	Stop() error
}

// PlayerConfig configures a StreamPlayer.
type PlayerConfig struct {
	DeviceRate   uint32  // Output rate; 0 plays at the waveform's own rate
	Volume       float64 // Linear gain, 0..MaxGain
	ChunkSamples int     // Samples per write; 0 means 20ms at the output rate
}

// StreamPlayer writes signed 16-bit little-endian mono PCM to a sink on a
// background goroutine.
type StreamPlayer struct {
	// lifecycle serializes Play, Stop and Close so that only one writer
	// goroutine exists at a time. mu guards the fields below it.
	lifecycle sync.Mutex

	mu     sync.Mutex
	sink   io.Writer
	config PlayerConfig
	gain   *GainEffect
	cancel context.CancelFunc
	done   chan struct{}
	err    error
	closed bool
}

// NewStreamPlayer validates config and returns an idle player.
func NewStreamPlayer(sink io.Writer, config PlayerConfig) (*StreamPlayer, error) {
	if sink == nil {
		return nil, fmt.Errorf("player sink cannot be nil")
	}
	gain, err := NewGainEffect(config.Volume)
	if err != nil {
		return nil, err
	}
	if config.ChunkSamples < 0 {
		return nil, fmt.Errorf("invalid chunk size: %d", config.ChunkSamples)
	}

	logrus.WithFields(logrus.Fields{
		"function":    "NewStreamPlayer",
		"device_rate": config.DeviceRate,
		"volume":      config.Volume,
	}).Info("Stream player created")

	return &StreamPlayer{sink: sink, config: config, gain: gain}, nil
}

// Play implements Player.
func (p *StreamPlayer) Play(waveform []float64, sampleRate uint32) error {
	if sampleRate == 0 {
		return fmt.Errorf("%w: 0", ErrInvalidSampleRate)
	}

	outRate := sampleRate
	if p.config.DeviceRate != 0 && p.config.DeviceRate != sampleRate {
		r, err := NewResampler(ResamplerConfig{InputRate: sampleRate, OutputRate: p.config.DeviceRate})
		if err != nil {
			return err
		}
		if waveform, err = r.Resample(waveform); err != nil {
			return err
		}
		outRate = p.config.DeviceRate
	}
	pcm := p.gain.Process(Quantize(waveform))

	chunk := p.config.ChunkSamples
	if chunk == 0 {
		chunk = max(int(outRate)/50, 1)
	}

	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	p.stopStream()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPlayerClosed
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.err = nil
	p.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":    "StreamPlayer.Play",
		"samples":     len(pcm),
		"output_rate": outRate,
	}).Debug("Playback started")

	go p.stream(ctx, pcm, chunk, done)
	return nil
}

func (p *StreamPlayer) stream(ctx context.Context, pcm []int16, chunk int, done chan struct{}) {
	defer close(done)
	for off := 0; off < len(pcm); off += chunk {
		select {
		case <-ctx.Done():
			return
		default:
		}
		end := min(off+chunk, len(pcm))
		if _, err := p.sink.Write(PCMBytes(pcm[off:end])); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "StreamPlayer.stream",
				"offset":   off,
				"error":    err.Error(),
			}).Error("Playback write failed")
			p.mu.Lock()
			p.err = err
			p.mu.Unlock()
			return
		}
	}
}

// Stop implements Player. It returns once the writer goroutine has exited.
func (p *StreamPlayer) Stop() error {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	p.stopStream()
	return nil
}

// stopStream cancels the writer goroutine and waits for it. The caller holds
// lifecycle.
func (p *StreamPlayer) stopStream() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Wait blocks until the current playback finishes and returns its write
// error, if any.
func (p *StreamPlayer) Wait() error {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()

	if done != nil {
		<-done
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// IsPlaying reports whether samples are still being written.
func (p *StreamPlayer) IsPlaying() bool {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()

	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Close stops playback and rejects further Play calls.
func (p *StreamPlayer) Close() error {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	p.stopStream()
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}
