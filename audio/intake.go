package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/pion/opus"
	"github.com/pion/opus/pkg/oggreader"
	"github.com/sirupsen/logrus"
)

// OpusSampleRate is the rate of every frame the Opus decoder produces,
// whatever the coded bandwidth.
const OpusSampleRate = 48000

// opusFrameBytes is the decode buffer per Opus frame: 960 int16 samples,
// 20ms at OpusSampleRate.
const opusFrameBytes = 960 * 2

// oggLacingMax is the lacing value of a segment that continues into the next.
const oggLacingMax = 255

// Intake turns audio captured outside the codec into the float waveform the
// analysis path consumes. Tone messages relayed over a voice call arrive as
// Opus frames; recordings arrive as 16-bit PCM.
//
// Intake keeps decoder state between frames and is not safe for concurrent
// use.
type Intake struct {
	decoder    *opus.Decoder
	targetRate uint32
}

// NewIntake creates an intake that resamples everything to targetRate.
// A zero targetRate keeps the native rate of each input.
func NewIntake(targetRate uint32) *Intake {
	decoder := opus.NewDecoder()
	return &Intake{
		decoder:    &decoder,
		targetRate: targetRate,
	}
}

// FromPCM normalizes pcm and converts it to the target rate.
func (in *Intake) FromPCM(pcm []int16, sampleRate uint32) ([]float64, uint32, error) {
	if sampleRate == 0 {
		return nil, 0, fmt.Errorf("%w: 0", ErrInvalidSampleRate)
	}
	return in.conform(Dequantize(pcm), sampleRate)
}

// FromOpus decodes frames in order and returns the concatenated waveform.
// Decoded audio is at OpusSampleRate before conversion to the target rate.
func (in *Intake) FromOpus(frames [][]byte) ([]float64, uint32, error) {
	logrus.WithFields(logrus.Fields{
		"function":    "Intake.FromOpus",
		"frame_count": len(frames),
	}).Debug("Decoding Opus frames")

	if len(frames) == 0 {
		rate := in.targetRate
		if rate == 0 {
			rate = OpusSampleRate
		}
		return []float64{}, rate, nil
	}

	pcm := make([]int16, 0, len(frames)*opusFrameBytes/2)
	output := make([]byte, opusFrameBytes)

	for i, frame := range frames {
		if len(frame) == 0 {
			return nil, 0, fmt.Errorf("%w: frame %d is empty", ErrDecode, i)
		}

		bandwidth, _, err := in.decoder.Decode(frame, output)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Intake.FromOpus",
				"frame":    i,
				"error":    err.Error(),
			}).Error("Opus decode failed")
			return nil, 0, fmt.Errorf("%w: frame %d: %v", ErrDecode, i, err)
		}

		logrus.WithFields(logrus.Fields{
			"function":  "Intake.FromOpus",
			"frame":     i,
			"bandwidth": bandwidth.String(),
		}).Trace("Decoded Opus frame")

		pcm = append(pcm, PCMFromBytes(output)...)
	}

	return in.conform(Dequantize(pcm), OpusSampleRate)
}

// FromOgg decodes an Ogg/Opus stream such as a .opus recording.
func (in *Intake) FromOgg(r io.Reader) ([]float64, uint32, error) {
	packets, err := ReadOggOpus(r)
	if err != nil {
		return nil, 0, err
	}
	return in.FromOpus(packets)
}

// ReadOggOpus returns the Opus packets of an Ogg stream in order, leaving out
// the OpusHead and OpusTags header packets. Packets laced across segments or
// pages are joined.
func ReadOggOpus(r io.Reader) ([][]byte, error) {
	ogg, header, err := oggreader.NewWith(r)
	if err != nil {
		return nil, fmt.Errorf("%w: ogg header: %v", ErrDecode, err)
	}

	logrus.WithFields(logrus.Fields{
		"function":    "ReadOggOpus",
		"channels":    header.Channels,
		"sample_rate": header.SampleRate,
		"pre_skip":    header.PreSkip,
	}).Debug("Reading Ogg/Opus stream")

	var packets [][]byte
	var pending []byte
	for {
		segments, _, err := ogg.ParseNextPage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: ogg page: %v", ErrDecode, err)
		}

		for _, seg := range segments {
			pending = append(pending, seg...)
			if len(seg) == oggLacingMax {
				continue
			}
			if len(pending) > 0 && !bytes.HasPrefix(pending, []byte("OpusTags")) {
				packets = append(packets, pending)
			}
			pending = nil
		}
	}
	if len(pending) > 0 {
		return nil, fmt.Errorf("%w: ogg stream ends inside a packet", ErrDecode)
	}
	return packets, nil
}

func (in *Intake) conform(waveform []float64, rate uint32) ([]float64, uint32, error) {
	if in.targetRate == 0 || in.targetRate == rate {
		return waveform, rate, nil
	}

	r, err := NewResampler(ResamplerConfig{InputRate: rate, OutputRate: in.targetRate})
	if err != nil {
		return nil, 0, err
	}
	out, err := r.Resample(waveform)
	if err != nil {
		return nil, 0, err
	}
	return out, in.targetRate, nil
}
