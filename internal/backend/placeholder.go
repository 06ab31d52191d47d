package backend

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"strings"

	"assetgen/internal/workspec"
)

// Placeholder produces deterministic stand-in artifacts: a 1x1 PNG for
// images and a short silent WAV for audio.
type Placeholder struct{}

// NewPlaceholder returns the placeholder backend.
func NewPlaceholder() *Placeholder { return &Placeholder{} }

func (p *Placeholder) Generate(ctx context.Context, req Request) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	switch req.Kind {
	case workspec.KindImage:
		data, err := placeholderPNG()
		if err != nil {
			return Artifact{}, err
		}
		return Artifact{Data: data, ContentType: "image/png"}, nil
	case workspec.KindAudio:
		seconds := 0.5
		if raw := strings.TrimSpace(req.Value("duration", "")); raw != "" {
			if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 && v <= 60 {
				seconds = v
			}
		}
		return Artifact{Data: silentWAV(DefaultSampleRate, seconds), ContentType: "audio/wav", Duration: seconds}, nil
	default:
		return Artifact{}, fmt.Errorf("placeholder: unsupported kind %q", req.Kind)
	}
}

func (p *Placeholder) Close() error { return nil }

func placeholderPNG() ([]byte, error) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("placeholder: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// silentWAV renders 16-bit mono PCM silence.
func silentWAV(sampleRate int, seconds float64) []byte {
	samples := int(float64(sampleRate) * seconds)
	dataLen := samples * 2
	var buf bytes.Buffer
	buf.Grow(44 + dataLen)
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(make([]byte, dataLen))
	return buf.Bytes()
}
