//go:build !headless

// audio_backend_oto.go - Audible interrupt indicator on OTO v3

/*
License: GPLv3 or later
*/

package main

import (
	"math"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ebitengine/oto/v3"
)

func init() {
	compiledFeatures = append(compiledFeatures, "audio:oto")
}

// IRQBeeper plays a short tone on every rising edge of the interrupt line.
type IRQBeeper struct {
	ctx       *oto.Context
	player    *oto.Player
	remaining atomic.Int64 // samples left in the current burst
	phase     float64
	sampleBuf []float32
	started   bool
	mutex     sync.Mutex
}

func NewIRQBeeper() (*IRQBeeper, error) {
	op := &oto.NewContextOptions{
		SampleRate:   BEEP_SAMPLE_RATE,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   0,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	b := &IRQBeeper{
		ctx:       ctx,
		sampleBuf: make([]float32, 4096),
	}
	b.player = ctx.NewPlayer(b)
	return b, nil
}

// Beep starts a new burst, cutting off any burst still playing.
func (b *IRQBeeper) Beep() {
	b.remaining.Store(BEEP_SAMPLE_RATE * BEEP_MS / 1000)
}

func (b *IRQBeeper) Read(p []byte) (n int, err error) {
	numSamples := len(p) / 4
	if numSamples == 0 {
		return len(p), nil
	}
	if len(b.sampleBuf) < numSamples {
		b.sampleBuf = make([]float32, numSamples)
	}
	samples := b.sampleBuf[:numSamples]

	step := 2 * math.Pi * BEEP_FREQ / BEEP_SAMPLE_RATE
	for i := range samples {
		if b.remaining.Load() <= 0 {
			samples[i] = 0
			continue
		}
		b.remaining.Add(-1)
		samples[i] = float32(BEEP_VOLUME * math.Sin(b.phase))
		b.phase += step
		if b.phase > 2*math.Pi {
			b.phase -= 2 * math.Pi
		}
	}

	copy(p, unsafe.Slice((*byte)(unsafe.Pointer(&samples[0])), numSamples*4))
	return len(p), nil
}

func (b *IRQBeeper) Start() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if !b.started && b.player != nil {
		b.player.Play()
		b.started = true
	}
}

func (b *IRQBeeper) Close() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.player != nil {
		b.player.Close()
		b.player = nil
	}
	b.started = false
}
