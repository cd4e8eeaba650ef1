//go:build headless

package main

import "errors"

var ErrNoViewer = errors.New("waveform viewer not available in headless builds")

func init() {
	compiledFeatures = append(compiledFeatures, "viewer:headless")
}

type WaveformViewer struct {
	rec *TraceRecorder
}

func NewWaveformViewer(rec *TraceRecorder) *WaveformViewer {
	return &WaveformViewer{rec: rec}
}

func (v *WaveformViewer) SetResetHandler(fn func()) {}

func (v *WaveformViewer) SetStatus(fn func() string) {}

func (v *WaveformViewer) Closed() bool { return true }

func (v *WaveformViewer) Run() error {
	return ErrNoViewer
}
