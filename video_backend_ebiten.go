//go:build !headless

// video_backend_ebiten.go - Ebiten waveform viewer

/*
License: GPLv3 or later
*/

package main

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.design/x/clipboard"
	"golang.org/x/image/font/basicfont"
)

var (
	waveBackground = color.RGBA{16, 16, 24, 255}
	waveLabel      = color.RGBA{200, 200, 200, 255}
	waveHigh       = color.RGBA{80, 230, 120, 255}
	waveBus        = color.RGBA{230, 200, 80, 255}
	waveGrid       = color.RGBA{40, 40, 56, 255}
	waveIRQ        = color.RGBA{255, 60, 60, 255}
	waveLegend     = color.RGBA{160, 160, 160, 255}
)

func init() {
	compiledFeatures = append(compiledFeatures, "viewer:ebiten")
}

// WaveformViewer draws the recorded signals as a live timing diagram.
type WaveformViewer struct {
	rec *TraceRecorder

	mu         sync.RWMutex
	width      int
	height     int
	fullscreen bool
	windowedW  int
	windowedH  int
	showLegend bool
	tickOffset int // ticks back from the newest sample
	rowOffset  int
	status     func() string
	notice     string

	clipboardOnce sync.Once
	clipboardOK   bool

	resetHandler    func()
	resetInProgress atomic.Bool
	closed          atomic.Bool
}

func NewWaveformViewer(rec *TraceRecorder) *WaveformViewer {
	return &WaveformViewer{
		rec:        rec,
		width:      VIEWER_WIDTH,
		height:     VIEWER_HEIGHT,
		windowedW:  VIEWER_WIDTH,
		windowedH:  VIEWER_HEIGHT,
		showLegend: true,
	}
}

// SetResetHandler installs the F10 action. It runs on its own goroutine and
// a second press is ignored until it returns.
func (v *WaveformViewer) SetResetHandler(fn func()) {
	v.mu.Lock()
	v.resetHandler = fn
	v.mu.Unlock()
}

// SetStatus installs a callback for the status line.
func (v *WaveformViewer) SetStatus(fn func() string) {
	v.mu.Lock()
	v.status = fn
	v.mu.Unlock()
}

// Closed reports whether the window has been closed.
func (v *WaveformViewer) Closed() bool { return v.closed.Load() }

// Run opens the window and blocks until it is closed. Ebiten needs the
// main goroutine.
func (v *WaveformViewer) Run() error {
	ebiten.SetWindowSize(v.windowedW, v.windowedH)
	ebiten.SetWindowTitle("axislave - AXI4-Lite waveforms")
	ebiten.SetWindowResizable(true)
	ebiten.SetRunnableOnUnfocused(true)
	err := ebiten.RunGame(v)
	v.closed.Store(true)
	if err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}

func (v *WaveformViewer) Update() error {
	if ebiten.IsWindowBeingClosed() {
		v.closed.Store(true)
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		v.mu.Lock()
		v.fullscreen = !v.fullscreen
		ebiten.SetFullscreen(v.fullscreen)
		if !v.fullscreen {
			ebiten.SetWindowSize(v.windowedW, v.windowedH)
		}
		v.mu.Unlock()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF10) {
		if v.resetInProgress.CompareAndSwap(false, true) {
			v.mu.RLock()
			handler := v.resetHandler
			v.mu.RUnlock()
			if handler != nil {
				go func() {
					defer v.resetInProgress.Store(false)
					handler()
				}()
			} else {
				v.resetInProgress.Store(false)
			}
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		v.mu.Lock()
		v.showLegend = !v.showLegend
		v.mu.Unlock()
	}
	v.handleKeyboardInput()
	return nil
}

func (v *WaveformViewer) handleKeyboardInput() {
	ctrl := ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight)
	shift := ebiten.IsKeyPressed(ebiten.KeyShiftLeft) || ebiten.IsKeyPressed(ebiten.KeyShiftRight)
	if ctrl && shift && inpututil.IsKeyJustPressed(ebiten.KeyC) {
		v.copyVCD()
		return
	}

	step := 1
	if shift {
		step = 16
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	switch {
	case ebiten.IsKeyPressed(ebiten.KeyArrowLeft):
		v.tickOffset += step
	case ebiten.IsKeyPressed(ebiten.KeyArrowRight):
		v.tickOffset = max(v.tickOffset-step, 0)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnd) {
		v.tickOffset = 0
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) {
		v.rowOffset = max(v.rowOffset-1, 0)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) {
		v.rowOffset++
	}
}

// copyVCD puts the recorded window on the clipboard as a value change dump.
func (v *WaveformViewer) copyVCD() {
	v.clipboardOnce.Do(func() {
		v.clipboardOK = clipboard.Init() == nil
	})
	if !v.clipboardOK {
		v.setNotice("clipboard unavailable")
		return
	}
	var buf bytes.Buffer
	if err := v.rec.Snapshot().WriteVCD(&buf); err != nil {
		v.setNotice(fmt.Sprintf("VCD export failed: %v", err))
		return
	}
	clipboard.Write(clipboard.FmtText, buf.Bytes())
	v.setNotice(fmt.Sprintf("copied %d bytes of VCD", buf.Len()))
}

func (v *WaveformViewer) setNotice(s string) {
	v.mu.Lock()
	v.notice = s
	v.mu.Unlock()
}

func (v *WaveformViewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if outsideWidth > 0 && outsideHeight > 0 {
		v.width, v.height = outsideWidth, outsideHeight
	}
	return v.width, v.height
}

func (v *WaveformViewer) Draw(screen *ebiten.Image) {
	screen.Fill(waveBackground)
	snap := v.rec.Snapshot()

	v.mu.RLock()
	width, height := v.width, v.height
	tickOffset, rowOffset := v.tickOffset, v.rowOffset
	showLegend := v.showLegend
	status, notice := v.status, v.notice
	v.mu.RUnlock()

	face := basicfont.Face7x13
	plotX := VIEWER_LABEL_WIDTH
	plotW := width - plotX - 4
	visible := max(plotW/VIEWER_TICK_WIDTH, 1)
	footer := VIEWER_FOOTER_HEIGHT
	rows := max((height-VIEWER_ROW_HEIGHT-footer)/VIEWER_ROW_HEIGHT, 1)

	n := len(snap.Ticks)
	last := max(n-tickOffset, 0)
	first := max(last-visible, 0)
	rowOffset = min(rowOffset, max(len(snap.Names)-rows, 0))

	// Tick ruler
	for i := first; i < last; i++ {
		x := plotX + (i-first)*VIEWER_TICK_WIDTH
		ebitenutil.DrawRect(screen, float64(x), 0, 1, float64(height-footer), waveGrid)
		if snap.Ticks[i]%10 == 0 {
			text.Draw(screen, fmt.Sprint(snap.Ticks[i]), face, x+2, 12, waveLabel)
		}
	}
	for _, irq := range snap.IRQs {
		for i := first; i < last; i++ {
			if snap.Ticks[i] == irq {
				x := plotX + (i-first)*VIEWER_TICK_WIDTH
				ebitenutil.DrawRect(screen, float64(x), 0, 2, float64(height-footer), waveIRQ)
			}
		}
	}

	for r := 0; r < rows && rowOffset+r < len(snap.Names); r++ {
		sig := rowOffset + r
		top := VIEWER_ROW_HEIGHT + r*VIEWER_ROW_HEIGHT
		text.Draw(screen, snap.Names[sig], face, 4, top+13, waveLabel)
		if snap.Widths[sig] == 1 {
			drawBit(screen, snap.Rows, sig, first, last, plotX, top)
		} else {
			drawBus(screen, snap.Rows, sig, first, last, plotX, top)
		}
	}

	// Footer
	y := height - footer
	ebitenutil.DrawRect(screen, 0, float64(y), float64(width), float64(footer), color.RGBA{0, 0, 0, 180})
	line := fmt.Sprintf("%d ticks recorded", n)
	if status != nil {
		line = status() + "  " + line
	}
	if notice != "" {
		line += "  " + notice
	}
	text.Draw(screen, line, face, 6, y+16, waveLabel)
	if showLegend {
		legend := "F10 Rerun  F11 Fullscreen  F12 Legend  Ctrl+Shift+C Copy VCD  Arrows Scroll  End Follow"
		legendW := text.BoundString(face, legend).Dx()
		legendX := max(width-legendW-6, 6)
		opts := &ebiten.DrawImageOptions{}
		opts.GeoM.Translate(float64(legendX), float64(y+34))
		opts.ColorScale.ScaleWithColor(waveLegend)
		text.DrawWithOptions(screen, legend, face, opts)
	}
}

func drawBit(screen *ebiten.Image, rows [][]uint64, sig, first, last, plotX, top int) {
	hiY := float64(top + 3)
	loY := float64(top + VIEWER_ROW_HEIGHT - 4)
	for i := first; i < last; i++ {
		x := float64(plotX + (i-first)*VIEWER_TICK_WIDTH)
		y := loY
		if rows[i][sig] != 0 {
			y = hiY
		}
		ebitenutil.DrawRect(screen, x, y, VIEWER_TICK_WIDTH, 1, waveHigh)
		if i > first && rows[i][sig] != rows[i-1][sig] {
			ebitenutil.DrawRect(screen, x, hiY, 1, loY-hiY+1, waveHigh)
		}
	}
}

func drawBus(screen *ebiten.Image, rows [][]uint64, sig, first, last, plotX, top int) {
	if first >= last {
		return
	}
	face := basicfont.Face7x13
	hiY := float64(top + 3)
	loY := float64(top + VIEWER_ROW_HEIGHT - 4)
	segStart := first
	for i := first; i <= last; i++ {
		if i < last && (i == first || rows[i][sig] == rows[i-1][sig]) {
			continue
		}
		x0 := plotX + (segStart-first)*VIEWER_TICK_WIDTH
		x1 := plotX + (i-first)*VIEWER_TICK_WIDTH
		ebitenutil.DrawRect(screen, float64(x0), hiY, float64(x1-x0), 1, waveBus)
		ebitenutil.DrawRect(screen, float64(x0), loY, float64(x1-x0), 1, waveBus)
		ebitenutil.DrawRect(screen, float64(x0), hiY, 1, loY-hiY+1, waveBus)
		label := fmt.Sprintf("%X", rows[segStart][sig])
		if text.BoundString(face, label).Dx()+4 < x1-x0 {
			text.Draw(screen, label, face, x0+3, top+13, waveBus)
		}
		segStart = i
	}
}
