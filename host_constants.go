// host_constants.go - Host-side front end constants

/*
License: GPLv3 or later
*/

package main

// Waveform viewer geometry (pixels)
const (
	VIEWER_WIDTH         = 1024
	VIEWER_HEIGHT        = 640
	VIEWER_LABEL_WIDTH   = 150
	VIEWER_ROW_HEIGHT    = 18
	VIEWER_TICK_WIDTH    = 12
	VIEWER_FOOTER_HEIGHT = 44
)

// Interrupt beeper
const (
	BEEP_SAMPLE_RATE = 44100
	BEEP_FREQ        = 880
	BEEP_MS          = 60
	BEEP_VOLUME      = 0.25
)

// Defaults for the file-backed memories
const (
	DEFAULT_RFILE_PATH = "rfile.txt"
	DEFAULT_WFILE_PATH = "wfile.out"
	DEFAULT_WFILE_LEN  = 12
	DEFAULT_TRACE_MAX  = 100000
)
