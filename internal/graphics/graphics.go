// Package graphics is the raylib backend: the window loop, the scene renderer, GPU uploads, the
// overlay canvas and input sampling.
package graphics

import rl "github.com/gen2brain/raylib-go/raylib"

// Window configures the window Run opens.
type Window struct {
	Title      string
	Width      int32
	Height     int32
	Fullscreen bool
	TargetFPS  int32
	// Shutdown runs after the last frame, while GPU resources can still be released.
	Shutdown func()
}

// Run opens the window and runs the main loop until it is closed. Each frame it calls update with
// the frame time, then clears the screen and calls draw between BeginDrawing and EndDrawing.
// init runs once after the window exists, before the first frame.
// ESC is left to the terminal; close via the window button.
func Run(w Window, init func(), update func(dt float32), draw func()) {
	flags := uint32(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	width, height := w.Width, w.Height
	if w.Fullscreen {
		flags |= rl.FlagFullscreenMode
		width, height = int32(rl.GetMonitorWidth(0)), int32(rl.GetMonitorHeight(0))
	}
	rl.SetConfigFlags(flags)
	rl.InitWindow(width, height, w.Title)
	defer rl.CloseWindow()
	if w.Shutdown != nil {
		defer w.Shutdown()
	}

	rl.SetExitKey(rl.KeyNull)
	rl.SetTargetFPS(w.TargetFPS)

	if init != nil {
		init()
	}
	for !rl.WindowShouldClose() {
		update(rl.GetFrameTime())

		rl.BeginDrawing()
		rl.ClearBackground(rl.Black)
		draw()
		rl.EndDrawing()
	}
}

// FPS returns the frame rate of the running window.
func FPS() int32 {
	return rl.GetFPS()
}
