package graphics

import (
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"walkthrough/internal/movement"
	"walkthrough/internal/terminal"
	"walkthrough/internal/viewer"
)

// stickDeadzone ignores analog stick drift.
const stickDeadzone = 0.15

// PollInput samples keyboard, mouse and (when mobile is set) the first gamepad's left stick.
// While the terminal is open movement keys are left to the terminal.
func PollInput(mobile bool, term *terminal.Terminal) viewer.FrameInput {
	mouse := rl.GetMousePosition()
	in := viewer.FrameInput{
		Pointer:  mgl32.Vec2{mouse.X, mouse.Y},
		Pressed:  rl.IsMouseButtonPressed(rl.MouseButtonLeft),
		Released: rl.IsMouseButtonReleased(rl.MouseButtonLeft),
		Width:    float32(rl.GetScreenWidth()),
		Height:   float32(rl.GetScreenHeight()),
		Now:      time.Now(),
	}
	if term != nil && term.IsOpen() {
		return in
	}
	in.Move = movement.Input{
		Forward:  rl.IsKeyDown(rl.KeyW) || rl.IsKeyDown(rl.KeyUp),
		Backward: rl.IsKeyDown(rl.KeyS) || rl.IsKeyDown(rl.KeyDown),
		Left:     rl.IsKeyDown(rl.KeyA) || rl.IsKeyDown(rl.KeyLeft),
		Right:    rl.IsKeyDown(rl.KeyD) || rl.IsKeyDown(rl.KeyRight),
	}
	if mobile && rl.IsGamepadAvailable(0) {
		x := rl.GetGamepadAxisMovement(0, rl.GamepadAxisLeftX)
		y := -rl.GetGamepadAxisMovement(0, rl.GamepadAxisLeftY)
		if mgl32.Vec2{x, y}.Len() > stickDeadzone {
			in.Move.Joystick = mgl32.Vec2{x, y}
		}
	}
	return in
}

// UpdateTerminal feeds the keyboard to the terminal: ESC toggles it, and while it is open typed
// characters, paste, backspace, enter and history recall go to its input line.
func UpdateTerminal(t *terminal.Terminal) {
	if rl.IsKeyPressed(rl.KeyEscape) {
		t.Toggle()
		return
	}
	if !t.IsOpen() {
		return
	}
	for ch := rl.GetCharPressed(); ch > 0; ch = rl.GetCharPressed() {
		t.Type(string(rune(ch)))
	}
	ctrl := rl.IsKeyDown(rl.KeyLeftControl) || rl.IsKeyDown(rl.KeyRightControl) || rl.IsKeyDown(rl.KeyLeftSuper)
	if ctrl && rl.IsKeyPressed(rl.KeyV) {
		t.Type(rl.GetClipboardText())
	}
	if rl.IsKeyPressed(rl.KeyBackspace) || rl.IsKeyPressedRepeat(rl.KeyBackspace) {
		t.Backspace()
	}
	if rl.IsKeyPressed(rl.KeyUp) {
		t.Recall(-1)
	}
	if rl.IsKeyPressed(rl.KeyDown) {
		t.Recall(1)
	}
	if rl.IsKeyPressed(rl.KeyEnter) {
		t.Submit()
	}
}
