// Package viewer ties the pieces together on the frame loop: it switches listings, feeds input to
// the movement controller and the picker, and renders.
package viewer

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"walkthrough/internal/collider"
	"walkthrough/internal/config"
	"walkthrough/internal/listing"
	"walkthrough/internal/logger"
	"walkthrough/internal/movement"
	"walkthrough/internal/render"
)

// ErrLoading is returned by Select while the current listing is still loading.
var ErrLoading = errors.New("viewer: a listing is still loading")

// Loader is the asset loader as the viewer drives it.
type Loader interface {
	listing.Loader
	Poll()
	Progress() float64
	Busy() bool
}

// TierSetter is implemented by fetchers that can fetch lighter assets for slow renderers.
type TierSetter interface {
	SetLowTier(low bool)
}

// Options configure an App. Catalogue, Context and Loader are required.
type Options struct {
	Catalogue *config.Catalogue
	Context   *render.Context
	Loader    Loader
	Fetcher   TierSetter
	Inspector listing.Inspector
	Log       *logger.Logger

	FlattenFloor     bool
	NoShadowMaterial string
}

// FrameInput is the input sampled for one frame. Pointer coordinates are in pixels.
type FrameInput struct {
	Move     movement.Input
	Pointer  mgl32.Vec2
	Pressed  bool
	Released bool
	Width    float32
	Height   float32
	Now      time.Time
}

// App is the viewer. It is driven by Tick from the frame loop and is not safe for concurrent use.
type App struct {
	opts       Options
	log        *logger.Logger
	ctx        *render.Context
	controller *movement.Controller
	pointer    movement.Pointer

	current *listing.Listing
	index   int
	hovered *listing.InteractiveObject
	last    mgl32.Vec2
	failure error
}

// New returns an App with nothing selected. The movement controller becomes the context's camera.
func New(opts Options) *App {
	a := &App{
		opts:       opts,
		log:        opts.Log,
		ctx:        opts.Context,
		controller: movement.New(),
		index:      -1,
	}
	a.controller.FlattenFloor = opts.FlattenFloor
	a.ctx.SetCameraProvider(a.controller)
	return a
}

// Controller returns the movement controller.
func (a *App) Controller() *movement.Controller {
	return a.controller
}

// Catalogue returns the listings the app can show.
func (a *App) Catalogue() *config.Catalogue {
	return a.opts.Catalogue
}

// Current returns the selected listing, or nil.
func (a *App) Current() *listing.Listing {
	return a.current
}

// Index returns the selected catalogue index, or -1.
func (a *App) Index() int {
	return a.index
}

// Loading reports whether the selected listing is waiting for its assets.
func (a *App) Loading() bool {
	return a.current != nil && !a.current.Loaded() && a.current.Err() == nil
}

// Err returns the load failure of the selected listing, if any.
func (a *App) Err() error {
	return a.failure
}

// Progress is the loaded fraction of the selected listing's assets.
func (a *App) Progress() float64 {
	if a.current != nil && a.current.Loaded() {
		return 1
	}
	return a.opts.Loader.Progress()
}

// Hovered returns the interactive object under the pointer, or nil.
func (a *App) Hovered() *listing.InteractiveObject {
	return a.hovered
}

// Select disposes the current listing and starts loading listing i of the catalogue.
func (a *App) Select(i int) error {
	if i < 0 || i >= len(a.opts.Catalogue.Listings) {
		return fmt.Errorf("viewer: no listing %d (have %d)", i, len(a.opts.Catalogue.Listings))
	}
	if a.Loading() || a.opts.Loader.Busy() {
		return ErrLoading
	}
	if a.current != nil {
		a.current.Dispose()
		a.current = nil
		a.index = -1
	}
	a.hovered = nil
	a.failure = nil
	a.ctx.SetHighlight()

	if a.opts.Fetcher != nil {
		a.opts.Fetcher.SetLowTier(a.ctx.Performance() == render.TierLow)
	}
	l, err := listing.New(a.opts.Catalogue.Listings[i], listing.Deps{
		Loader:           a.opts.Loader,
		Context:          a.ctx,
		Player:           a.controller,
		Inspector:        a.opts.Inspector,
		Log:              a.log,
		NoShadowMaterial: a.opts.NoShadowMaterial,
		OnFailed:         func(err error) { a.failure = err },
	})
	if err != nil {
		return err
	}
	a.current = l
	a.index = i
	a.log.Logf("selected listing %d: %s", i, l.Info().Name)
	return nil
}

// Tick advances one frame: asset resolutions, look and movement, hover and click, then render.
func (a *App) Tick(dt float32, in FrameInput) {
	a.opts.Loader.Poll()

	var click bool
	if in.Pressed {
		a.pointer.Press(in.Pointer, in.Now)
	}
	if d := a.pointer.Move(in.Pointer); d != (mgl32.Vec2{}) {
		a.controller.Look(d[0], d[1])
	}
	if in.Released {
		click = a.pointer.Release(in.Pointer, in.Now)
	}

	l := a.current
	if l != nil && l.Loaded() {
		a.controller.Update(dt, in.Move, l.Collider())

		if in.Pointer != a.last || click {
			a.hovered = nil
			if hits := l.Intersection(a.ray(in)); len(hits) > 0 {
				a.hovered = hits[0].Object
			}
		}
		if click {
			if a.hovered != nil {
				l.Inspect(a.hovered.Node)
			} else {
				l.Inspect(nil)
			}
		}
	}
	a.last = in.Pointer
	a.ctx.Render()
}

func (a *App) ray(in FrameInput) collider.Ray {
	aspect := float32(1)
	if in.Height > 0 {
		aspect = in.Width / in.Height
	}
	ndc := movement.NormalizeScreen(in.Pointer[0], in.Pointer[1], in.Width, in.Height)
	return movement.ScreenRay(a.controller.Camera(), ndc, aspect)
}

// Dispose releases the current listing.
func (a *App) Dispose() {
	if a.current != nil {
		a.current.Dispose()
		a.current = nil
	}
}
