package commands

import (
	"flag"
	"fmt"
	"sort"
	"strconv"

	"walkthrough/internal/config"
	"walkthrough/internal/debug"
	"walkthrough/internal/ui"
	"walkthrough/internal/viewer"
)

// ResourceCounter reports live GPU resources by kind.
type ResourceCounter interface {
	LiveByKind() map[string]int
}

// Viewer is what the viewer commands act on. Debug, Inspector and GPU may be nil; the commands
// that need them then report that they are unavailable.
type Viewer struct {
	App       *viewer.App
	Debug     *debug.Debug
	Inspector *ui.Inspector
	GPU       ResourceCounter
	// PrefsPath, when set, receives the overlay flags after each fps command.
	PrefsPath string
}

func (v Viewer) savePrefs() error {
	if v.PrefsPath == "" {
		return nil
	}
	p := config.DefaultPrefs()
	if v.Debug != nil {
		p.ShowFPS, p.ShowMemAlloc = v.Debug.ShowFPS, v.Debug.ShowMemAlloc
	}
	if err := config.SavePrefs(v.PrefsPath, p); err != nil {
		return fmt.Errorf("save prefs: %w", err)
	}
	return nil
}

// RegisterViewer adds help, listings, listing, fps, material and gpu to r.
func RegisterViewer(r *Registry, v Viewer) {
	out := r.Out()

	r.Register("help", "help", nil, func() error {
		for _, name := range r.Names() {
			fmt.Fprintln(out, r.Usage(name))
		}
		return nil
	})

	r.Register("listings", "listings", nil, func() error {
		for i, l := range v.App.Catalogue().Listings {
			marker := " "
			if i == v.App.Index() {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %d  %s\n", marker, i, l.Info.Name)
		}
		return nil
	})

	listingFS := flag.NewFlagSet("listing", flag.ContinueOnError)
	r.Register("listing", "listing <n>", listingFS, func() error {
		if listingFS.NArg() != 1 {
			return ErrUsage
		}
		n, err := strconv.Atoi(listingFS.Arg(0))
		if err != nil {
			return fmt.Errorf("%w: %q is not a number", ErrUsage, listingFS.Arg(0))
		}
		if err := v.App.Select(n); err != nil {
			return err
		}
		if v.Inspector != nil {
			v.Inspector.Close()
		}
		fmt.Fprintf(out, "loading %s\n", v.App.Current().Info().Name)
		return nil
	})

	fpsFS := flag.NewFlagSet("fps", flag.ContinueOnError)
	show := fpsFS.Bool("show", false, "show the FPS counter")
	hide := fpsFS.Bool("hide", false, "hide the FPS counter")
	mem := fpsFS.Bool("mem", false, "also show heap allocation")
	r.Register("fps", "fps --show|--hide [--mem]", fpsFS, func() error {
		defer func() { *show, *hide, *mem = false, false, false }()
		if v.Debug == nil {
			return fmt.Errorf("fps: no debug overlay")
		}
		if *show == *hide {
			return ErrUsage
		}
		v.Debug.SetShowFPS(*show)
		v.Debug.SetShowMemAlloc(*show && *mem)
		return v.savePrefs()
	})

	materialFS := flag.NewFlagSet("material", flag.ContinueOnError)
	r.Register("material", "material <option> [tint]", materialFS, func() error {
		if v.Inspector == nil {
			return fmt.Errorf("material: no inspector")
		}
		if materialFS.NArg() < 1 || materialFS.NArg() > 2 {
			return ErrUsage
		}
		l, obj := v.Inspector.Selected()
		if l == nil || obj == nil {
			return fmt.Errorf("material: click an object first")
		}
		option, err := strconv.Atoi(materialFS.Arg(0))
		if err != nil {
			return fmt.Errorf("%w: %q is not a number", ErrUsage, materialFS.Arg(0))
		}
		tint := 0
		if materialFS.NArg() == 2 {
			if tint, err = strconv.Atoi(materialFS.Arg(1)); err != nil {
				return fmt.Errorf("%w: %q is not a number", ErrUsage, materialFS.Arg(1))
			}
		}
		// Options and tints are numbered from 1 in the inspector.
		if err := l.ApplyOption(obj.Node, option-1, tint-1); err != nil {
			return err
		}
		v.Inspector.Refresh()
		fmt.Fprintf(out, "%s: %s\n", obj.Node.Name, obj.Options[option-1].Material.Name)
		return nil
	})

	r.Register("gpu", "gpu", nil, func() error {
		if v.GPU == nil {
			return fmt.Errorf("gpu: no device")
		}
		live := v.GPU.LiveByKind()
		kinds := make([]string, 0, len(live))
		total := 0
		for k, n := range live {
			kinds = append(kinds, k)
			total += n
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(out, "%-10s %d\n", k, live[k])
		}
		fmt.Fprintf(out, "%-10s %d\n", "total", total)
		return nil
	})
}
