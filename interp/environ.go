package interp

import (
	"maps"

	"github.com/rushshell/rush/expand"
)

// overlayEnviron lets the shell write variables without mutating the
// process environment it was constructed from, grounded on the teacher's
// overlay-over-base environment shape (expand.WriteEnviron over
// expand.Environ).
type overlayEnviron struct {
	parent expand.Environ
	over   map[string]expand.Variable
}

func newOverlayEnviron(parent expand.Environ) *overlayEnviron {
	return &overlayEnviron{parent: parent, over: map[string]expand.Variable{}}
}

func (o *overlayEnviron) Get(name string) expand.Variable {
	if v, ok := o.over[name]; ok {
		return v
	}
	return o.parent.Get(name)
}

func (o *overlayEnviron) Set(name string, v expand.Variable) error {
	o.over[name] = v
	return nil
}

func (o *overlayEnviron) Each(fn func(name string, vr expand.Variable) bool) {
	seen := map[string]bool{}
	for name, v := range o.over {
		seen[name] = true
		if v.IsSet() {
			if !fn(name, v) {
				return
			}
		}
	}
	o.parent.Each(func(name string, v expand.Variable) bool {
		if seen[name] {
			return true
		}
		return fn(name, v)
	})
}

// shellEnviron adapts a *Runner to the parser.Environ interface the parser
// package needs for inline $VAR and ${var:=w} expansion.
type shellEnviron struct{ r *Runner }

func (e shellEnviron) Get(name string) (string, bool) { return e.r.GetVar(name) }
func (e shellEnviron) Set(name, value string)         { e.r.SetVar(name, value) }

// snapshot records the current values of names so that restore can put
// them back later.
func (o *overlayEnviron) snapshot(names []string) map[string]expand.Variable {
	snap := make(map[string]expand.Variable, len(names))
	for _, n := range names {
		snap[n] = o.Get(n)
	}
	return snap
}

func (o *overlayEnviron) restore(snap map[string]expand.Variable) {
	maps.Copy(o.over, snap)
}
