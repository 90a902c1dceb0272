// Package strategies turns bar series into per-bar trading directions.
package strategies

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rustyeddy/tradesim/market"
)

var (
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrUnknownParam    = errors.New("unknown strategy parameter")
	ErrBadParam        = errors.New("invalid strategy parameter")
)

// Source produces one direction per bar. Signals must not look ahead: the
// value at i may only depend on bars[0..i].
type Source interface {
	Name() string
	Signals(bars []market.Bar) []market.Direction
}

// Params are numeric strategy settings keyed by name.
type Params map[string]float64

func (p Params) clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func (p Params) period(key string) (int, error) {
	v := int(p[key])
	if v < 1 || float64(v) != p[key] {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %v", ErrBadParam, key, p[key])
	}
	return v, nil
}

type factory struct {
	defaults Params
	build    func(p Params) (Source, error)
}

var registry = map[string]factory{}

func register(name string, defaults Params, build func(p Params) (Source, error)) {
	registry[name] = factory{defaults: defaults, build: build}
}

// Names lists the registered strategy names, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Defaults returns a copy of the default parameters for name.
func Defaults(name string) (Params, error) {
	f, ok := registry[normalize(name)]
	if !ok {
		return nil, unknown(name)
	}
	return f.defaults.clone(), nil
}

// New builds a registered strategy. params override the defaults; names the
// strategy does not define are rejected.
func New(name string, params Params) (Source, error) {
	f, ok := registry[normalize(name)]
	if !ok {
		return nil, unknown(name)
	}

	p := f.defaults.clone()
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := p[k]; !ok {
			return nil, fmt.Errorf("%w %q for %s", ErrUnknownParam, k, normalize(name))
		}
		p[k] = params[k]
	}
	return f.build(p)
}

// Latest returns the direction src gives the last bar of history.
func Latest(src Source, history []market.Bar) market.Direction {
	if len(history) == 0 {
		return market.None
	}
	sig := src.Signals(history)
	return sig[len(sig)-1]
}

func normalize(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
}

func unknown(name string) error {
	return fmt.Errorf("%w %q (supported: %s)", ErrUnknownStrategy, name, strings.Join(Names(), ", "))
}
