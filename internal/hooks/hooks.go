// Package hooks implements the extension registry SPEC_FULL.md §4.7
// describes: loading compiled Go plugins and firing their named
// handlers at the six pipeline events. Go's standard plugin package
// is the only portable "load code by path" primitive available here
// (see DESIGN.md for why no third-party plugin library was used).
package hooks

import (
	"plugin"

	"github.com/ipkrecipe/ipkrecipe/internal/errs"
	"github.com/ipkrecipe/ipkrecipe/internal/recipe"
)

// Event names the six firing points the pipeline exposes.
type Event string

const (
	EventPostParse        Event = "post_parse"
	EventPostFetchSources Event = "post_fetch_sources"
	EventPostPrepare      Event = "post_prepare"
	EventPostBuild        Event = "post_build"
	EventPostPackage      Event = "post_package"
	EventPostArchive      Event = "post_archive"
)

// Context is the builder capability passed to every handler: the
// live recipe (and, from post_prepare onward, its architecture
// specialization) the handler MAY mutate before the pipeline's next
// phase reads it (spec.md §4.5/§4.7/§9), plus the directory paths in
// scope at that firing point. Package is set only for post_package
// and post_archive, identifying which split package is being built.
type Context struct {
	Recipe  *recipe.Recipe
	Build   *recipe.BuildRecipe
	Package *recipe.Package
	WorkDir string
	SrcDir  string
}

// Handler is the signature every hook function must expose, named
// exactly after its Event (e.g. a symbol named "PostBuild").
type Handler func(ctx *Context) error

// Registry holds the handlers loaded from every configured module,
// grouped by event.
type Registry struct {
	handlers map[Event][]Handler
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Event][]Handler)}
}

var eventSymbols = map[Event]string{
	EventPostParse:        "PostParse",
	EventPostFetchSources: "PostFetchSources",
	EventPostPrepare:      "PostPrepare",
	EventPostBuild:        "PostBuild",
	EventPostPackage:      "PostPackage",
	EventPostArchive:      "PostArchive",
}

// Load opens the compiled plugin at path and registers any of the
// six named handler symbols it exports. A module exporting none of
// them loads successfully but contributes no hooks (spec.md: absence
// of a handler is a no-op, not an error).
func (r *Registry) Load(path string) error {
	p, err := plugin.Open(path)
	if err != nil {
		return errs.Wrap(err, errs.KindHook, "failed to load hook module").
			WithContext("path", path).WithOperation("Registry.Load")
	}

	for event, symbol := range eventSymbols {
		sym, err := p.Lookup(symbol)
		if err != nil {
			continue
		}

		handler, ok := sym.(func(*Context) error)
		if !ok {
			return errs.New(errs.KindHook, "hook symbol has the wrong signature").
				WithContext("path", path).
				WithContext("symbol", symbol).
				WithOperation("Registry.Load")
		}

		r.handlers[event] = append(r.handlers[event], Handler(handler))
	}

	return nil
}

// Register adds h to event's handler chain directly, without going
// through a compiled plugin. Used by callers (and tests) that build a
// handler in-process rather than loading one from disk.
func (r *Registry) Register(event Event, h Handler) {
	r.handlers[event] = append(r.handlers[event], h)
}

// Fire calls every handler registered for event, in load order,
// stopping at the first error.
func (r *Registry) Fire(event Event, ctx *Context) error {
	for _, h := range r.handlers[event] {
		if err := h(ctx); err != nil {
			return errs.Wrap(err, errs.KindHook, "hook handler failed").
				WithContext("event", string(event)).WithOperation("Registry.Fire")
		}
	}

	return nil
}
