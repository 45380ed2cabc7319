package core

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// Environment variables shared between the CLI runner and construct apps.
const (
	EnvOutdir  = "WETWIRE_OUTDIR"
	EnvContext = "WETWIRE_CONTEXT"
)

// AppProps configures an App. Zero values fall back to the environment.
type AppProps struct {
	// Outdir receives the cloud assembly. Defaults to $WETWIRE_OUTDIR; when
	// both are empty, Synth keeps the assembly in memory.
	Outdir string
	// Context values, merged over the JSON object in $WETWIRE_CONTEXT.
	Context map[string]any
	// Now is the clock used for time-dependent defaults such as API key
	// expiry. Defaults to time.Now.
	Now    func() time.Time
	Logger *zap.Logger
}

// App is the root of a construct tree.
type App struct {
	node    *Node
	outdir  string
	context map[string]any
	now     func() time.Time
	logger  *zap.Logger
}

// NewApp creates an app.
func NewApp(props *AppProps) (*App, error) {
	if props == nil {
		props = &AppProps{}
	}
	app := &App{
		outdir:  props.Outdir,
		context: make(map[string]any),
		now:     props.Now,
		logger:  props.Logger,
	}
	if app.outdir == "" {
		app.outdir = os.Getenv(EnvOutdir)
	}
	if raw := os.Getenv(EnvContext); raw != "" {
		if err := json.Unmarshal([]byte(raw), &app.context); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", EnvContext, err)
		}
	}
	for k, v := range props.Context {
		app.context[k] = v
	}
	if app.now == nil {
		app.now = time.Now
	}
	if app.logger == nil {
		app.logger = zap.NewNop()
	}
	app.node = newRootNode(app)
	return app, nil
}

// Node returns the root node.
func (a *App) Node() *Node { return a.node }

// Outdir returns the assembly output directory, possibly empty.
func (a *App) Outdir() string { return a.outdir }

// Now returns the current time from the app clock.
func (a *App) Now() time.Time { return a.now() }

// Logger returns the app logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Context returns a context value.
func (a *App) Context(key string) (any, bool) {
	v, ok := a.context[key]
	return v, ok
}

// SetContext sets a context value. It must be called before constructs
// read it.
func (a *App) SetContext(key string, value any) {
	a.context[key] = value
}

// DecodeContext decodes all context values into out, a pointer to a
// struct tagged with `mapstructure`.
func (a *App) DecodeContext(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(a.context); err != nil {
		return fmt.Errorf("decoding context: %w", err)
	}
	return nil
}

// Stacks returns every stack in the tree in pre-order.
func (a *App) Stacks() []*Stack {
	var out []*Stack
	for _, n := range a.node.FindAll() {
		if n.stack != nil {
			out = append(out, n.stack)
		}
	}
	return out
}

// Synth synthesizes every stack. The assembly is written to Outdir when
// one is configured.
func (a *App) Synth() (*Assembly, error) {
	asm := newAssembly()
	stacks := a.Stacks()
	seen := make(map[string]string, len(stacks))
	for _, s := range stacks {
		if prev, ok := seen[s.name]; ok {
			return nil, fmt.Errorf("stacks %s and %s both use the name %q", prev, s.node.Path(), s.name)
		}
		seen[s.name] = s.node.Path()

		tmpl, err := s.Synthesize()
		if err != nil {
			return nil, err
		}
		asm.addStack(s, tmpl)
	}

	if a.outdir != "" {
		if err := asm.Write(a.outdir); err != nil {
			return nil, err
		}
		a.logger.Info("wrote cloud assembly",
			zap.String("outdir", a.outdir),
			zap.Int("stacks", len(stacks)),
		)
	}
	return asm, nil
}
