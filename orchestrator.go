package glrts

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/npillmayer/glrts/base"
	"github.com/npillmayer/glrts/driver"
	"github.com/npillmayer/glrts/gss"
	"github.com/npillmayer/glrts/lexer"
	"github.com/npillmayer/glrts/lexer/extscan"
	"github.com/npillmayer/glrts/rebalance"
	"github.com/npillmayer/glrts/reuse"
	"github.com/npillmayer/glrts/subtree"
	"github.com/npillmayer/glrts/table"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'glrts' (the root package; component packages use
// their own 'glrts.<pkg>' keys).
func tracer() tracing.Trace {
	return tracing.Select("glrts")
}

// Sentinel errors a Parse call can return.
var (
	// ErrScannerFailed is returned when the external scanner signals a
	// fatal failure; the parse is aborted. It is the same value the lexer
	// package returns, so errors.Is matches across the driver/lexer
	// boundary.
	ErrScannerFailed = lexer.ErrScannerFailed

	// ErrUnsupportedLanguage is returned from SetLanguage when a
	// language's ABI version falls outside the range this engine build
	// understands.
	ErrUnsupportedLanguage = errors.New("glrts: language ABI not supported by this engine build")

	// ErrCanceled is returned when a parse is stopped cooperatively,
	// via the cancellation flag, a progress callback, or the rebalance
	// pass using up its TimeoutMicros budget; the
	// parser's internal state is preserved so the next Parse call resumes
	// where this one stopped.
	ErrCanceled = errors.New("glrts: parse canceled")
)

// ProgressState is passed to the optional progress callback each time the
// driver's cooperative-cancellation tick fires.
type ProgressState struct {
	BytesConsumed   uint32
	ActiveVersions  int
	HasFinishedTree bool
}

// Config is the per-parse configuration, applied once per Parse call.
// Assemble it with functional Options.
type Config struct {
	PreviousTree   *Tree
	Input          lexer.Input
	IncludedRanges []lexer.Range

	// Lexers holds the grammar's compiled internal DFAs, one per lex
	// state; KeywordLexers (optional) holds the keyword-disambiguation
	// DFAs consulted when the internal lexer produces the grammar's
	// keyword-capture token.
	Lexers        *lexer.InternalLexers
	KeywordLexers *lexer.InternalLexers

	Scanner     extscan.Scanner
	WasmScanner extscan.WasmScanner

	// Cancel, if non-nil, is checked every gss.OpCountPerTimeoutCheck
	// units of work; a nonzero value requests cancellation.
	Cancel *int32

	// TimeoutMicros, if nonzero, bounds the rebalance pass's unit-of-work
	// budget per call (kept deliberately simple; a real embedding ties
	// this to a clock).
	TimeoutMicros int64

	// Progress is consulted at the same tick as Cancel; returning true
	// requests cancellation.
	Progress func(ProgressState) bool

	Logger    tracing.Trace
	DotWriter io.Writer
}

// Option configures a Config.
type Option func(*Config)

// WithPreviousTree enables incremental reparsing against an existing tree.
func WithPreviousTree(t *Tree) Option { return func(c *Config) { c.PreviousTree = t } }

// WithInput supplies the input read callback.
func WithInput(in lexer.Input) Option { return func(c *Config) { c.Input = in } }

// WithIncludedRanges restricts parsing to the given disjoint byte ranges.
func WithIncludedRanges(ranges []lexer.Range) Option {
	return func(c *Config) { c.IncludedRanges = ranges }
}

// WithInternalLexers supplies the grammar's compiled per-state DFAs.
func WithInternalLexers(il *lexer.InternalLexers) Option {
	return func(c *Config) { c.Lexers = il }
}

// WithKeywordLexers supplies the grammar's keyword-disambiguation DFAs.
func WithKeywordLexers(il *lexer.InternalLexers) Option {
	return func(c *Config) { c.KeywordLexers = il }
}

// WithExternalScanner supplies a native external-scanner implementation.
func WithExternalScanner(s extscan.Scanner) Option { return func(c *Config) { c.Scanner = s } }

// WithWasmScanner supplies a wasm-hosted external-scanner implementation.
func WithWasmScanner(s extscan.WasmScanner) Option { return func(c *Config) { c.WasmScanner = s } }

// WithCancelFlag supplies a cooperative cancellation flag pointer.
func WithCancelFlag(flag *int32) Option { return func(c *Config) { c.Cancel = flag } }

// WithTimeoutMicros bounds the rebalance pass's unit-of-work budget.
func WithTimeoutMicros(us int64) Option { return func(c *Config) { c.TimeoutMicros = us } }

// WithProgress supplies a progress callback consulted at every
// cooperative-cancellation tick.
func WithProgress(f func(ProgressState) bool) Option { return func(c *Config) { c.Progress = f } }

// WithDotWriter supplies a sink for a DOT-graph dump of the GSS (see
// gss.DSS2Dot).
func WithDotWriter(w io.Writer) Option { return func(c *Config) { c.DotWriter = w } }

// Tree is the output of a successful parse: the finished subtree root, the
// language handle, and the included ranges used.
type Tree struct {
	Root           subtree.ID
	Language       *table.Language
	IncludedRanges []lexer.Range
	pool           *subtree.Pool
}

// Pool exposes the subtree pool backing this tree, so a caller can walk
// nodes or Release the root once done.
func (t *Tree) Pool() *subtree.Pool { return t.pool }

// resumeState is what a canceled parse preserves so the next Parse call
// can continue seamlessly: the driver (stack, reusable cursor, external
// scanner payload) and, if cancellation hit during rebalancing, the
// half-balanced tree's worklist.
type resumeState struct {
	driverState *driver.Parser
	rebalanceWL *rebalance.Worklist
}

// Parser drives repeated Parse/ParseWithOptions calls against one
// language, owning the subtree pool across incremental reparses.
type Parser struct {
	lang *table.Language
	pool *subtree.Pool

	resume *resumeState
}

// NewParser creates a Parser with no language set; call SetLanguage
// before Parse.
func NewParser() *Parser {
	return &Parser{pool: subtree.NewPool()}
}

// SetLanguage installs the compiled parse-table language a subsequent
// Parse uses, rejecting an unsupported ABI. Installing a language releases
// any preserved resume state from a prior canceled parse, since that state
// is only valid for the language and input it was captured under.
func (p *Parser) SetLanguage(lang *table.Language) error {
	if lang == nil || !lang.Supported() {
		return ErrUnsupportedLanguage
	}
	p.lang = lang
	p.resume = nil
	return nil
}

// Parse runs a parse with default configuration plus any functional
// Options.
func (p *Parser) Parse(opts ...Option) (*Tree, error) {
	cfg := Config{}
	for _, o := range opts {
		o(&cfg)
	}
	return p.ParseWithOptions(cfg)
}

// ParseWithOptions seeds the driver from the previous tree (if any) and a
// fresh stack at the start state, runs the advance/condense loop until a
// finished tree beats every live version, and rebalances the result.
func (p *Parser) ParseWithOptions(cfg Config) (*Tree, error) {
	if p.lang == nil {
		return nil, fmt.Errorf("glrts: Parse called before SetLanguage")
	}
	if cfg.Input == nil {
		return nil, fmt.Errorf("glrts: Parse called without an Input callback")
	}

	log := cfg.Logger
	if log == nil {
		log = tracer()
	}

	var d *driver.Parser
	var wl *rebalance.Worklist

	if p.resume != nil {
		d = p.resume.driverState
		wl = p.resume.rebalanceWL
		p.resume = nil
	} else {
		d = p.newDriver(cfg)
		d.Root.NewVersion(p.lang.Table.StartState())
	}

	if wl == nil {
		canceled, err := p.runDriverLoop(d, cfg)
		if err != nil {
			return nil, err
		}
		if canceled {
			p.resume = &resumeState{driverState: d}
			return nil, ErrCanceled
		}
		wl = rebalance.NewWorklist(d.FinishedTree)
	}

	budget := 0
	if cfg.TimeoutMicros > 0 {
		budget = int(cfg.TimeoutMicros)
	}
	finalRoot := rebalance.Run(p.pool, d.FinishedTree, wl, budget)
	if wl.Canceled {
		p.resume = &resumeState{driverState: d, rebalanceWL: wl}
		return nil, ErrCanceled
	}

	if cfg.DotWriter != nil {
		_ = gss.DSS2Dot(d.Root, cfg.DotWriter)
	}

	log.Debugf("done cost:%d ops:%d", d.FinishedCost, d.OpCount)
	return &Tree{
		Root:           finalRoot,
		Language:       p.lang,
		IncludedRanges: cfg.IncludedRanges,
		pool:           p.pool,
	}, nil
}

func (p *Parser) newDriver(cfg Config) *driver.Parser {
	lx := lexer.NewLexer(cfg.Input, cfg.IncludedRanges)
	internal := cfg.Lexers
	if internal == nil {
		internal = lexer.NewInternalLexers()
	}
	coord := &lexer.Coordinator{Positional: lx, Internal: internal, Keyword: cfg.KeywordLexers}
	if cfg.Scanner != nil {
		coord.External = extscan.NewNativeAdapter(cfg.Scanner)
	} else if cfg.WasmScanner != nil {
		if a, err := extscan.NewWasmAdapter(cfg.WasmScanner); err == nil {
			coord.External = a
		}
	}

	d := &driver.Parser{
		Lang:  p.lang,
		Pool:  p.pool,
		Root:  gss.NewRoot("glrts", -1),
		Coord: coord,
	}
	if cfg.PreviousTree != nil {
		// Leaves lexed under inclusion rules that have since changed must
		// not be taken over from the previous tree.
		changed := lexer.DiffRanges(cfg.PreviousTree.IncludedRanges, cfg.IncludedRanges)
		d.Cursor = reuse.NewCursor(p.pool, cfg.PreviousTree.Root, changed)
	}
	return d
}

// runDriverLoop performs per-token sweeps: BeginStep, step every active
// version once, Condense, and stop when no version remains or the
// finished tree is strictly better than every live version. It reports
// whether cancellation interrupted the loop.
func (p *Parser) runDriverLoop(d *driver.Parser, cfg Config) (bool, error) {
	for {
		d.Root.BeginStep()
		active := d.Root.ActiveVersions()
		if len(active) == 0 {
			break
		}
		single := len(active) == 1
		for _, v := range active {
			if v.IsHalted() || v.IsPaused() {
				continue
			}
			if _, err := d.Step(v, active, single); err != nil {
				return false, err
			}
			d.OpCount++
			if d.OpCount%gss.OpCountPerTimeoutCheck == 0 && canceled(cfg, d) {
				return true, nil
			}
		}
		driver.Condense(d.Root)
		if d.HasFinishedTree && d.FinishedCost < minLiveCost(d.Root) {
			break
		}
	}
	if !d.HasFinishedTree {
		return false, fmt.Errorf("glrts: parse produced no tree")
	}
	return false, nil
}

// minLiveCost is the cheapest error cost any remaining version could still
// finish with; a finished tree cheaper than this cannot be beaten.
func minLiveCost(root *gss.Root) int64 {
	min := int64(-1)
	for _, v := range root.ActiveVersions() {
		if c := v.ErrorStatus().Cost; min < 0 || c < min {
			min = c
		}
	}
	if min < 0 {
		return int64(^uint64(0) >> 1)
	}
	return min
}

func canceled(cfg Config, d *driver.Parser) bool {
	if cfg.Cancel != nil && atomic.LoadInt32(cfg.Cancel) != 0 {
		return true
	}
	if cfg.Progress != nil {
		state := ProgressState{
			ActiveVersions:  len(d.Root.ActiveVersions()),
			HasFinishedTree: d.HasFinishedTree,
		}
		for _, v := range d.Root.ActiveVersions() {
			if b := v.Position().Bytes; b > state.BytesConsumed {
				state.BytesConsumed = b
			}
		}
		if cfg.Progress(state) {
			return true
		}
	}
	return false
}

// LengthOf is a convenience re-export for callers measuring source text
// the way the engine does.
func LengthOf(src []byte) base.Length { return base.LengthOfBytes(src) }
