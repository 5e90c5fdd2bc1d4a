/*
Package glrts implements the core of an incremental, error-recovering,
GLR-style parser engine.

The engine accepts a compiled parse table (states, lexer automaton, lookup
tables, optional external scanner callbacks — package table) and a source
text, and produces a concrete syntax tree that accurately reflects the input
even when the input is malformed. It can be re-invoked with a previous tree,
reusing unchanged subtrees so that reparsing an edited input runs in time
proportional to the size of the edit.

Package structure:

■ base: data types used throughout all the other packages — token
categories, byte spans, three-axis lengths, error-cost constants.

■ table: the read-only parse-table contract (states, actions, goto,
external-scanner ABI) supplied by a compiled grammar. This package never
generates tables; that remains the caller's responsibility.

■ subtree: a reference-counted, immutable syntax-node pool. The pool is the
sole allocator; nodes are retained on the GSS and released when popped or
superseded.

■ lexer: a positional byte reader plus the internal (DFA-backed) and
external-scanner lexing paths, and the token cache.

■ gss: the graph-structured parse stack (GSS) — versions, push/pop/merge,
pause/resume, and depth-capped summaries for error recovery.

■ reuse: a cursor over a previous parse tree, used to find candidate
subtrees for incremental reuse.

■ driver: the parser driver — the advance loop, reduce/shift/accept/recover
dispatch, stack condensation, and incremental-reuse gating.

■ rebalance: the post-parse tree-rebalancing pass for right-skewed
repetition chains.

The root package ties these together into the orchestrator: Parse and
ParseWithOptions, cancellation/timeout/progress plumbing, and resuming a
parse after a cooperative cancellation.

Non-goals: generating parse tables, pretty-printing, syntax highlighting,
tree diffing beyond "what ranges changed", and multithreaded parsing — a
*Parser is strictly single-threaded, though it supports cooperative
cancellation.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package glrts
