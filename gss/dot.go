package gss

import (
	"fmt"
	"io"
)

// DSS2Dot writes a Graphviz DOT rendering of the GSS arena to w. It is a
// debugging aid only; parsing never depends on it.
func DSS2Dot(r *Root, w io.Writer) error {
	if _, err := fmt.Fprintln(w, "digraph GSS {"); err != nil {
		return err
	}
	fmt.Fprintln(w, `  rankdir="RL";`)
	for _, f := range r.frames {
		fmt.Fprintf(w, "  n%d [label=\"#%d state=%d\"];\n", f.id, f.id, f.State)
	}
	for _, f := range r.frames {
		for _, e := range f.preds {
			fmt.Fprintf(w, "  n%d -> n%d [label=\"%d\"];\n", f.id, e.to.id, e.symbol)
		}
	}
	for _, v := range r.versions {
		style := "solid"
		if v.halted {
			style = "dashed"
		} else if v.paused {
			style = "dotted"
		}
		fmt.Fprintf(w, "  v%d [shape=box,style=%s,label=\"v%d pos=%s cost=%d\"];\n",
			v.id, style, v.id, v.position, v.errorStatus.Cost)
		fmt.Fprintf(w, "  v%d -> n%d;\n", v.id, v.top.id)
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}
