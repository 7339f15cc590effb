package report

import (
	"fmt"
	"iter"
	"strings"

	"github.com/Sumatoshi-tech/fixedkit/pkg/alg/ordered"
)

type treeNodeDoc struct {
	Key   string `json:"key"   yaml:"key"`
	Depth int    `json:"depth" yaml:"depth"`
	Side  string `json:"side"  yaml:"side"`
	Lean  string `json:"lean"  yaml:"lean"`
	Slot  int    `json:"slot"  yaml:"slot"`
}

type treeDoc struct {
	Size   int           `json:"size"   yaml:"size"`
	Height int           `json:"height" yaml:"height"`
	Nodes  []treeNodeDoc `json:"nodes"  yaml:"nodes"`
}

func sideName(s ordered.Side) string {
	switch s {
	case ordered.SideLeft:
		return "L"
	case ordered.SideRight:
		return "R"
	case ordered.SideRoot:
		return "root"
	default:
		return "?"
	}
}

// Tree renders a pre-order node walk as an indented outline. Each line shows
// the key, the stored lean and the pool slot.
func Tree[T any](r *Renderer, nodes iter.Seq[ordered.NodeView[T]], size, height int, label func(*T) string) error {
	if r.codec != nil {
		doc := treeDoc{Size: size, Height: height}

		for v := range nodes {
			doc.Nodes = append(doc.Nodes, treeNodeDoc{
				Key:   label(v.Item),
				Depth: v.Depth,
				Side:  sideName(v.Side),
				Lean:  v.Lean.String(),
				Slot:  v.Slot,
			})
		}

		return r.codec.Encode(r.w, doc)
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "%s size=%d height=%d\n", r.accent.Sprint("tree"), size, height)

	for v := range nodes {
		lean := v.Lean.String()
		if v.Lean != ordered.LeanBalanced {
			lean = r.fail.Sprint(lean)
		}

		fmt.Fprintf(&sb, "%s%s %s [%s] #%d\n",
			strings.Repeat("  ", v.Depth), sideName(v.Side), label(v.Item), lean, v.Slot)
	}

	_, err := fmt.Fprint(r.w, sb.String())
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}
