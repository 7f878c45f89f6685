package memdom

import (
	"bufio"
	"io"
	"slices"
	"strconv"
	"strings"
)

// Render writes an indented dump of the document tree to w.
//
//	#document
//	  <h1 class="title">
//	    "hello world"
func (d *Document) Render(w io.Writer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	bw := bufio.NewWriter(w)
	renderNode(bw, d.root, 0)
	return bw.Flush()
}

// String returns the rendered tree.
func (d *Document) String() string {
	var sb strings.Builder
	_ = d.Render(&sb)
	return sb.String()
}

// RenderNode writes the subtree rooted at n.
func (d *Document) RenderNode(w io.Writer, n *Node) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	bw := bufio.NewWriter(w)
	renderNode(bw, n, 0)
	return bw.Flush()
}

func renderNode(w *bufio.Writer, n *Node, depth int) {
	for i := 0; i < depth; i++ {
		w.WriteString("  ")
	}

	switch n.kind {
	case KindDocument:
		w.WriteString("#document")
	case KindText:
		w.WriteString(strconv.Quote(n.text))
	case KindPlaceholder:
		w.WriteString("<!---->")
	case KindElement:
		w.WriteByte('<')
		if n.ns != "" {
			w.WriteString(n.ns)
			w.WriteByte(':')
		}
		w.WriteString(n.tag)
		for _, a := range n.attrs {
			w.WriteByte(' ')
			if a.NS != "" {
				w.WriteString(a.NS)
				w.WriteByte(':')
			}
			w.WriteString(a.Name)
			w.WriteByte('=')
			w.WriteString(strconv.Quote(a.Value))
		}
		if len(n.listeners) > 0 {
			kinds := make([]string, 0, len(n.listeners))
			for k := range n.listeners {
				kinds = append(kinds, k)
			}
			slices.Sort(kinds)
			for _, k := range kinds {
				w.WriteString(" @")
				w.WriteString(k)
				w.WriteByte('=')
				w.WriteString(strconv.FormatUint(uint64(n.listeners[k]), 10))
			}
		}
		w.WriteByte('>')
	}
	w.WriteByte('\n')

	for _, c := range n.children {
		renderNode(w, c, depth+1)
	}
}
