package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formlayout/pkg/hierarchy"
)

func newTreeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tree [page...]",
		Short: "Print the resolved component tree of each page",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.open(cmd)
			if err != nil {
				return err
			}
			pages := e.Resolve()
			names := args
			if len(names) == 0 {
				names = e.Layouts().Order()
			}
			w := cmd.OutOrStdout()
			for _, name := range names {
				page, ok := pages.Page(name)
				if !ok {
					return fmt.Errorf("page %q not found", name)
				}
				writePage(w, page)
			}
			return nil
		},
	}
}

func writePage(w io.Writer, page *hierarchy.LayoutPage) {
	name := page.Name()
	if page.IsHidden() {
		name += " [hidden]"
	}
	fmt.Fprintln(w, name)
	for _, node := range page.Children(nil) {
		writeNode(w, node, 1)
	}
	for _, d := range page.Diagnostics() {
		fmt.Fprintf(w, "  ! %s\n", d)
	}
}

func writeNode(w io.Writer, n *hierarchy.LayoutNode, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(w, "%s%s (%s)%s\n", indent, n.ID(), n.Type(), nodeMarks(n))

	if rows := n.AllRows(); len(rows) > 0 {
		for _, row := range rows {
			mark := ""
			if row.IsHidden() {
				mark = " [hidden]"
			}
			fmt.Fprintf(w, "%s  [%d]%s\n", indent, row.Index, mark)
			for _, child := range row.Items {
				writeNode(w, child, depth+2)
			}
		}
		return
	}
	for _, child := range n.Children(nil, hierarchy.AllRows) {
		writeNode(w, child, depth+1)
	}
}

func nodeMarks(n *hierarchy.LayoutNode) string {
	var marks []string
	if binding := n.Binding(n.Kind().PrimaryBinding()); binding != "" {
		marks = append(marks, "-> "+binding)
	}
	if n.IsHidden() {
		marks = append(marks, "[hidden]")
	}
	if n.IsRequired() {
		marks = append(marks, "[required]")
	}
	if n.IsPlaceholder() {
		marks = append(marks, "[unknown type]")
	}
	if len(marks) == 0 {
		return ""
	}
	return " " + strings.Join(marks, " ")
}
