package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formlayout/internal/prompt"
	"github.com/goliatone/go-formlayout/pkg/engine"
	"github.com/goliatone/go-formlayout/pkg/hierarchy"
	"github.com/goliatone/go-formlayout/pkg/validation"
)

func newInspectCmd(g *globalFlags, driver prompt.Driver) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Interactively browse resolved components",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if driver == nil {
				return errors.New("inspect needs an interactive terminal")
			}
			e, err := g.open(cmd)
			if err != nil {
				return err
			}
			err = inspectLoop(cmd, e, driver)
			if errors.Is(err, prompt.ErrAborted) {
				return nil
			}
			return err
		},
	}
}

func inspectLoop(cmd *cobra.Command, e *engine.Engine, driver prompt.Driver) error {
	ctx := cmd.Context()
	order := e.Layouts().Order()
	if len(order) == 0 {
		return errors.New("no layout pages loaded")
	}
	for {
		pageIdx, err := driver.Select(ctx, prompt.SelectConfig{
			Message: "Page",
			Options: order,
		})
		if err != nil {
			return err
		}
		if pageIdx < 0 {
			return errors.New("no page selected")
		}

		pages := e.Resolve()
		page, ok := pages.Page(order[pageIdx])
		if !ok {
			return fmt.Errorf("page %q not found", order[pageIdx])
		}
		nodes := page.Flat(true)
		if len(nodes) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s has no components\n", page.Name())
		} else {
			options := make([]string, len(nodes))
			for i, n := range nodes {
				options[i] = fmt.Sprintf("%s (%s)", n.ID(), n.Type())
			}
			nodeIdx, err := driver.Select(ctx, prompt.SelectConfig{
				Message:  "Component on " + page.Name(),
				Options:  options,
				PageSize: 15,
			})
			if err != nil {
				return err
			}
			if nodeIdx >= 0 {
				describeNode(cmd.OutOrStdout(), nodes[nodeIdx], e.Store().Snapshot().Validations)
			}
		}

		again, err := driver.Confirm(ctx, prompt.ConfirmConfig{Message: "Inspect another component?"})
		if err != nil {
			return err
		}
		if !again {
			return nil
		}
	}
}

func describeNode(w io.Writer, n *hierarchy.LayoutNode, v validation.Validations) {
	pageKey := n.Page().Name()
	fmt.Fprintf(w, "id:        %s\n", n.ID())
	fmt.Fprintf(w, "component: %s\n", n.BaseComponentID())
	fmt.Fprintf(w, "type:      %s (%s)\n", n.Type(), n.Category())
	fmt.Fprintf(w, "page:      %s\n", pageKey)
	if depth := n.Depth(); len(depth) > 0 {
		parts := make([]string, len(depth))
		for i, d := range depth {
			parts[i] = fmt.Sprint(d)
		}
		fmt.Fprintf(w, "rows:      %s\n", strings.Join(parts, ", "))
	}
	fmt.Fprintf(w, "hidden:    %t\n", n.IsHidden())
	fmt.Fprintf(w, "required:  %t\n", n.IsRequired())

	bindings := n.Bindings()
	keys := make([]string, 0, len(bindings))
	for k := range bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "binding:   %s = %s\n", k, bindings[k])
	}
	if rows := n.Rows(); len(rows) > 0 {
		fmt.Fprintf(w, "visible rows: %d\n", len(rows))
		var columns []string
		for _, c := range n.TableNodes(rows[0].Index) {
			columns = append(columns, c.BaseComponentID())
		}
		if len(columns) > 0 {
			fmt.Fprintf(w, "columns:   %s\n", strings.Join(columns, ", "))
		}
	}
	for _, sev := range []validation.Severity{validation.SeverityErrors, validation.SeverityWarnings, validation.SeverityInfo} {
		for _, msg := range v.Messages(pageKey, n.ID(), sev) {
			fmt.Fprintf(w, "%s: %s\n", sev, msg)
		}
	}
}
