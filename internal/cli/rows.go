package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formlayout/pkg/formdata"
)

type rowsOutput struct {
	Group          string             `json:"group"`
	Page           string             `json:"page"`
	Binding        string             `json:"binding"`
	Index          int                `json:"index"`
	EditIndex      int                `json:"editIndex"`
	MultiPageIndex int                `json:"multiPageIndex"`
	VisibleRows    []int              `json:"visibleRows"`
	HiddenRows     []int              `json:"hiddenRows,omitempty"`
	Data           formdata.DataModel `json:"data,omitempty"`
}

func newRowsCmd(g *globalFlags) *cobra.Command {
	var deleteRow int
	cmd := &cobra.Command{
		Use:   "rows <group-id>",
		Short: "Show the rows of a repeating group, optionally after deleting one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID := args[0]
			e, err := g.open(cmd)
			if err != nil {
				return err
			}

			node := e.Resolve().FindByID(groupID)
			if node == nil {
				return fmt.Errorf("repeating group %q not found", groupID)
			}
			pageName := node.Page().Name()

			if cmd.Flags().Changed("delete") {
				if err := e.Rows().DeleteRow(cmd.Context(), pageName, groupID, deleteRow); err != nil {
					return fmt.Errorf("deleting row %d: %w", deleteRow, err)
				}
				node = e.Resolve().FindByID(groupID)
				if node == nil {
					return fmt.Errorf("repeating group %q vanished after delete", groupID)
				}
			}

			st := e.Store().Snapshot()
			out := rowsOutput{
				Group:          groupID,
				Page:           pageName,
				Binding:        node.GroupBinding(),
				Index:          st.RepeatingGroups.Get(groupID).Index,
				EditIndex:      st.RepeatingGroups.Get(groupID).EditIndex,
				MultiPageIndex: st.RepeatingGroups.Get(groupID).MultiPageIndex,
				VisibleRows:    []int{},
			}
			for _, row := range node.Rows() {
				if row.IsHidden() {
					out.HiddenRows = append(out.HiddenRows, row.Index)
					continue
				}
				out.VisibleRows = append(out.VisibleRows, row.Index)
			}
			if prefix := node.GroupBinding(); prefix != "" {
				out.Data = formdata.DataModel{}
				for _, key := range st.DataModel.KeysWithPrefix(prefix + "[") {
					out.Data[key] = st.DataModel[key]
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("encoding output: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&deleteRow, "delete", -1, "delete this row before printing")
	return cmd
}
