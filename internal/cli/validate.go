package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formlayout/pkg/validation"
)

// errValidationFailed makes the command exit non-zero when errors remain.
var errValidationFailed = errors.New("form has validation errors")

type validateOutput struct {
	Validations validation.Validations    `json:"validations"`
	Fixed       []validation.Object       `json:"fixed,omitempty"`
	Dropped     []validation.DroppedIssue `json:"dropped,omitempty"`
}

func newValidateCmd(g *globalFlags) *cobra.Command {
	var (
		jsonMode bool
		backend  string
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the form data against the layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.open(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if _, err := e.Validate(ctx); err != nil {
				return err
			}

			var out validateOutput
			if backend != "" {
				issues, err := readBackendIssues(backend)
				if err != nil {
					return err
				}
				out.Fixed, out.Dropped, err = e.ApplyBackendIssues(ctx, issues)
				if err != nil {
					return err
				}
			}
			out.Validations = e.Store().Snapshot().Validations

			w := cmd.OutOrStdout()
			if jsonMode {
				if err := json.NewEncoder(w).Encode(out); err != nil {
					return fmt.Errorf("encoding output: %w", err)
				}
			} else {
				writeValidations(w, out)
			}
			if out.Validations.HasErrors("") {
				return errValidationFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonMode, "json", false, "print JSON instead of text")
	cmd.Flags().StringVar(&backend, "backend", "", "JSON file of backend validation issues to merge")
	return cmd
}

func readBackendIssues(path string) ([]validation.BackendIssue, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading backend issues: %w", err)
	}
	var issues []validation.BackendIssue
	if err := json.Unmarshal(raw, &issues); err != nil {
		return nil, fmt.Errorf("parsing backend issues: %w", err)
	}
	return issues, nil
}

func writeValidations(w io.Writer, out validateOutput) {
	v := out.Validations
	for _, page := range sortedKeys(v) {
		for _, comp := range sortedKeys(v[page]) {
			for _, binding := range sortedKeys(v[page][comp]) {
				b := v[page][comp][binding]
				for _, sev := range sortedKeys(b) {
					for _, msg := range b[sev] {
						fmt.Fprintf(w, "%s/%s %s %s: %s\n", page, comp, binding, sev, msg)
					}
				}
			}
		}
	}
	for _, f := range out.Fixed {
		fmt.Fprintf(w, "%s/%s %s fixed: %s\n", f.PageKey, f.ComponentID, f.BindingKey, f.Message)
	}
	for _, d := range out.Dropped {
		fmt.Fprintf(w, "dropped %s: %s\n", d.Issue.Code, d.Reason)
	}
	if v.Count(validation.SeverityErrors) == 0 && v.Count(validation.SeverityWarnings) == 0 {
		fmt.Fprintln(w, "ok")
	}
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
