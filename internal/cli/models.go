package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"

	"vlmeval/pkg/types"
)

// printModels lists discovered models and the availability of the configured ones.
func printModels(ctx context.Context, rt *runtime, w io.Writer) error {
	bold := color.New(color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	listed := rt.mgr.ListModels(ctx)
	fmt.Fprintf(w, "%s %s (%s)\n", bold("Backend:"), rt.cfg.Backend.BaseURL, rt.cfg.Backend.Kind)
	if listed.Fallback {
		fmt.Fprintln(w, yellow("Discovery failed, showing fallback list"))
	}
	for _, m := range listed.Models {
		fmt.Fprintf(w, "  %s\n", m)
	}

	check, err := rt.mgr.CheckModels(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, bold("Configured:"))
	for _, m := range check.Models {
		state := yellow("missing")
		switch {
		case m.CurrentlyLoaded:
			state = green("loaded")
		case m.Available:
			state = green("available")
		}
		fmt.Fprintf(w, "  %-40s %s\n", m.Name, state)
	}
	if check.Note != "" {
		fmt.Fprintln(w, check.Note)
	}
	if active, err := rt.mgr.ActiveModel(ctx); err == nil && active.ActiveModel != "" {
		fmt.Fprintf(w, "%s %s\n", bold("Active:"), types.ShortName(active.ActiveModel))
	}
	return nil
}
