package main

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"faceswap/internal/processors"
	"faceswap/internal/state"
)

type processorView struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Default     bool     `json:"default"`
	Ready       bool     `json:"ready"`
	Detail      string   `json:"detail,omitempty"`
	Models      []string `json:"models,omitempty"`
}

func newProcessorsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "processors",
		Short: "List registered processors and their readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				c := commandCtx(cmd)
				defaults, _ := rt.view().Strings(state.KeyProcessors)
				views := make([]processorView, 0, len(rt.registry.Names()))
				for _, name := range rt.registry.Names() {
					view := processorView{
						Name:        name,
						DisplayName: processors.DisplayName(name),
						Default:     slices.Contains(defaults, name),
						Models:      processors.RequiredModels(name, rt.cfg.ProcessorOptions(name)),
					}
					procs, err := rt.registry.Resolve([]string{name})
					if err != nil {
						view.Detail = err.Error()
					} else {
						health := rt.registry.PreCheck(c, procs[0])
						view.Ready = health.Ready
						view.Detail = health.Detail
					}
					views = append(views, view)
				}
				rt.registry.ClearAll()

				if jsonOutput {
					return writeJSON(cmd, views)
				}
				rows := make([][]string, 0, len(views))
				for _, view := range views {
					name := view.DisplayName
					if view.Default {
						name += " *"
					}
					rows = append(rows, []string{view.Name, name, yesNo(view.Ready), truncate(view.Detail, 60), strings.Join(view.Models, ", ")})
				}
				printTable(cmd.OutOrStdout(),
					[]column{left("Name"), left("Display"), left("Ready"), left("Detail"), left("Models")},
					rows,
				)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
