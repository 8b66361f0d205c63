package main

import (
	"errors"

	"github.com/spf13/cobra"

	"faceswap/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, binaries and processor models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				results := preflight.RunAll(commandCtx(cmd), rt.cfg, rt.registry)
				rows := make([][]string, 0, len(results))
				for _, result := range results {
					status := "OK"
					if !result.Passed {
						status = "FAIL"
					}
					rows = append(rows, []string{result.Name, status, result.Detail})
				}
				printTable(cmd.OutOrStdout(), []column{left("Check"), left("Status"), left("Detail")}, rows)
				if !preflight.Passed(results) {
					return errors.New("one or more checks failed")
				}
				return nil
			})
		},
	}
}
