package cli

import (
	"encoding/json"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/usestring/iothub-service/pkg/client"
)

func newTwinCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "twin",
		Short: "Read and update device twins",
	}
	cmd.AddCommand(newTwinGetCmd(a), newTwinUpdateCmd(a))
	return cmd
}

func newTwinGetCmd(a *app) *cobra.Command {
	var moduleID, expr string
	cmd := &cobra.Command{
		Use:   "get DEVICE_ID...",
		Short: "Show one or more twins",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				twin, err := a.client.GetTwin(cmd.Context(), args[0], moduleID)
				if err != nil {
					return err
				}
				if expr == "" && a.output == outputJSON {
					return printOne(cmd.OutOrStdout(), twin)
				}
				items, err := toGeneric([]*client.Twin{twin})
				if err != nil {
					return err
				}
				return a.printer(cmd, expr, twinColumns).print(items)
			}

			if moduleID != "" {
				return fmt.Errorf("--module needs exactly one device")
			}
			twins, err := a.client.GetTwins(cmd.Context(), args)
			if err != nil {
				return err
			}
			found := make([]*client.Twin, 0, len(twins))
			for i, twin := range twins {
				if twin == nil {
					fmt.Fprintln(cmd.ErrOrStderr(), pterm.Warning.Sprintf("device %s not found", args[i]))
					continue
				}
				found = append(found, twin)
			}
			items, err := toGeneric(found)
			if err != nil {
				return err
			}
			return a.printer(cmd, expr, twinColumns).print(items)
		},
	}
	cmd.Flags().StringVar(&moduleID, "module", "", "Module ID")
	cmd.Flags().StringVar(&expr, "jq", "", "jq expression applied to the twin")
	return cmd
}

func newTwinUpdateCmd(a *app) *cobra.Command {
	var moduleID, patch, etag string
	var replace bool
	cmd := &cobra.Command{
		Use:     "update DEVICE_ID",
		Short:   "Patch or replace a twin's tags and desired properties",
		Example: `  iothub twin update d1 --patch '{"tags":{"site":"north"}}' --etag AAAAAAAAAAE=`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in client.Twin
			if err := json.Unmarshal([]byte(patch), &in); err != nil {
				return fmt.Errorf("parsing --patch: %w", err)
			}

			update := a.client.UpdateTwin
			if replace {
				update = a.client.ReplaceTwin
			}
			twin, err := update(cmd.Context(), args[0], moduleID, &in, etag)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), pterm.Success.Sprintf("twin %s updated to version %d", twin.DeviceID, twin.Version))
			return printOne(cmd.OutOrStdout(), twin)
		},
	}
	cmd.Flags().StringVar(&moduleID, "module", "", "Module ID")
	cmd.Flags().StringVar(&patch, "patch", "", "Twin document with the tags and properties.desired to apply")
	cmd.Flags().StringVar(&etag, "etag", "", "Only update if the twin still has this ETag (default: unconditional)")
	cmd.Flags().BoolVar(&replace, "replace", false, "Replace tags and desired properties instead of merging")
	_ = cmd.MarkFlagRequired("patch")
	return cmd
}
