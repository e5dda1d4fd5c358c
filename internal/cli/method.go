package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/usestring/iothub-service/pkg/client"
)

func newMethodCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "method",
		Short: "Invoke direct methods",
	}
	cmd.AddCommand(newMethodInvokeCmd(a))
	return cmd
}

func newMethodInvokeCmd(a *app) *cobra.Command {
	var moduleID, payload string
	var timeout, connectTimeout time.Duration
	cmd := &cobra.Command{
		Use:     "invoke DEVICE_ID METHOD",
		Short:   "Call a direct method and print the device's answer",
		Example: `  iothub method invoke d1 reboot --payload '{"delay":5}' --timeout 10s`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := client.MethodRequest{
				MethodName:               args[1],
				ResponseTimeoutInSeconds: int(timeout.Seconds()),
				ConnectTimeoutInSeconds:  int(connectTimeout.Seconds()),
			}
			if payload != "" {
				if !json.Valid([]byte(payload)) {
					return fmt.Errorf("--payload is not valid JSON")
				}
				req.Payload = json.RawMessage(payload)
			}

			spinner, _ := pterm.DefaultSpinner.WithWriter(cmd.ErrOrStderr()).Start(fmt.Sprintf("invoking %s on %s", args[1], args[0]))
			res, err := a.client.InvokeMethod(cmd.Context(), args[0], moduleID, req)
			if err != nil {
				spinner.Fail(err.Error())
				return err
			}
			spinner.Success(fmt.Sprintf("%s returned status %d", args[1], res.Status))

			var body any
			if len(res.Payload) > 0 {
				if err := json.Unmarshal(res.Payload, &body); err != nil {
					return fmt.Errorf("decoding method payload: %w", err)
				}
			}
			return printOne(cmd.OutOrStdout(), body)
		},
	}
	cmd.Flags().StringVar(&moduleID, "module", "", "Module ID")
	cmd.Flags().StringVar(&payload, "payload", "", "JSON payload")
	cmd.Flags().DurationVar(&timeout, "timeout", client.DefaultMethodResponseTimeout*time.Second, "Time to wait for the device to answer")
	cmd.Flags().DurationVar(&connectTimeout, "connect-timeout", 0, "Time to wait for the device to connect")
	return cmd
}
