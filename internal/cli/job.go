package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/usestring/iothub-service/pkg/client"
)

func newJobCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Schedule, inspect and cancel fleet jobs",
	}
	cmd.AddCommand(
		newJobGetCmd(a),
		newJobCancelCmd(a),
		newJobScheduleMethodCmd(a),
		newJobScheduleTwinCmd(a),
	)
	return cmd
}

func newJobGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get JOB_ID",
		Short: "Show a job's status and statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := a.client.GetJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printJob(cmd, job)
		},
	}
}

func newJobCancelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel JOB_ID",
		Short: "Cancel a scheduled or running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := a.client.CancelJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printJob(cmd, job)
		},
	}
}

// scheduleFlags are shared by the schedule subcommands.
type scheduleFlags struct {
	jobID        string
	condition    string
	start        string
	maxExecution time.Duration
}

func (f *scheduleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.jobID, "job-id", "", "Job ID (default: random UUID)")
	cmd.Flags().StringVar(&f.condition, "where", "", "Query condition selecting the target devices, e.g. \"tags.site = 'north'\"")
	cmd.Flags().StringVar(&f.start, "start", "", "Start time in RFC 3339 (default: now)")
	cmd.Flags().DurationVar(&f.maxExecution, "max-execution", time.Hour, "Maximum time the job may run")
	_ = cmd.MarkFlagRequired("where")
}

func (f *scheduleFlags) resolve() (string, time.Time, error) {
	id := f.jobID
	if id == "" {
		id = uuid.NewString()
	}
	start := time.Now().UTC()
	if f.start != "" {
		t, err := time.Parse(time.RFC3339, f.start)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("parsing --start: %w", err)
		}
		start = t
	}
	return id, start, nil
}

func newJobScheduleMethodCmd(a *app) *cobra.Command {
	var f scheduleFlags
	var payload string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:     "schedule-method METHOD",
		Short:   "Invoke a direct method on every matching device",
		Example: `  iothub job schedule-method reboot --where "tags.site = 'north'"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, start, err := f.resolve()
			if err != nil {
				return err
			}
			method := client.MethodRequest{
				MethodName:               args[0],
				ResponseTimeoutInSeconds: int(timeout.Seconds()),
			}
			if payload != "" {
				if !json.Valid([]byte(payload)) {
					return fmt.Errorf("--payload is not valid JSON")
				}
				method.Payload = json.RawMessage(payload)
			}

			job, err := a.client.ScheduleDeviceMethod(cmd.Context(), id, f.condition, method, start, f.maxExecution)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), pterm.Success.Sprintf("scheduled job %s", job.JobID))
			return a.printJob(cmd, job)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&payload, "payload", "", "JSON payload")
	cmd.Flags().DurationVar(&timeout, "timeout", client.DefaultMethodResponseTimeout*time.Second, "Time each device has to answer")
	return cmd
}

func newJobScheduleTwinCmd(a *app) *cobra.Command {
	var f scheduleFlags
	var patch string
	cmd := &cobra.Command{
		Use:     "schedule-twin",
		Short:   "Apply a twin patch to every matching device",
		Example: `  iothub job schedule-twin --where "tags.site = 'north'" --patch '{"properties":{"desired":{"interval":30}}}'`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, start, err := f.resolve()
			if err != nil {
				return err
			}
			var twin client.Twin
			if err := json.Unmarshal([]byte(patch), &twin); err != nil {
				return fmt.Errorf("parsing --patch: %w", err)
			}

			job, err := a.client.ScheduleTwinUpdate(cmd.Context(), id, f.condition, &twin, start, f.maxExecution)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), pterm.Success.Sprintf("scheduled job %s", job.JobID))
			return a.printJob(cmd, job)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&patch, "patch", "", "Twin document with the tags and properties.desired to apply")
	_ = cmd.MarkFlagRequired("patch")
	return cmd
}

func (a *app) printJob(cmd *cobra.Command, job *client.JobResponse) error {
	if a.output == outputJSON {
		return printOne(cmd.OutOrStdout(), job)
	}
	items, err := toGeneric([]*client.JobResponse{job})
	if err != nil {
		return err
	}
	return a.printer(cmd, "", jobColumns).print(items)
}
