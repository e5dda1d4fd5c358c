// Package cli implements the iothub command-line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/usestring/iothub-service/internal/config"
	"github.com/usestring/iothub-service/internal/jq"
	"github.com/usestring/iothub-service/internal/logging"
	"github.com/usestring/iothub-service/internal/schema"
	"github.com/usestring/iothub-service/pkg/client"
)

// app carries state shared by all subcommands of one invocation.
type app struct {
	connectionString string
	logLevel         string
	output           string
	strict           bool

	cfg        *config.Config
	client     *client.Client
	jq         *jq.Engine
	logCleanup func() error

	// newClient builds the service client; tests replace it.
	newClient func(cfg *config.Config, opts ...client.Option) (*client.Client, error)
}

// NewRootCmd builds the iothub command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{newClient: config.NewClient})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "iothub",
		Short: "Query and manage an Azure IoT hub fleet",
		Long: `iothub runs twin and job queries against an IoT hub, following continuation
tokens until the result set is exhausted, and invokes direct methods and jobs.

The hub is selected with IOTHUB_CONNECTION_STRING or --connection-string.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logCleanup != nil {
				return a.logCleanup()
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.connectionString, "connection-string", "", "Service connection string (default: $IOTHUB_CONNECTION_STRING)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (default: $LOG_LEVEL)")
	flags.StringVarP(&a.output, "output", "o", outputTable, "Output format: table or json")
	flags.BoolVar(&a.strict, "strict", false, "Reject pages whose items do not match the item schema")

	root.AddCommand(
		newQueryCmd(a),
		newTwinCmd(a),
		newMethodCmd(a),
		newJobCmd(a),
	)
	return root
}

func (a *app) setup() error {
	if a.output != outputTable && a.output != outputJSON {
		return fmt.Errorf("unknown output format %q", a.output)
	}

	a.cfg = config.Load()
	if a.connectionString != "" {
		a.cfg.ConnectionString = a.connectionString
	}
	if a.strict {
		a.cfg.StrictPages = true
	}

	level := a.cfg.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	cleanup, err := logging.Setup(logging.Config{
		Level:      level,
		Format:     a.cfg.LogFormat,
		FilePath:   a.cfg.LogFile,
		MaxSizeMB:  a.cfg.LogMaxSizeMB,
		MaxBackups: a.cfg.LogMaxBackups,
		MaxAgeDays: a.cfg.LogMaxAgeDays,
		Compress:   a.cfg.LogCompress,
	})
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	a.logCleanup = cleanup

	var opts []client.Option
	if a.cfg.StrictPages {
		v, err := schema.NewItemValidator()
		if err != nil {
			return err
		}
		opts = append(opts, client.WithItemValidator(v))
	}
	a.client, err = a.newClient(a.cfg, opts...)
	if err != nil {
		return err
	}
	a.jq = jq.NewEngine()
	return nil
}
