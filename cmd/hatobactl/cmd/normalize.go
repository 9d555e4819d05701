package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bdobrica/Hatoba/common/trace"
	"github.com/bdobrica/Hatoba/internal/hatoba/config"
	"github.com/bdobrica/Hatoba/internal/hatoba/event"
)

func newNormalizeCmd() *cobra.Command {
	var (
		configFile string
		events     []string
		chatIDs    string
		userIDs    string
		pretty     bool
	)
	cmd := &cobra.Command{
		Use:   "normalize [file|-]",
		Short: "Run a webhook payload through the event pipeline",
		Long: `Reads one JSON payload from a file (or stdin when the argument is
omitted or "-") and prints the pipeline output in the webhook response
shape: a list holding one list of zero or one record.`,
		Example: `  hatobactl normalize update.json --events message_created,message_edited
  cat update.json | hatobactl normalize --chat-ids 123,456 --pretty`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readPayload(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			opts := event.Options{}
			if configFile != "" {
				data, err := os.ReadFile(configFile)
				if err != nil {
					return fmt.Errorf("read config file: %w", err)
				}
				cfg, err := config.Parse(data)
				if err != nil {
					return err
				}
				opts = cfg.PipelineOptions()
			}
			if cmd.Flags().Changed("events") {
				opts.Events = events
			}
			if cmd.Flags().Changed("chat-ids") {
				opts.ChatIDs = chatIDs
			}
			if cmd.Flags().Changed("user-ids") {
				opts.UserIDs = userIDs
			}

			ctx := trace.WithTraceID(cmd.Context(), trace.GenerateID())
			res := event.New(opts).Process(ctx, raw)

			enc := json.NewEncoder(cmd.OutOrStdout())
			if pretty {
				enc.SetIndent("", "  ")
			}
			if err := enc.Encode(event.Batches(res.Records)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}

			reportOutcome(cmd.ErrOrStderr(), res)
			return nil
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "take allow-lists from a gateway config file")
	cmd.Flags().StringSliceVar(&events, "events", nil, "allowed update types (default: all)")
	cmd.Flags().StringVar(&chatIDs, "chat-ids", "", "comma-separated chat id allow-list")
	cmd.Flags().StringVar(&userIDs, "user-ids", "", "comma-separated user id allow-list")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON output")
	return cmd
}

func readPayload(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return data, nil
}

func reportOutcome(w io.Writer, res event.Result) {
	switch res.Outcome {
	case event.OutcomeAccepted:
		rec := res.Records[0]
		if rec.Validation.IsValid {
			printSuccess(w, "%s accepted (%s)", res.Type, rec.EventID)
		} else {
			printWarn(w, "%s accepted with %d validation error(s) (%s)", res.Type, len(rec.Validation.Errors), rec.EventID)
		}
		for _, e := range rec.Validation.Errors {
			printWarn(w, "error %s: %s", e.Field, e.Message)
		}
		for _, e := range rec.Validation.Warnings {
			printInfo(w, "warning %s: %s", e.Field, e.Message)
		}
	case event.OutcomePassthrough:
		printInfo(w, "untyped payload passed through")
	case event.OutcomeFailed, event.OutcomeRejected:
		printError(w, "payload %s", res.Outcome)
	default:
		printInfo(w, "no record: %s", res.Outcome)
	}
}
