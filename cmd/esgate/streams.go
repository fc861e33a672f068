package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aneshas/esgate"
	"github.com/aneshas/esgate/api"
	"github.com/spf13/cobra"
)

var jsonOutput bool

var streamsCmd = &cobra.Command{
	Use:   "streams",
	Short: "List and bulk delete streams",
}

var streamsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active streams",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(os.Stderr)
		if err != nil {
			return err
		}
		defer a.Close()

		return runList(cmd.Context(), a.svc, cmd.OutOrStdout(), jsonOutput)
	},
}

var streamsDeleteHalfCmd = &cobra.Command{
	Use:   "delete-half",
	Short: "Tombstone the first half of the active streams",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(os.Stderr)
		if err != nil {
			return err
		}
		defer a.Close()

		return runDelete(cmd.Context(), a.svc.DeleteHalf, cmd.OutOrStdout())
	},
}

var streamsDeleteOldCmd = &cobra.Command{
	Use:   "delete-old",
	Short: "Tombstone active streams older than max_stream_age",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(os.Stderr)
		if err != nil {
			return err
		}
		defer a.Close()

		return runDelete(cmd.Context(), a.svc.DeleteOld, cmd.OutOrStdout())
	},
}

func init() {
	streamsListCmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	streamsCmd.AddCommand(streamsListCmd)
	streamsCmd.AddCommand(streamsDeleteHalfCmd)
	streamsCmd.AddCommand(streamsDeleteOldCmd)
}

type streamLister interface {
	ListActiveStreams(ctx context.Context) ([]string, error)
}

func runList(ctx context.Context, l streamLister, out io.Writer, asJSON bool) error {
	names, err := l.ListActiveStreams(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		if names == nil {
			names = []string{}
		}
		return json.NewEncoder(out).Encode(names)
	}
	for _, name := range names {
		fmt.Fprintln(out, name)
	}
	return nil
}

func runDelete(ctx context.Context, del func(context.Context) (esgate.DeleteReport, error), out io.Writer) error {
	report, err := del(ctx)
	for _, stream := range report.Deleted {
		fmt.Fprintf(out, "Deleted %s\n", stream)
	}
	if err != nil {
		return fmt.Errorf("deleting streams: %w", err)
	}
	fmt.Fprintln(out, api.DeleteMessage(report))
	return nil
}
