package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

type eventWriter interface {
	WriteEvent(ctx context.Context, payload []byte) (string, error)
}

var writeCmd = &cobra.Command{
	Use:   "write [json|-]",
	Short: "Write a JSON payload as an event to a new stream",
	Long:  "Write a JSON payload as an event to a new stream. The payload is read from stdin when omitted or \"-\".",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := readPayload(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}

		a, err := openApp(os.Stderr)
		if err != nil {
			return err
		}
		defer a.Close()

		return runWrite(cmd.Context(), a.svc, cmd.OutOrStdout(), payload)
	},
}

func readPayload(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 1 && args[0] != "-" {
		return []byte(args[0]), nil
	}
	payload, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("reading payload: %w", err)
	}
	return payload, nil
}

func runWrite(ctx context.Context, w eventWriter, out io.Writer, payload []byte) error {
	stream, err := w.WriteEvent(ctx, payload)
	if err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	fmt.Fprintf(out, "Event written successfully to stream: %s\n", stream)
	return nil
}
