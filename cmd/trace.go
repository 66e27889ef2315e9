package cmd

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/wayseat/internal/ui"
	"github.com/bnema/wayseat/internal/wire"
)

var traceCmd = &cobra.Command{
	Use:   "trace <file>",
	Short: "Print a recorded wire trace",
	Long: `Trace decodes a file written by replay --record, or captured from a raw
SSH session, and prints one line per message.`,
	Args: cobra.ExactArgs(1),
	RunE: runTrace,
}

func init() {
	traceCmd.Flags().StringSlice("interface", nil, "Only show messages of these interfaces (e.g. wl_pointer)")
	traceCmd.Flags().Uint32("client", 0, "Only show messages sent to this client")
}

func runTrace(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open trace: %w", err)
	}
	defer f.Close()

	msgs, readErr := wire.ReadTrace(f)

	interfaces, _ := cmd.Flags().GetStringSlice("interface")
	clientID, _ := cmd.Flags().GetUint32("client")
	for i := range interfaces {
		interfaces[i] = strings.TrimSpace(interfaces[i])
	}

	filtered := msgs[:0:0]
	for _, m := range msgs {
		if len(interfaces) > 0 && !slices.Contains(interfaces, m.Op.Interface()) {
			continue
		}
		if clientID != 0 && uint32(m.Client) != clientID {
			continue
		}
		filtered = append(filtered, m)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.FormatTrace(filtered))
	if readErr != nil {
		fmt.Fprintln(out, ui.FormatWarning(fmt.Sprintf("trace truncated after %d messages", len(msgs))))
		return readErr
	}
	fmt.Fprintln(out, ui.SubtleStyle.Render(fmt.Sprintf("%d of %d messages", len(filtered), len(msgs))))
	return nil
}
