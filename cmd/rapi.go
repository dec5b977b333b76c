package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var rapiCmd = &cobra.Command{
	Use:   "rapi <command>",
	Short: "Send one raw RAPI command and print the reply",
	Long: `Send one raw RAPI command, for example:

  evse-rapi rapi '$GE'
  evse-rapi rapi GS

The leading $ is added when missing. The checksum trailer is added for the
checksummed protocol.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRapi,
}

func init() {
	rootCmd.AddCommand(rapiCmd)
}

func runRapi(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}
	client, closer, err := openClient(config.EVSE)
	if err != nil {
		return err
	}
	defer closer.Close()

	wire := strings.Join(args, " ")
	if !strings.HasPrefix(wire, "$") {
		wire = "$" + wire
	}
	reply, err := client.Raw(context.Background(), wire)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(reply.Status+" "+strings.Join(reply.Args, " ")))
	return nil
}
