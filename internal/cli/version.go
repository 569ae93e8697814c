package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cedadev/authgate/internal/version"
)

func cmdVersion() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			if verbose {
				fmt.Println(version.Verbose())
				return
			}
			fmt.Println(version.String())
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "include commit and build details")
	return cmd
}
