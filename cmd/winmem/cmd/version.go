package cmd

import "github.com/spf13/cobra"

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the winmem version",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("winmem, version: %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
