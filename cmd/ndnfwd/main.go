package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ndn-go/ndnfwd/core"
)

// version is a plain constant; it is not injected at build time.
const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "ndnfwd",
	Short:   "NDN forwarding daemon",
	Version: version,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		core.Log.Error(rootLogger{}, "command failed", "err", err)
		os.Exit(1)
	}
}

type rootLogger struct{}

func (rootLogger) String() string { return "ndnfwd" }
