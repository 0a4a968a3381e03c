// Leadflow CLI — инструмент командной строки для работы с лидами,
// правилами follow-up и отправками через HTTP API.
//
// Использование:
//
//	leadflow [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	lead      Управление лидами
//	rule      Управление правилами follow-up
//	followup  Отправленные follow-up
//	lock      Execution locks
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Leadflow/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "leadflow",
		Short:         "Leadflow CLI — lead follow-up tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultURL := "http://localhost:8080"
	if v := os.Getenv("LEADFLOW_API_URL"); v != "" {
		defaultURL = v
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultURL, "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewLeadCmd(clientFn, outputFn),
		cli.NewRuleCmd(clientFn, outputFn),
		cli.NewFollowupCmd(clientFn, outputFn),
		cli.NewLockCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
