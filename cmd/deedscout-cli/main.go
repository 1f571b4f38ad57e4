package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"deedscout-backend/lib/addressutil"
	"deedscout-backend/lib/browser"
	"deedscout-backend/lib/serviceutil"
	"deedscout-backend/lib/telemetry"
	"deedscout-backend/services/resolver"
)

var flagCounty string
var flagState string
var flagPoolSize int64
var flagHeadful bool
var flagVerbose bool

var rootCmd = &cobra.Command{
	Use:   "deedscout-cli <addresses-file>",
	Short: "Resolves a file of property addresses (one per line) against the county record portals and prints the results.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(flagVerbose)

		contents, err := os.ReadFile(args[0])
		if err != nil {
			serviceutil.Fatal("read addresses file", err)
		}

		var addresses []addressutil.Address
		for _, line := range strings.Split(string(contents), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			addresses = append(addresses, addressutil.New(line, flagCounty, flagState))
		}
		if len(addresses) == 0 {
			serviceutil.Fatal("read addresses file", fmt.Errorf("no addresses in %s", args[0]))
		}

		launcher := browser.NewChromedpLauncher(cmd.Context(), browser.Config{
			Headless: !flagHeadful,
		})
		pool := browser.NewPool(launcher, flagPoolSize)
		defer pool.Close()

		service := resolver.NewService(resolver.ServiceOptions{Pool: pool})

		start := time.Now()
		results, summary := service.Run(cmd.Context(), addresses, false)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Address", "Parcel ID", "Owner", "Effective", "County", "Error"})
		for _, result := range results {
			t.AppendRow(table.Row{
				result.Address,
				result.ParcelID,
				result.OwnerName,
				result.EffectiveDate,
				result.County,
				result.Error,
			})
		}
		t.Render()

		fmt.Printf(
			"\n%d total, %d successful, %d failed in %s\n",
			summary.Total, summary.Successful, summary.Failed,
			time.Since(start).Round(time.Second),
		)
	},
}

func main() {
	rootCmd.Flags().StringVar(&flagCounty, "county", "", "County to assume for every address instead of guessing from the text.")
	rootCmd.Flags().StringVar(&flagState, "state", "", "State to assume for every address instead of guessing from the text.")
	rootCmd.Flags().Int64Var(&flagPoolSize, "pool", 2, "How many browser sessions to run at once.")
	rootCmd.Flags().BoolVar(&flagHeadful, "headful", false, "Show the browser window while scraping.")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose logging.")

	ctx := serviceutil.SignalContext()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		os.Exit(1)
	}
}
