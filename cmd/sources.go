package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sourceDescriptions = map[string]string{
	"places":      "paid directory API, structured contact fields, no rendering",
	"yelp":        "review-site search pages rendered and extracted per business",
	"yellowpages": "directory listing pages rendered and extracted per business",
	"gmaps":       "map search feed, contact fields read from detail panels",
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List available discovery sources",
	Run: func(cmd *cobra.Command, args []string) {
		reg := newSourceRegistry(nil, nil, nil)
		for _, name := range reg.List() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-13s %s\n", name, sourceDescriptions[name])
		}
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
