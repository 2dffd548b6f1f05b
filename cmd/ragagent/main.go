package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Prasann123/Tradition-RAG/config"
)

var cfgPath string

func main() {
	var root = &cobra.Command{
		Use:           "ragagent",
		Short:         "Retrieval-augmented agent service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config/config.json)")

	root.AddCommand(serveCMD(), migrateCMD(), askCMD(), planTripCMD(), ingestCMD(), tokenCMD())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgPath)
}
