package cmd

import (
	"fmt"
	"os"

	"github.com/aoneahsan/strata-storage/cmd/kv"
	"github.com/aoneahsan/strata-storage/cmd/util"
	"github.com/aoneahsan/strata-storage/lib/storage"
	"github.com/aoneahsan/strata-storage/lib/store"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "strata",
		Short: "unified storage layer",
		Long: fmt.Sprintf(`strata (v%s)

A unified key-value storage layer written in Go, orchestrating
multiple backends behind one API with policy-based selection,
TTL management, encryption, compression and queries.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of strata",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("strata v%s\n", Version)
		},
	}

	// adaptersCmd lists every registered backend with its availability
	// and capabilities
	adaptersCmd = &cobra.Command{
		Use:   "adapters",
		Short: "List the registered storage backends and their capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := util.BindCommandFlags(cmd); err != nil {
				return err
			}

			s := store.New(util.GetStoreConfig())
			defer s.Close()

			for _, info := range s.Registry().Describe() {
				status := "available"
				if !info.Available {
					status = fmt.Sprintf("unavailable (%s)", info.Reason)
				}

				caps := info.Capabilities
				limit := "unbounded"
				if caps.MaxSize != storage.Unbounded {
					limit = fmt.Sprintf("%d bytes", caps.MaxSize)
				}

				fmt.Printf("%-16s%s\n", info.Name, status)
				fmt.Printf("%-16spersistent=%t synchronous=%t observable=%t queryable=%t max-size=%s\n",
					"", caps.Persistent, caps.Synchronous, caps.Observable, caps.Queryable, limit)
			}
			return nil
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(adaptersCmd)
	RootCmd.AddCommand(versionCmd)

	// The adapters command needs the same store configuration as kv
	util.SetupStoreFlags(adaptersCmd)
	cobra.OnInitialize(util.InitConfig)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
