package kv

import (
	"github.com/aoneahsan/strata-storage/cmd/util"
	"github.com/aoneahsan/strata-storage/lib/store"
	"github.com/spf13/cobra"
)

var (
	kvStore *store.Store

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:                "kv",
		Short:              "Perform key-value storage operations",
		PersistentPreRunE:  setupStore,
		PersistentPostRunE: teardownStore,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common store flags to the KV command
	util.SetupStoreFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(hasCmd)
	KeyValueCommands.AddCommand(ttlCmd)
	KeyValueCommands.AddCommand(extendCmd)
	KeyValueCommands.AddCommand(persistCmd)
	KeyValueCommands.AddCommand(keysCmd)
	KeyValueCommands.AddCommand(queryCmd)
	KeyValueCommands.AddCommand(clearCmd)
	KeyValueCommands.AddCommand(sizeCmd)
	KeyValueCommands.AddCommand(exportCmd)
	KeyValueCommands.AddCommand(importCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupStore builds the store from the resolved configuration
func setupStore(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	kvStore = store.New(util.GetStoreConfig())
	return nil
}

func teardownStore(_ *cobra.Command, _ []string) error {
	if kvStore == nil {
		return nil
	}
	return kvStore.Close()
}
