package kv

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aoneahsan/strata-storage/cmd/util"
	"github.com/aoneahsan/strata-storage/lib/query"
	"github.com/aoneahsan/strata-storage/lib/store"
	"github.com/spf13/cobra"
)

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Long:  util.WrapString("Sets the value for a key. The value is parsed as JSON when possible and stored as a plain string otherwise."),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := parseValue(args[1])

			ttl, _ := cmd.Flags().GetDuration("ttl")
			tags, _ := cmd.Flags().GetString("tags")

			opts := store.SetOptions{
				Storage: util.GetStorageType(),
				TTL:     ttl,
			}
			if tags != "" {
				opts.Tags = strings.Split(tags, ",")
			}
			if encrypt, _ := cmd.Flags().GetBool("encrypt-value"); encrypt {
				opts.Encrypt = store.Bool(true)
			}
			if compress, _ := cmd.Flags().GetBool("compress-value"); compress {
				opts.Compress = store.Bool(true)
			}

			if err := kvStore.Set(key, value, opts); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			sliding, _ := cmd.Flags().GetBool("sliding")
			ignore, _ := cmd.Flags().GetBool("ignore-decryption-errors")

			value, found, err := kvStore.Get(key, store.GetOptions{
				Storage:                util.GetStorageType(),
				Sliding:                sliding,
				IgnoreDecryptionErrors: ignore,
			})
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%v, value=%s\n", key, found, formatValue(value))
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := kvStore.Remove(key, storeOpts()); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
	hasCmd = &cobra.Command{
		Use:   "has [key]",
		Short: "Checks if a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			found, err := kvStore.Has(key, storeOpts())
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%t\n", key, found)
			return nil
		},
	}
	ttlCmd = &cobra.Command{
		Use:   "ttl [key]",
		Short: "Shows the remaining time to live of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			remaining, has, err := kvStore.TTL(key, storeOpts())
			if err != nil {
				return err
			}
			if !has {
				fmt.Printf("key=%s, no expiry\n", key)
				return nil
			}
			fmt.Printf("key=%s, ttl=%s\n", key, remaining)
			return nil
		},
	}
	extendCmd = &cobra.Command{
		Use:   "extend [key] [duration]",
		Short: "Extends the time to live of a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			by, err := time.ParseDuration(args[1])
			if err != nil {
				return fmt.Errorf("duration must be like 30s or 5m: %w", err)
			}
			if err := kvStore.ExtendTTL(key, by, storeOpts()); err != nil {
				return err
			}
			fmt.Println("extend successfully")
			return nil
		},
	}
	persistCmd = &cobra.Command{
		Use:   "persist [key]",
		Short: "Removes the expiry of a key so it never expires",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := kvStore.Persist(key, storeOpts()); err != nil {
				return err
			}
			fmt.Println("persist successfully")
			return nil
		},
	}
	keysCmd = &cobra.Command{
		Use:   "keys [pattern]",
		Short: "Lists keys, optionally filtered by a glob pattern",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := ""
			if len(args) == 1 {
				pattern = args[0]
			}
			keys, err := kvStore.Keys(pattern, storeOpts())
			if err != nil {
				return err
			}
			for _, key := range keys {
				fmt.Println(key)
			}
			fmt.Printf("(%d keys)\n", len(keys))
			return nil
		},
	}
	queryCmd = &cobra.Command{
		Use:   "query [condition]",
		Short: "Finds keys whose values match a JSON condition",
		Long:  util.WrapString(`Finds keys whose values match a MongoDB-style JSON condition, e.g. '{"age": {"$gte": 18}}'. With --envelope the condition matches envelope fields (tags, metadata, created, ...) instead of the value.`),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cond query.Condition
			if err := json.Unmarshal([]byte(args[0]), &cond); err != nil {
				return fmt.Errorf("condition must be a JSON object: %w", err)
			}
			envelope, _ := cmd.Flags().GetBool("envelope")

			keys, err := kvStore.Query(cond, store.QueryOptions{
				Storage:  util.GetStorageType(),
				Envelope: envelope,
			})
			if err != nil {
				return err
			}
			for _, key := range keys {
				fmt.Println(key)
			}
			fmt.Printf("(%d matches)\n", len(keys))
			return nil
		},
	}
	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Removes all keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := kvStore.Clear(storeOpts()); err != nil {
				return err
			}
			fmt.Println("clear successfully")
			return nil
		},
	}
	sizeCmd = &cobra.Command{
		Use:   "size",
		Short: "Reports the number of stored keys and their payload size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := kvStore.Size(storeOpts())
			if err != nil {
				return err
			}
			fmt.Printf("count=%d, bytes=%d\n", info.Count, info.Bytes)
			return nil
		},
	}
	exportCmd = &cobra.Command{
		Use:   "export [file]",
		Short: "Exports all entries as JSON to a file or stdout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := kvStore.Export("", storeOpts())
			if err != nil {
				return err
			}
			if len(args) == 0 {
				fmt.Println(string(data))
				return nil
			}
			if err := os.WriteFile(args[0], data, 0644); err != nil {
				return err
			}
			fmt.Printf("exported to %s\n", args[0])
			return nil
		},
	}
	importCmd = &cobra.Command{
		Use:   "import [file]",
		Short: "Imports entries from a JSON export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			imported, err := kvStore.Import(data, storeOpts())
			if err != nil {
				return err
			}
			fmt.Printf("imported %d keys\n", imported)
			return nil
		},
	}
)

func init() {
	setCmd.Flags().Duration("ttl", 0, util.WrapString("Time to live for the value (e.g. 30s, 5m). Zero stores the value without expiry"))
	setCmd.Flags().String("tags", "", util.WrapString("Comma-separated tags attached to the entry"))
	setCmd.Flags().Bool("encrypt-value", false, util.WrapString("Encrypt this value regardless of the store default"))
	setCmd.Flags().Bool("compress-value", false, util.WrapString("Compress this value regardless of the store default"))

	getCmd.Flags().Bool("sliding", false, util.WrapString("Renew the value's TTL on this read"))
	getCmd.Flags().Bool("ignore-decryption-errors", false, util.WrapString("Report a miss instead of an error when decryption fails"))

	queryCmd.Flags().Bool("envelope", false, util.WrapString("Match against envelope fields instead of the value"))
}

// storeOpts returns the read options shared by the simple subcommands.
func storeOpts() store.GetOptions {
	return store.GetOptions{Storage: util.GetStorageType()}
}

// parseValue interprets the CLI argument as JSON if possible so that
// `set age 42` stores a number and `set user '{"a":1}'` stores an object.
func parseValue(raw string) any {
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return raw
	}
	return value
}

func formatValue(value any) string {
	if value == nil {
		return "<nil>"
	}
	if raw, ok := value.([]byte); ok {
		return fmt.Sprintf("<%d raw bytes>", len(raw))
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(data)
}
