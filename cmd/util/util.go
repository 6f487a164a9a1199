package util

import (
	"strings"
	"time"

	"github.com/aoneahsan/strata-storage/lib/storage"
	"github.com/aoneahsan/strata-storage/lib/store"
	"github.com/aoneahsan/strata-storage/lib/strategy"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupStoreFlags adds the common store configuration flags to a command
func SetupStoreFlags(cmd *cobra.Command) {
	key := "storage"
	cmd.PersistentFlags().String(key, "", WrapString("Pin all operations to one backend (memory, localStorage, indexedDB, sqlite). Empty lets the selection policy decide"))

	key = "policy"
	cmd.PersistentFlags().String(key, "performance", WrapString("Selection policy used when no backend is pinned (performance, persistence, security, capacity)"))

	key = "preferred"
	cmd.PersistentFlags().String(key, "", WrapString("Restrict policy selection to this comma-separated allow-list of backends"))

	key = "chain-length"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many fallback backends the selection policy may try"))

	key = "namespace"
	cmd.PersistentFlags().String(key, "strata", WrapString("Namespace that isolates this store's keys from other stores sharing the same backends"))

	key = "path"
	cmd.PersistentFlags().String(key, "", WrapString("Directory for persistent backends. Defaults to the user cache directory"))

	key = "codec"
	cmd.PersistentFlags().String(key, "json", WrapString("Envelope codec for persistent backends (json, gob, binary)"))

	key = "password"
	cmd.PersistentFlags().String(key, "", WrapString("Default password for encrypted values"))

	key = "encrypt"
	cmd.PersistentFlags().Bool(key, false, WrapString("Encrypt all written values with the configured password"))

	key = "compress"
	cmd.PersistentFlags().Bool(key, false, WrapString("Compress all written values larger than the compression threshold"))

	key = "compression"
	cmd.PersistentFlags().String(key, "gzip", WrapString("Compression algorithm (gzip, s2)"))

	key = "compression-threshold"
	cmd.PersistentFlags().Int(key, 1024, WrapString("Values below this size (in bytes) are never compressed"))

	key = "sweep-interval"
	cmd.PersistentFlags().Duration(key, time.Minute, WrapString("How often the background sweeper scans for expired values"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("strata")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetStoreConfig reads the store configuration from viper
func GetStoreConfig() store.Config {
	var preferred []storage.Type
	if raw := viper.GetString("preferred"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			preferred = append(preferred, storage.Type(strings.TrimSpace(name)))
		}
	}

	return store.Config{
		Namespace:            viper.GetString("namespace"),
		Path:                 viper.GetString("path"),
		Codec:                viper.GetString("codec"),
		DefaultStorage:       storage.Type(viper.GetString("storage")),
		Policy:               strategy.ParsePolicy(viper.GetString("policy")),
		Preferred:            preferred,
		ChainLength:          viper.GetInt("chain-length"),
		Password:             viper.GetString("password"),
		Encrypt:              viper.GetBool("encrypt"),
		Compress:             viper.GetBool("compress"),
		Compression:          viper.GetString("compression"),
		CompressionThreshold: viper.GetInt("compression-threshold"),
		SweepInterval:        viper.GetDuration("sweep-interval"),
	}
}

// GetStorageType returns the backend pinned via the --storage flag, or
// empty when the selection policy should decide.
func GetStorageType() storage.Type {
	return storage.Type(viper.GetString("storage"))
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
