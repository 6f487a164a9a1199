package kv

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aoneahsan/strata-storage/cmd/util"
	"github.com/aoneahsan/strata-storage/lib/store"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for storage backends",
		Long:    "",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfOps              = 10000
	perfSkip             = make([]string, 0)
)

// perfResult holds the latency distribution and throughput of one test.
type perfResult struct {
	hist    metrics.Histogram
	elapsed time.Duration
	ops     int
	skipped bool
}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the set-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "ops"
	perfTestCmd.Flags().Int(key, 10000, util.WrapString("How many operations each test performs"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfOps = viper.GetInt("ops")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for storage backends")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetStoreConfig().String())
	fmt.Printf("Threads: %d, Ops per test: %d\n", perfNumThreads, perfOps)
	fmt.Println()

	fmt.Println("starting tests...")

	results := make(map[string]*perfResult)

	results["set"] = runTest("set", func(getKey func(int) string) func(int) error {
		return func(i int) error {
			return kvStore.Set(getKey(i), "test", store.SetOptions{Storage: util.GetStorageType()})
		}
	}, nil)
	printResult("set", results["set"])

	largeValue := strings.Repeat("x", perfLargeValueSizeKB*1024)
	results["set-large"] = runTest("set-large", func(getKey func(int) string) func(int) error {
		return func(i int) error {
			return kvStore.Set(getKey(i), largeValue, store.SetOptions{Storage: util.GetStorageType()})
		}
	}, nil)
	printResult("set-large", results["set-large"])

	results["get"] = runTest("get", func(getKey func(int) string) func(int) error {
		return func(i int) error {
			_, _, err := kvStore.Get(getKey(i), storeOpts())
			return err
		}
	}, seedKeys)
	printResult("get", results["get"])

	results["has"] = runTest("has", func(getKey func(int) string) func(int) error {
		return func(i int) error {
			_, err := kvStore.Has(getKey(i), storeOpts())
			return err
		}
	}, seedKeys)
	printResult("has", results["has"])

	results["has-not"] = runTest("has-not", func(func(int) string) func(int) error {
		return func(i int) error {
			key := fmt.Sprintf("%s/has-not-%d", perfKeyPrefix, i%perfKeySpread)
			_, err := kvStore.Has(key, storeOpts())
			return err
		}
	}, nil)
	printResult("has-not", results["has-not"])

	results["delete"] = runTest("delete", func(getKey func(int) string) func(int) error {
		return func(i int) error {
			return kvStore.Remove(getKey(i), storeOpts())
		}
	}, seedKeys)
	printResult("delete", results["delete"])

	results["mixed"] = runTest("mixed", func(getKey func(int) string) func(int) error {
		return func(i int) error {
			key := getKey(i)
			switch i % 4 {
			case 0: // set
				return kvStore.Set(key, "test", store.SetOptions{Storage: util.GetStorageType()})
			case 1: // get
				_, _, err := kvStore.Get(key, storeOpts())
				return err
			case 2: // has
				_, err := kvStore.Has(key, storeOpts())
				return err
			default: // delete
				return kvStore.Remove(key, storeOpts())
			}
		}
	}, seedKeys)
	printResult("mixed", results["mixed"])

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// seedKeys populates every test key so read-side tests hit existing data.
func seedKeys(iter func(func(string))) {
	iter(func(k string) {
		if err := kvStore.Set(k, "test", store.SetOptions{Storage: util.GetStorageType()}); err != nil {
			log.Printf("seeding key %q failed: %v\n", k, err)
		}
	})
}

// runTest runs one benchmark: perfOps operations spread over
// perfNumThreads workers, each operation timed into a histogram.
func runTest(name string, makeOp func(getKey func(int) string) func(int) error, seed func(func(func(string)))) *perfResult {
	if shouldSkip(name) {
		return &perfResult{skipped: true}
	}

	getKey, iter := getKeys(name)
	if seed != nil {
		seed(iter)
	}

	// cleanup after the test so the next one starts fresh
	defer iter(func(k string) {
		_ = kvStore.Remove(k, storeOpts())
	})

	op := makeOp(getKey)
	hist := metrics.NewHistogram(metrics.NewExpDecaySample(1028, 0.015))

	var wg sync.WaitGroup
	opsPerThread := perfOps / perfNumThreads
	start := time.Now()

	for t := 0; t < perfNumThreads; t++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for i := 0; i < opsPerThread; i++ {
				opStart := time.Now()
				if err := op(offset + i); err != nil {
					log.Printf("(%s) - operation failed: %v\n", name, err)
					continue
				}
				hist.Update(time.Since(opStart).Nanoseconds())
			}
		}(t * opsPerThread)
	}
	wg.Wait()

	return &perfResult{
		hist:    hist,
		elapsed: time.Since(start),
		ops:     opsPerThread * perfNumThreads,
	}
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result *perfResult) {
	if result.skipped {
		fmt.Printf("%-12sskipped\n", test)
		return
	}

	ps := result.hist.Percentiles([]float64{0.5, 0.95, 0.99})
	opsPerSec := float64(result.ops) / result.elapsed.Seconds()

	fmt.Printf("%-12sp50=%-12s p95=%-12s p99=%-12s %.0f ops/sec\n",
		test,
		time.Duration(ps[0]),
		time.Duration(ps[1]),
		time.Duration(ps[2]),
		opsPerSec,
	)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]*perfResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "Ops", "MeanNs", "P50Ns", "P95Ns", "P99Ns", "OpsPerSec", "Skipped",
		"Storage", "Policy", "Threads", "LargeValueSizeKB", "KeyCount",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		row := []string{test}

		if result.skipped {
			row = append(row, "0", "0", "0", "0", "0", "0", "true")
		} else {
			ps := result.hist.Percentiles([]float64{0.5, 0.95, 0.99})
			opsPerSec := float64(result.ops) / result.elapsed.Seconds()
			row = append(row,
				strconv.Itoa(result.ops),
				fmt.Sprintf("%.0f", result.hist.Mean()),
				fmt.Sprintf("%.0f", ps[0]),
				fmt.Sprintf("%.0f", ps[1]),
				fmt.Sprintf("%.0f", ps[2]),
				fmt.Sprintf("%.0f", opsPerSec),
				"false",
			)
		}

		row = append(row,
			string(util.GetStorageType()),
			viper.GetString("policy"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		)

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
