// Command fts5ctl is a small inspection and maintenance tool for an
// on-disk index built with this module: create a table definition,
// insert rows from the command line, run a query, or decode a raw
// `_data` record for debugging (spec.md §6's virtual-table surface and
// debugging aids, exposed here without a SQL engine in front of them).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fts5ctl",
	Short: "fts5ctl - inspect and drive a go-fts5 index from the command line",
	Long: `fts5ctl opens an index file directly, without a SQL engine in front of it.

Get started:
  fts5ctl create   Define a new index's columns and options
  fts5ctl insert   Add a row
  fts5ctl query    Run a query and print matches
  fts5ctl decode   Render a raw _data record as text`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("db", "d", "fts5.db", "index file path")
	rootCmd.PersistentFlags().StringSlice("columns", nil, "column names (comma-separated)")
	rootCmd.PersistentFlags().IntSlice("prefix", nil, "prefix index widths (comma-separated)")
	rootCmd.PersistentFlags().String("tokenizer", "simple", "tokenizer name")
	rootCmd.PersistentFlags().Int("pagesize", 0, "leaf page size in bytes (0 = default)")
	rootCmd.PersistentFlags().String("rank", "bm25", "rank function name")
}
