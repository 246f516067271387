package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var insertCmd = &cobra.Command{
	Use:   "insert <rowid> <col>...",
	Short: "Insert a row",
	Long: `Insert tokenizes the given column values and adds them to the index
at --db, one value per --columns entry in order.

Examples:
  fts5ctl insert --db posts.db --columns title,body 1 "hello world" "first post"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runInsert,
}

func init() {
	rootCmd.AddCommand(insertCmd)
}

func runInsert(cmd *cobra.Command, args []string) error {
	rowid, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("rowid %q: %w", args[0], err)
	}
	cols := args[1:]

	idx, err := openIndex(cmd)
	if err != nil {
		return err
	}
	defer idx.Close()

	if len(cols) != len(idx.Config().Columns) {
		return fmt.Errorf("got %d column values, index has %d columns", len(cols), len(idx.Config().Columns))
	}
	if err := idx.Insert(rowid, cols); err != nil {
		return err
	}
	fmt.Printf("inserted rowid %d\n", rowid)
	return nil
}
