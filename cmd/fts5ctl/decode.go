package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tursodatabase/go-fts5"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <rowid>",
	Short: "Render a raw _data record as text",
	Long: `Decode fetches the block stored at rowid in the _data table and
renders it as the structure record, averages record, a leaf page, or an
interior node, whichever rowid's bitfield names.

Examples:
  fts5ctl decode --db posts.db --columns title,body 10
  fts5ctl decode --db posts.db --columns title,body 1`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	rowid, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("rowid %q: %w", args[0], err)
	}
	cols, _ := cmd.Root().PersistentFlags().GetStringSlice("columns")

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	blob, err := store.Data().Get(rowid)
	if err != nil {
		return err
	}
	text, err := fts5.DecodeRecord(rowid, blob, len(cols))
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}
