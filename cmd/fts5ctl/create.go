package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tursodatabase/go-fts5"
	"github.com/tursodatabase/go-fts5/storage/bolt"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new index file",
	Long: `Create initializes a fresh index at --db with the columns named by
--columns, persisting its structure and averages records.

Examples:
  fts5ctl create --db posts.db --columns title,body
  fts5ctl create --db posts.db --columns title,body --prefix 2,3`,
	RunE: runCreate,
}

func init() {
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	copts, err := configOptionsFromFlags(cmd)
	if err != nil {
		return err
	}
	path, _ := cmd.Root().PersistentFlags().GetString("db")
	store, err := bolt.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	idx, err := fts5.Create(store, copts)
	if err != nil {
		store.Close()
		return err
	}
	defer idx.Close()

	fmt.Printf("created index at %s with columns %v\n", path, idx.Config().Columns)
	return nil
}
