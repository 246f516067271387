package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tursodatabase/go-fts5"
	"github.com/tursodatabase/go-fts5/config"
	"github.com/tursodatabase/go-fts5/storage/bolt"
)

func configOptionsFromFlags(cmd *cobra.Command) ([]config.Option, error) {
	cols, _ := cmd.Root().PersistentFlags().GetStringSlice("columns")
	if len(cols) == 0 {
		return nil, fmt.Errorf("--columns is required")
	}
	prefixes, _ := cmd.Root().PersistentFlags().GetIntSlice("prefix")
	tokenizer, _ := cmd.Root().PersistentFlags().GetString("tokenizer")
	pageSize, _ := cmd.Root().PersistentFlags().GetInt("pagesize")
	rank, _ := cmd.Root().PersistentFlags().GetString("rank")

	opts := []config.Option{
		config.WithColumns(cols...),
		config.WithTokenizer(tokenizer),
		config.WithRank(rank),
	}
	if len(prefixes) > 0 {
		opts = append(opts, config.WithPrefix(prefixes...))
	}
	if pageSize > 0 {
		opts = append(opts, config.WithPageSize(pageSize))
	}
	return opts, nil
}

func openStore(cmd *cobra.Command) (*bolt.Store, error) {
	path, _ := cmd.Root().PersistentFlags().GetString("db")
	return bolt.Open(path)
}

// openIndex opens the index at --db with the schema named by the
// persistent column/prefix/tokenizer/rank flags, the same way a host
// would reconnect to a table it already created.
func openIndex(cmd *cobra.Command) (*fts5.Index, error) {
	copts, err := configOptionsFromFlags(cmd)
	if err != nil {
		return nil, err
	}
	store, err := openStore(cmd)
	if err != nil {
		return nil, err
	}
	idx, err := fts5.Open(store, copts)
	if err != nil {
		store.Close()
		return nil, err
	}
	return idx, nil
}
