package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Merge every segment into one",
	Long: `Optimize runs the index's full merge, the maintenance equivalent of
INSERT INTO t(t) VALUES('optimize') against a real FTS5 table.`,
	RunE: runOptimize,
}

func init() {
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	idx, err := openIndex(cmd)
	if err != nil {
		return err
	}
	defer idx.Close()

	if err := idx.Optimize(); err != nil {
		return err
	}
	fmt.Println("optimized")
	return nil
}
