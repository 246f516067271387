package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tursodatabase/go-fts5"
)

var rowidCmd = &cobra.Command{
	Use:   "rowid",
	Short: "Compose a _data rowid from its component fields",
	Long: `Rowid builds the _data rowid for the given segment/page coordinates,
or one of the two reserved metadata rowids when --kind is "averages" or
"structure" — the inverse of decode.

Examples:
  fts5ctl rowid --kind structure
  fts5ctl rowid --kind page --segid 3 --height 0 --pgno 12`,
	RunE: runRowid,
}

func init() {
	rowidCmd.Flags().String("kind", "page", `rowid kind: "page", "averages", or "structure"`)
	rowidCmd.Flags().Uint16("segid", 0, "segment id (kind=page)")
	rowidCmd.Flags().Bool("dlidx", false, "doclist-index page (kind=page)")
	rowidCmd.Flags().Uint8("height", 0, "b-tree height, 0 = leaf (kind=page)")
	rowidCmd.Flags().Uint32("pgno", 0, "page number within the segment (kind=page)")
	rootCmd.AddCommand(rowidCmd)
}

func runRowid(cmd *cobra.Command, args []string) error {
	kind, _ := cmd.Flags().GetString("kind")
	segid, _ := cmd.Flags().GetUint16("segid")
	dlidx, _ := cmd.Flags().GetBool("dlidx")
	height, _ := cmd.Flags().GetUint8("height")
	pgno, _ := cmd.Flags().GetUint32("pgno")

	r, err := fts5.ComposeRowid(kind, segid, dlidx, height, pgno)
	if err != nil {
		return err
	}
	fmt.Println(r)
	return nil
}
