package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tursodatabase/go-fts5"
)

var queryCmd = &cobra.Command{
	Use:   "query <term>...",
	Short: "Run a query and print matches",
	Long: `Query ANDs one phrase per word (spec.md's unquoted multi-word MATCH
semantics) and prints the matching rowids, one per line. A trailing "*"
on a word makes it a prefix match.

Examples:
  fts5ctl query --db posts.db --columns title,body quick brown
  fts5ctl query --db posts.db --columns title,body --rank --limit 5 al*`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().Int("column", -1, "restrict the query to one column index (-1 = any)")
	queryCmd.Flags().Bool("rank", false, "order matches by rank instead of rowid")
	queryCmd.Flags().Bool("desc", false, "reverse rowid order (ignored with --rank)")
	queryCmd.Flags().Int("limit", 0, "cap the number of rows returned (0 = unlimited)")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	col, _ := cmd.Flags().GetInt("column")
	byRank, _ := cmd.Flags().GetBool("rank")
	desc, _ := cmd.Flags().GetBool("desc")
	limit, _ := cmd.Flags().GetInt("limit")

	q := fts5.Query{}
	for _, word := range args {
		term := fts5.T(word)
		if strings.HasSuffix(word, "*") {
			term = fts5.PrefixT(strings.TrimSuffix(word, "*"))
		}
		q.Phrases = append(q.Phrases, fts5.Phrase{Terms: []fts5.Term{term}, Column: col})
	}

	idx, err := openIndex(cmd)
	if err != nil {
		return err
	}
	defer idx.Close()

	cur, err := idx.Query(q, fts5.QueryOptions{OrderByRank: byRank, Desc: desc, Limit: limit})
	if err != nil {
		return err
	}
	defer cur.Close()

	n := 0
	for !cur.Eof() {
		rowid := cur.Rowid()
		if byRank {
			rank, err := cur.Rank()
			if err != nil {
				return err
			}
			fmt.Printf("%d\t%.6f\n", rowid, rank)
		} else {
			fmt.Println(rowid)
		}
		n++
		if err := cur.Next(); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d match(es)\n", n)
	return nil
}
