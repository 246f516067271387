package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tursodatabase/go-fts5/internal/debugsrv"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a debug HTTP surface (/healthz, /stats, /optimize) over the index",
	Long: `Serve opens the index at --db and exposes it over HTTP for operational
inspection: GET /healthz, GET /stats, POST /optimize. Shuts down
gracefully on SIGINT/SIGTERM.

Examples:
  fts5ctl serve --db posts.db --columns title,body --addr :8080`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "address to listen on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")

	idx, err := openIndex(cmd)
	if err != nil {
		return err
	}
	defer idx.Close()

	srv := debugsrv.New(idx)
	fmt.Printf("listening on %s\n", addr)
	return srv.Listen(addr)
}
