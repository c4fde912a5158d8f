// Command chainctl verifies the integrity chains recorded by the voice
// capture service.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"voice-capture-service/internal/integrity"
)

var dbPath string

func main() {
	root := &cobra.Command{
		Use:   "chainctl",
		Short: "Inspect and verify ingest integrity chains",
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "./data/voice-capture.db", "Path to the service database")

	root.AddCommand(verifyCmd(), listCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openChain() (*integrity.Chain, *sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return integrity.New(db), db, nil
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [ingest-id...]",
		Short: "Verify chain linkage for the given ingest ids, or all of them",
		RunE: func(cmd *cobra.Command, args []string) error {
			chain, db, err := openChain()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := context.Background()
			ids := args
			if len(ids) == 0 {
				ids, err = chain.IngestIDs(ctx)
				if err != nil {
					return err
				}
			}

			broken := 0
			for _, id := range ids {
				valid, events, err := chain.Verify(ctx, id)
				if err != nil {
					return err
				}
				status := "ok"
				if !valid {
					status = "BROKEN"
					broken++
				}
				fmt.Printf("%s  events=%d  %s\n", id, len(events), status)
			}
			if broken > 0 {
				return fmt.Errorf("%d of %d chains failed verification", broken, len(ids))
			}
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <ingest-id>",
		Short: "Print the chain events for one ingest id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chain, db, err := openChain()
			if err != nil {
				return err
			}
			defer db.Close()

			events, err := chain.Events(context.Background(), args[0])
			if err != nil {
				return err
			}
			for _, ev := range events {
				prev := ev.PrevHash
				if prev == "" {
					prev = "-"
				}
				fmt.Printf("%4d  %-22s  %s  prev=%s  %s\n",
					ev.Seq, ev.Stage, ev.ContentHash[:16], truncate(prev, 16), ev.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
