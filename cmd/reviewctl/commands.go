package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"

	"school_reviews/internal/domain"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show pending and approved reviews",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cl, ctx, cancel, err := client(cmd)
		if err != nil {
			return err
		}
		defer cancel()
		st, err := cl.Stats(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "pending: %d  approved: %d  total: %d\n", st.PendingCount, st.ApprovedCount, st.TotalCount)
		if len(st.Pending) > 0 {
			fmt.Fprintln(out, "\nawaiting approval:")
			for _, r := range st.Pending {
				printLine(out, r)
			}
		}
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print one review as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cl, ctx, cancel, err := client(cmd)
		if err != nil {
			return err
		}
		defer cancel()
		rv, err := cl.Get(ctx, domain.ReviewID(args[0]))
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rv)
	},
}

var workers int

var approveCmd = &cobra.Command{
	Use:   "approve <id>...",
	Short: "Approve pending reviews",
	Args:  cobra.MinimumNArgs(1),
	RunE:  moderate("approve"),
}

var rejectCmd = &cobra.Command{
	Use:   "reject <id>...",
	Short: "Reject (delete) pending reviews",
	Args:  cobra.MinimumNArgs(1),
	RunE:  moderate("reject"),
}

func init() {
	approveCmd.Flags().IntVar(&workers, "workers", 2, "Concurrent requests")
	rejectCmd.Flags().IntVar(&workers, "workers", 2, "Concurrent requests")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default: the server's dated file name, - for stdout)")
	clearCmd.Flags().BoolVar(&clearYes, "yes", false, "Confirm deleting all review data")
}

// moderate runs approve or reject for every id, a few at a time.
func moderate(action string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cl, ctx, cancel, err := client(cmd)
		if err != nil {
			return err
		}
		defer cancel()

		if workers <= 0 {
			workers = 1
		}
		sem := semaphore.NewWeighted(int64(workers))
		var (
			wg     sync.WaitGroup
			mu     sync.Mutex
			failed []error
		)
		out := cmd.OutOrStdout()
		for i, id := range args {
			// acquire before launching the goroutine; release inside it
			if err := sem.Acquire(ctx, 1); err != nil {
				// running requests still report; ids never sent are listed
				wg.Wait()
				mu.Lock()
				defer mu.Unlock()
				for _, left := range args[i:] {
					failed = append(failed, fmt.Errorf("%s %s: not sent: %w", action, left, err))
				}
				return errors.Join(failed...)
			}
			wg.Add(1)
			go func(id domain.ReviewID) {
				defer wg.Done()
				defer sem.Release(1)

				call := cl.Approve
				if action == "reject" {
					call = cl.Reject
				}
				rv, err := call(ctx, id)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					log.Warn().Str("id", string(id)).Err(err).Msg(action + " failed")
					failed = append(failed, fmt.Errorf("%s %s: %w", action, id, err))
					return
				}
				fmt.Fprintf(out, "%sd %s (%s)\n", action, rv.ID, rv.FullName)
			}(domain.ReviewID(id))
		}
		wg.Wait()
		return errors.Join(failed...)
	}
}

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download every review as a JSON backup",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cl, ctx, cancel, err := client(cmd)
		if err != nil {
			return err
		}
		defer cancel()
		raw, name, err := cl.Export(ctx)
		if err != nil {
			return err
		}
		switch exportOut {
		case "-":
			_, err = cmd.OutOrStdout().Write(append(raw, '\n'))
			return err
		case "":
			exportOut = name
		}
		if err := os.WriteFile(exportOut, raw, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", exportOut)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Restore reviews from an export file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			raw []byte
			err error
		)
		if args[0] == "-" {
			raw, err = io.ReadAll(cmd.InOrStdin())
		} else {
			raw, err = os.ReadFile(args[0])
		}
		if err != nil {
			return err
		}
		cl, ctx, cancel, err := client(cmd)
		if err != nil {
			return err
		}
		defer cancel()
		st, err := cl.Import(ctx, raw)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d pending and %d approved reviews\n", st.Pending, st.Approved)
		return nil
	},
}

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all review data (approved falls back to the default reviews)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !clearYes {
			return errors.New("refusing to delete all review data without --yes")
		}
		cl, ctx, cancel, err := client(cmd)
		if err != nil {
			return err
		}
		defer cancel()
		if err := cl.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "all review data cleared")
		return nil
	},
}

func printLine(w io.Writer, r domain.Review) {
	fmt.Fprintf(w, "  [%s] %s <%s> %s, %s\n", r.ID, r.FullName, r.Email, r.Relationship, r.Timestamp.Format("2006-01-02 15:04"))
}
