// Command reviewctl moderates reviews on a running API.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"school_reviews/internal/adapters/adminclient"
	"school_reviews/internal/adapters/observability"
	"school_reviews/internal/shared"
)

var (
	apiURL  string
	timeout time.Duration
	rps     int

	// defaultAPIURL is replaced from REVIEWS_API_URL in main.
	defaultAPIURL = "http://localhost:8080"
)

var rootCmd = &cobra.Command{
	Use:           "reviewctl",
	Short:         "Moderate school reviews",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "addr", "", "Review API base URL (default $REVIEWS_API_URL)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")
	rootCmd.PersistentFlags().IntVar(&rps, "rps", 5, "Client-side request rate limit")

	rootCmd.AddCommand(statsCmd, getCmd, approveCmd, rejectCmd, exportCmd, importCmd, clearCmd)
}

func main() {
	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv)
	defaultAPIURL = cfg.APIURL

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// client builds the admin client and a context bounded by --timeout.
func client(cmd *cobra.Command) (*adminclient.Client, context.Context, context.CancelFunc, error) {
	base := apiURL
	if base == "" {
		base = defaultAPIURL
	}
	cl, err := adminclient.New(base, rps)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	return cl, ctx, cancel, nil
}
