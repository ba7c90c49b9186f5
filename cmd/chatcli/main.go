package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	appbootstrap "github.com/wolfman30/orderdesk/internal/app/bootstrap"
	"github.com/wolfman30/orderdesk/internal/chatbot"
	appconfig "github.com/wolfman30/orderdesk/internal/config"
	"github.com/wolfman30/orderdesk/pkg/logging"
)

const askTimeout = 30 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file found, using environment variables")
	}
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chatcli",
		Short:         "Order chatbot developer CLI",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().Bool("json", false, "output JSON")
	root.AddCommand(newClassifyCmd(), newAskCmd())
	return root
}

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <message>",
		Short: "Print the intent detected for a message (offline)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			intent := chatbot.Classify(strings.Join(args, " "))
			asJSON, _ := cmd.Flags().GetBool("json")
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]string{
					"intent":      string(intent.Kind),
					"orderNumber": intent.OrderNumber,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "intent: %s\n", intent.Kind)
			if intent.HasOrderNumber() {
				fmt.Fprintf(out, "order:  #%s\n", intent.OrderNumber)
			}
			return nil
		},
	}
}

type askOptions struct {
	tenantID    string
	agencyID    string
	customerID  string
	phone       string
	orderNumber string
}

func newAskCmd() *cobra.Command {
	var opts askOptions
	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Run one message through the chatbot against the configured database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(opts.tenantID) == "" {
				return errors.New("--tenant is required")
			}
			cfg := appconfig.Load()
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required")
			}
			logger := logging.New(cfg.LogLevel)

			ctx, cancel := context.WithTimeout(cmd.Context(), askTimeout)
			defer cancel()

			pool, err := appbootstrap.BuildPostgresPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			engine := appbootstrap.BuildEngine(cfg, appbootstrap.BuildOrderStore(pool, cfg, logger), nil, logger)
			result, err := engine.Handle(ctx, strings.Join(args, " "), chatbot.ResolutionContext{
				TenantID:      opts.tenantID,
				AgencyID:      opts.agencyID,
				Role:          "staff",
				CustomerID:    opts.customerID,
				CustomerPhone: opts.phone,
				OrderNumber:   opts.orderNumber,
			})
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")
			return printResult(cmd.OutOrStdout(), result, asJSON)
		},
	}
	cmd.Flags().StringVar(&opts.tenantID, "tenant", "", "tenant id")
	cmd.Flags().StringVar(&opts.agencyID, "agency", "", "agency id")
	cmd.Flags().StringVar(&opts.customerID, "customer-id", "", "customer id")
	cmd.Flags().StringVar(&opts.phone, "phone", "", "customer phone")
	cmd.Flags().StringVar(&opts.orderNumber, "order", "", "order number")
	return cmd
}

func printResult(out io.Writer, result *chatbot.Result, asJSON bool) error {
	if asJSON {
		return writeJSON(out, result)
	}
	fmt.Fprintf(out, "[%s]\n%s\n", result.IntentType, result.ResponseText)
	if len(result.Suggestions) > 0 {
		fmt.Fprintln(out, "\nSuggestions :")
		for _, s := range result.Suggestions {
			fmt.Fprintf(out, "  > %s\n", s)
		}
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
