package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"
	"tourbook/src/boot"
	"tourbook/src/common"
	"tourbook/src/config"
	"tourbook/src/db"
	"tourbook/src/lib"
	"tourbook/src/middlewares"
	"tourbook/src/models"
	"tourbook/src/repository"
	"tourbook/src/types"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var Version = "dev"

const shutdownTimeout = 10 * time.Second

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "tourbook",
		Short:   "Tour booking and payment API",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnv()
		},
		RunE: runServe,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(reconcileCmd())
	root.AddCommand(refundCmd())
	root.AddCommand(completeToursCmd())
	root.AddCommand(tokenCmd())

	return root
}

// loadEnv reads .env from the working directory when running locally.
func loadEnv() error {
	if os.Getenv("API_ENV") != string(types.Local) {
		return nil
	}
	cwd, _ := os.Getwd()
	if err := godotenv.Load(path.Join(cwd, ".env")); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}
	config.Reload()
	return nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	initLogger()
	conn := boot.InitDb()
	svc, closeBroker := boot.InitBookingService(ctx, conn)
	defer closeBroker()
	boot.InitScheduler(svc)
	defer boot.StopScheduler()

	srv := &http.Server{
		Addr:              ":" + config.Port(),
		Handler:           newServer(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() {
		lib.GetLogger().Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}
	lib.GetLogger().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := models.Migrate(db.GetDb()); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Println("schema is up to date")
			return nil
		},
	}
}

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Re-read a payment intent from Stripe and apply its status",
		RunE: func(cmd *cobra.Command, args []string) error {
			intentID, _ := cmd.Flags().GetString("intent")
			svc, closeBroker := boot.InitBookingService(cmd.Context(), boot.InitDb())
			defer closeBroker()
			result, err := svc.ConfirmPayment(cmd.Context(), intentID)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringP("intent", "i", "", "Payment intent id")
	cmd.MarkFlagRequired("intent")
	return cmd
}

// refundCmd issues a refund by hand, e.g. after a cancellation whose
// automatic refund failed.
func refundCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refund",
		Short: "Refund a payment in full or in part",
		RunE: func(cmd *cobra.Command, args []string) error {
			intentID, _ := cmd.Flags().GetString("intent")
			reason, _ := cmd.Flags().GetString("reason")
			var amount *float64
			if cmd.Flags().Changed("amount") {
				a, _ := cmd.Flags().GetFloat64("amount")
				amount = &a
			}
			svc, closeBroker := boot.InitBookingService(cmd.Context(), boot.InitDb())
			defer closeBroker()
			result, err := svc.RefundPayment(cmd.Context(), intentID, amount, reason)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringP("intent", "i", "", "Payment intent id")
	cmd.Flags().Float64P("amount", "a", 0, "Amount to refund; the remaining balance when omitted")
	cmd.Flags().StringP("reason", "r", "", "Refund reason")
	cmd.MarkFlagRequired("intent")
	return cmd
}

func completeToursCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete-tours",
		Short: "Mark confirmed bookings of finished tours as completed",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeBroker := boot.InitBookingService(cmd.Context(), boot.InitDb())
			defer closeBroker()
			n, err := common.CompleteFinishedBookings(cmd.Context(), svc)
			if err != nil {
				return err
			}
			fmt.Printf("completed %d bookings\n", n)
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token for a user (development only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !config.IsDevelopment() {
				return errors.New("tokens can only be issued in local or development")
			}
			userID, _ := cmd.Flags().GetUint("user")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			user, err := repository.NewUserRepository(db.GetDb()).FindByID(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("user %d: %w", userID, err)
			}
			token, err := middlewares.IssueToken(user, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().UintP("user", "u", 0, "User id")
	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	cmd.MarkFlagRequired("user")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
