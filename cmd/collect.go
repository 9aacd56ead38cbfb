package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/offlinehacker/gobankid/bankid"
	"github.com/offlinehacker/gobankid/qrcode"
)

var collectCmd = &cobra.Command{
	Use:   "collect <orderRef>",
	Short: "Collect the status of an order once",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := newSession()
		if err != nil {
			return err
		}
		defer session.Close()

		resp, err := session.Collect(cmd.Context(), bankid.NewCollectConfig(args[0]))
		if err != nil {
			return err
		}
		return printJSON(resp)
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <orderRef>",
	Short: "Cancel an order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := newSession()
		if err != nil {
			return err
		}
		defer session.Close()

		if _, err := session.Cancel(cmd.Context(), bankid.NewCancelConfig(args[0])); err != nil {
			return err
		}

		fmt.Printf("Order %s cancelled\n", args[0])
		return nil
	},
}

var pollCmd = &cobra.Command{
	Use:   "poll <orderRef>",
	Short: "Collect an order until it completes or fails",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := newSession()
		if err != nil {
			return err
		}
		defer session.Close()

		resp, err := pollOrder(cmd.Context(), session, bankid.OrderResponse{OrderRef: args[0]})
		if err != nil {
			return err
		}
		return printJSON(resp)
	},
}

func init() {
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(pollCmd)
}

// pollOrder collects order every POLL_INTERVAL until it is done. Orders that
// carry a QR seed are given up, and cancelled, once ORDER_TTL has passed.
func pollOrder(ctx context.Context, session *bankid.Session, order bankid.OrderResponse) (bankid.CollectResponse, error) {
	limiter := rate.NewLimiter(rate.Every(cfg.PollInterval), 1)

	registry := qrcode.NewRegistry(qrcode.Lifetime(cfg.OrderTTL, nil))
	_, tracked := registry.Register(qrcode.SeedFrom(order, time.Now()))
	defer registry.Evict(order.OrderRef)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return bankid.CollectResponse{}, fmt.Errorf("polling aborted: %w", err)
		}

		if tracked {
			if _, ok := registry.Lookup(order.OrderRef); !ok {
				log.Warn("order expired, cancelling", slog.String("orderRef", order.OrderRef))
				if _, err := session.Cancel(ctx, bankid.NewCancelConfig(order.OrderRef)); err != nil {
					return bankid.CollectResponse{}, err
				}
				return bankid.CollectResponse{}, fmt.Errorf("order %s expired after %s", order.OrderRef, cfg.OrderTTL)
			}
		}

		resp, err := session.Collect(ctx, bankid.NewCollectConfig(order.OrderRef))
		if err != nil {
			return bankid.CollectResponse{}, err
		}

		log.Info("collected",
			slog.String("orderRef", resp.OrderRef),
			slog.String("status", string(resp.Status)),
			slog.String("hintCode", resp.HintCode))

		if resp.Done() {
			return resp, nil
		}
	}
}
