package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gogs.mikescher.com/BlackForestBytes/goext/langext"

	"github.com/offlinehacker/gobankid/bankid"
	"github.com/offlinehacker/gobankid/x"
)

var (
	endUserIP      string
	personalNumber string
	visibleText    string
	returnURL      string
	callInitiator  string
	recipient      string
	amount         string
	currency       string
	riskFlags      []string
	pollAfterStart bool
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Start an authentication order",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := bankid.NewAuthConfig(resolveEndUserIP())
		if visibleText != "" {
			c = c.WithUserVisibleText(visibleText)
		}
		if returnURL != "" {
			c = c.WithReturnURL(returnURL)
		}
		if req, ok := requirementFromFlags(); ok {
			c = c.WithRequirement(req)
		}

		return startAndReport(cmd.Context(), func(ctx context.Context, s *bankid.Session) (bankid.OrderResponse, error) {
			return s.Auth(ctx, c)
		})
	},
}

var signCmd = &cobra.Command{
	Use:   "sign <text>",
	Short: "Start a signing order for the given text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := bankid.NewSignConfig(resolveEndUserIP(), bankid.EncodeVisibleData(args[0]))
		if returnURL != "" {
			c = c.WithReturnURL(returnURL)
		}
		if req, ok := requirementFromFlags(); ok {
			c = c.WithRequirement(req)
		}

		return startAndReport(cmd.Context(), func(ctx context.Context, s *bankid.Session) (bankid.OrderResponse, error) {
			return s.Sign(ctx, c)
		})
	},
}

var paymentCmd = &cobra.Command{
	Use:   "payment",
	Short: "Start a card payment order",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := bankid.NewPaymentConfig(resolveEndUserIP(), bankid.CardPayment(recipient, amount, currency))
		if len(riskFlags) > 0 {
			c = c.WithRiskFlags(riskFlags...)
		}
		if visibleText != "" {
			c = c.WithUserVisibleData(bankid.EncodeVisibleData(visibleText))
		}
		if returnURL != "" {
			c = c.WithReturnURL(returnURL)
		}

		return startAndReport(cmd.Context(), func(ctx context.Context, s *bankid.Session) (bankid.OrderResponse, error) {
			return s.Payment(ctx, c)
		})
	},
}

var phoneAuthCmd = &cobra.Command{
	Use:   "phone-auth",
	Short: "Start an authentication order during a phone call",
	RunE: func(cmd *cobra.Command, args []string) error {
		initiator, err := parseCallInitiator()
		if err != nil {
			return err
		}

		c := bankid.NewPhoneAuthConfig(initiator)
		if personalNumber != "" {
			c = c.WithPersonalNumber(personalNumber)
		}
		if visibleText != "" {
			c = c.WithUserVisibleData(bankid.EncodeVisibleData(visibleText))
		}

		return startAndReport(cmd.Context(), func(ctx context.Context, s *bankid.Session) (bankid.OrderResponse, error) {
			return s.PhoneAuth(ctx, c)
		})
	},
}

var phoneSignCmd = &cobra.Command{
	Use:   "phone-sign <text>",
	Short: "Start a signing order during a phone call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		initiator, err := parseCallInitiator()
		if err != nil {
			return err
		}

		c := bankid.NewPhoneSignConfig(initiator, bankid.EncodeVisibleData(args[0]))
		if personalNumber != "" {
			c = c.WithPersonalNumber(personalNumber)
		}

		return startAndReport(cmd.Context(), func(ctx context.Context, s *bankid.Session) (bankid.OrderResponse, error) {
			return s.PhoneSign(ctx, c)
		})
	},
}

var otherPaymentCmd = &cobra.Command{
	Use:   "other-payment",
	Short: "Start a payment order initiated outside the app (e.g. by phone)",
	RunE: func(cmd *cobra.Command, args []string) error {
		initiator, err := parseCallInitiator()
		if err != nil {
			return err
		}

		c := bankid.NewOtherPaymentConfig(initiator, bankid.CardPayment(recipient, amount, currency))
		if personalNumber != "" {
			c = c.WithPersonalNumber(personalNumber)
		}
		if len(riskFlags) > 0 {
			c = c.WithRiskFlags(riskFlags...)
		}

		return startAndReport(cmd.Context(), func(ctx context.Context, s *bankid.Session) (bankid.OrderResponse, error) {
			return s.OtherPayment(ctx, c)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{authCmd, signCmd, paymentCmd} {
		c.Flags().StringVar(&endUserIP, "ip", "", "End user IP address (default: BANKID_END_USER_IP)")
		c.Flags().StringVar(&returnURL, "return-url", "", "URL the app returns to after the order")
	}
	for _, c := range []*cobra.Command{authCmd, signCmd} {
		c.Flags().StringVar(&personalNumber, "personal-number", "", "Only accept this personal number")
	}
	for _, c := range []*cobra.Command{phoneAuthCmd, phoneSignCmd, otherPaymentCmd} {
		c.Flags().StringVar(&callInitiator, "call-initiator", string(bankid.CallInitiatorRP), "Who initiated the call (user|RP)")
		c.Flags().StringVar(&personalNumber, "personal-number", "", "Personal number of the user")
	}
	for _, c := range []*cobra.Command{paymentCmd, otherPaymentCmd} {
		c.Flags().StringVar(&recipient, "recipient", "", "Name of the payment recipient")
		c.Flags().StringVar(&amount, "amount", "", "Amount, e.g. 100,00")
		c.Flags().StringVar(&currency, "currency", "SEK", "Currency code")
		c.Flags().StringSliceVar(&riskFlags, "risk-flag", nil, "Risk flag (repeatable)")
		_ = c.MarkFlagRequired("recipient")
		_ = c.MarkFlagRequired("amount")
	}
	for _, c := range []*cobra.Command{authCmd, paymentCmd, phoneAuthCmd} {
		c.Flags().StringVar(&visibleText, "text", "", "Text shown to the user")
	}
	for _, c := range []*cobra.Command{authCmd, signCmd, paymentCmd, phoneAuthCmd, phoneSignCmd, otherPaymentCmd} {
		c.Flags().BoolVar(&pollAfterStart, "poll", false, "Collect the order until it completes or fails")
		rootCmd.AddCommand(c)
	}
}

func resolveEndUserIP() string {
	return x.Coalesce(endUserIP, cfg.EndUserIP)
}

func requirementFromFlags() (bankid.Requirement, bool) {
	if personalNumber == "" {
		return bankid.Requirement{}, false
	}
	return bankid.Requirement{PersonalNumber: langext.Ptr(personalNumber)}, true
}

func parseCallInitiator() (bankid.CallInitiator, error) {
	switch strings.ToLower(callInitiator) {
	case "user":
		return bankid.CallInitiatorUser, nil
	case "rp":
		return bankid.CallInitiatorRP, nil
	}
	return "", fmt.Errorf("invalid call initiator '%s' (user|RP)", callInitiator)
}

func startAndReport(ctx context.Context, start func(context.Context, *bankid.Session) (bankid.OrderResponse, error)) error {
	session, err := newSession()
	if err != nil {
		return err
	}
	defer session.Close()

	order, err := start(ctx, session)
	if err != nil {
		return err
	}

	if err := printJSON(order); err != nil {
		return err
	}

	if !pollAfterStart {
		return nil
	}

	result, err := pollOrder(ctx, session, order)
	if err != nil {
		return err
	}
	return printJSON(result)
}
