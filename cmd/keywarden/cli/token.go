package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/keywarden/go-keywarden/authority"
	"github.com/keywarden/go-keywarden/did"
	"github.com/keywarden/go-keywarden/ucan"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage capability tokens",
		Long:  "Create, verify, revoke, delegate and inspect capability tokens.",
	}

	cmd.AddCommand(newTokenCreateCmd())
	cmd.AddCommand(newTokenVerifyCmd())
	cmd.AddCommand(newTokenRevokeCmd())
	cmd.AddCommand(newTokenDelegateCmd())
	cmd.AddCommand(newTokenShowCmd())

	return cmd
}

// parseCapabilities turns resource#action pairs into capabilities.
func parseCapabilities(pairs []string) ([]ucan.Capability, error) {
	caps := make([]ucan.Capability, 0, len(pairs))
	for _, pair := range pairs {
		resource, action, ok := strings.Cut(pair, "#")
		if !ok {
			return nil, fmt.Errorf("invalid capability %q, want resource#action", pair)
		}
		caps = append(caps, ucan.NewCapability(resource, action, nil))
	}
	return caps, nil
}

func newTokenCreateCmd() *cobra.Command {
	var (
		issuer   string
		audience string
		caps     []string
		ttl      time.Duration
		proof    string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue a signed capability token",
		Example: `  keywarden token create --issuer did:key:z6Mk... --audience did:key:z6Mk... \
    --capability key1#encrypt --capability key1#decrypt --ttl 1h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			iss, err := did.Parse(issuer)
			if err != nil {
				return fmt.Errorf("parse issuer: %w", err)
			}
			aud, err := did.Parse(audience)
			if err != nil {
				return fmt.Errorf("parse audience: %w", err)
			}
			capabilities, err := parseCapabilities(caps)
			if err != nil {
				return err
			}

			var opts []authority.TokenOption
			if ttl != 0 {
				opts = append(opts, authority.WithTTL(ttl))
			}
			if proof != "" {
				opts = append(opts, authority.WithProof(proof))
			}

			token, err := app.authority.CreateToken(iss, aud, capabilities, opts...)
			if err != nil {
				return fmt.Errorf("create token: %w", err)
			}

			fmt.Printf("Token ID: %s\n", token.ID)
			fmt.Printf("Expires:  %s\n", time.Unix(int64(token.ExpiresAt), 0).UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&issuer, "issuer", "", "Issuer DID (required)")
	cmd.Flags().StringVar(&audience, "audience", "", "Audience DID (required)")
	cmd.Flags().StringArrayVar(&caps, "capability", nil, "Capability as resource#action, repeatable (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default from config)")
	cmd.Flags().StringVar(&proof, "proof", "", "Parent token id establishing the delegation chain")
	cmd.MarkFlagRequired("issuer")
	cmd.MarkFlagRequired("audience")
	cmd.MarkFlagRequired("capability")

	return cmd
}

func newTokenVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <token-id>",
		Short: "Verify a token",
		Long:  "Check a token against expiry, revocation, signature and its delegation chain.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ok, reason := app.authority.VerifyToken(args[0])
			if ok {
				fmt.Println("valid")
				return nil
			}
			return fmt.Errorf("invalid: %s", reason)
		},
	}

	return cmd
}

func newTokenRevokeCmd() *cobra.Command {
	var (
		revoker string
		reason  string
	)

	cmd := &cobra.Command{
		Use:   "revoke <token-id>",
		Short: "Revoke a token",
		Long:  "Permanently invalidate a token. Only its issuer or audience may revoke it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			rev, err := did.Parse(revoker)
			if err != nil {
				return fmt.Errorf("parse revoker: %w", err)
			}

			revoked, err := app.guard.RevokeKeyCapability(cmd.Context(), args[0], rev, reason)
			if err != nil {
				return fmt.Errorf("revoke token: %w", err)
			}
			if !revoked {
				return fmt.Errorf("token not revoked: unknown token or revoker is neither issuer nor audience")
			}
			fmt.Println("revoked")
			return nil
		},
	}

	cmd.Flags().StringVar(&revoker, "revoker", "", "Revoker DID (required)")
	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded with the revocation")
	cmd.MarkFlagRequired("revoker")

	return cmd
}

func newTokenDelegateCmd() *cobra.Command {
	var (
		delegator string
		delegatee string
		keyID     string
		action    string
		ttl       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "delegate",
		Short: "Delegate a capability on an encryption key",
		Long: `Issue a single-capability token from delegator to delegatee. The delegator
must currently hold both the delegated action and the delegate capability
on the key.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			from, err := did.Parse(delegator)
			if err != nil {
				return fmt.Errorf("parse delegator: %w", err)
			}
			to, err := did.Parse(delegatee)
			if err != nil {
				return fmt.Errorf("parse delegatee: %w", err)
			}

			var opts []authority.TokenOption
			if ttl != 0 {
				opts = append(opts, authority.WithTTL(ttl))
			}

			tokenID, err := app.guard.DelegateKeyCapability(cmd.Context(), keyID, from, to, action, opts...)
			if err != nil {
				return fmt.Errorf("delegate capability: %w", err)
			}
			fmt.Printf("Token ID: %s\n", tokenID)
			return nil
		},
	}

	cmd.Flags().StringVar(&delegator, "delegator", "", "Delegator DID (required)")
	cmd.Flags().StringVar(&delegatee, "delegatee", "", "Delegatee DID (required)")
	cmd.Flags().StringVar(&keyID, "key", "", "Encryption key id (required)")
	cmd.Flags().StringVar(&action, "action", "", "Action to delegate (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default from config)")
	cmd.MarkFlagRequired("delegator")
	cmd.MarkFlagRequired("delegatee")
	cmd.MarkFlagRequired("key")
	cmd.MarkFlagRequired("action")

	return cmd
}

func newTokenShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <token-id>",
		Short: "Print a token as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			token, ok := app.authority.Token(args[0])
			if !ok {
				return fmt.Errorf("token %q not found", args[0])
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(token)
		},
	}

	return cmd
}
