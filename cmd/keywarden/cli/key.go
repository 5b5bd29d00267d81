package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/keywarden/go-keywarden/guard"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage Ed25519 identity keypairs",
		Long:  "Generate and list the did:key identities that issue and receive capability tokens.",
	}

	cmd.AddCommand(newKeyGenerateCmd())
	cmd.AddCommand(newKeyListCmd())

	return cmd
}

func newKeyGenerateCmd() *cobra.Command {
	var showPrivate bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new identity keypair",
		Long:  "Generate an Ed25519 keypair, derive its did:key identifier and register it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			kp, err := app.authority.GenerateKeyPair()
			if err != nil {
				return fmt.Errorf("generate keypair: %w", err)
			}

			fmt.Printf("DID:        %s\n", kp.DID)
			fmt.Printf("Public key: %s\n", kp.PublicKey)
			if showPrivate {
				fmt.Printf("Private key: %s\n", kp.PrivateKey)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showPrivate, "show-private", false, "Print the private key archive")

	return cmd
}

func newKeyListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered identities",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			type row struct {
				DID     string `json:"did"`
				KeyType string `json:"key_type"`
				CanSign bool   `json:"can_sign"`
				Created string `json:"created_at"`
			}

			keypairs := app.authority.KeyPairs()
			rows := make([]row, len(keypairs))
			for i, kp := range keypairs {
				rows[i] = row{
					DID:     kp.DID.String(),
					KeyType: kp.KeyType,
					CanSign: kp.CanSign(),
					Created: kp.CreatedAt.Format("2006-01-02 15:04:05"),
				}
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			if len(rows) == 0 {
				fmt.Println("No identities registered. Use 'keywarden key generate' to create one.")
				return nil
			}

			fmt.Printf("%-60s %-10s %-8s %s\n", "DID", "TYPE", "SIGNS", "CREATED")
			for _, r := range rows {
				signs := "yes"
				if !r.CanSign {
					signs = "no"
				}
				fmt.Printf("%-60s %-10s %-8s %s\n", r.DID, r.KeyType, signs, r.Created)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newEncKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enckey",
		Short: "Manage symmetric encryption keys",
		Long:  "Generate and list the capability-gated symmetric encryption keys owned by the guard.",
	}

	cmd.AddCommand(newEncKeyGenerateCmd())
	cmd.AddCommand(newEncKeyListCmd())

	return cmd
}

func newEncKeyGenerateCmd() *cobra.Command {
	var (
		algorithm  string
		keyContext string
		passphrase string
		unbound    bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new encryption key",
		Long: `Generate symmetric key material and, unless --unbound is given, mint an
owning DID holding the full capability set over the key.`,
		Example: `  keywarden enckey generate --context documents
  keywarden enckey generate --algorithm chacha20-poly1305 --passphrase-env KW_PASS`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			var opts []guard.KeyOption
			if unbound {
				opts = append(opts, guard.WithoutDelegation())
			}
			if passphrase != "" {
				if pass := os.Getenv(passphrase); pass != "" {
					opts = append(opts, guard.WithPassphrase(pass))
				} else {
					return fmt.Errorf("environment variable %s is empty", passphrase)
				}
			}

			keyID, err := app.guard.GenerateEncryptionKey(cmd.Context(), algorithm, keyContext, opts...)
			if err != nil {
				return fmt.Errorf("generate encryption key: %w", err)
			}

			key, _ := app.guard.Key(keyID)
			fmt.Printf("Key ID:    %s\n", key.ID)
			fmt.Printf("Algorithm: %s\n", key.Algorithm)
			if key.DID.Defined() {
				fmt.Printf("Owner DID: %s\n", key.DID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&algorithm, "algorithm", "", "Algorithm: aes-256-gcm (default) or chacha20-poly1305")
	cmd.Flags().StringVar(&keyContext, "context", "", "Free-form context label for the key")
	cmd.Flags().StringVar(&passphrase, "passphrase-env", "", "Derive key material from the passphrase in this environment variable")
	cmd.Flags().BoolVar(&unbound, "unbound", false, "Skip DID binding; the key is never capability-gated")

	return cmd
}

func newEncKeyListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List encryption keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			type row struct {
				ID        string `json:"key_id"`
				Algorithm string `json:"algorithm"`
				Context   string `json:"context,omitempty"`
				DID       string `json:"did,omitempty"`
			}

			keys := app.guard.Keys()
			rows := make([]row, len(keys))
			for i, k := range keys {
				rows[i] = row{ID: k.ID, Algorithm: k.Algorithm, Context: k.Context, DID: k.DID.String()}
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			if len(rows) == 0 {
				fmt.Println("No encryption keys. Use 'keywarden enckey generate' to create one.")
				return nil
			}

			fmt.Printf("%-38s %-20s %-16s %s\n", "KEY ID", "ALGORITHM", "CONTEXT", "OWNER DID")
			for _, r := range rows {
				fmt.Printf("%-38s %-20s %-16s %s\n", r.ID, r.Algorithm, r.Context, r.DID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
