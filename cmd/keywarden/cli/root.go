// Package cli implements the keywarden command tree.
package cli

import (
	"github.com/spf13/cobra"
)

var cfgFile string

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	return newRootCmd(version, commit, date).Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keywarden",
		Short: "Capability-gated encryption key management",
		Long: `Keywarden manages Ed25519 identities, UCAN-style capability tokens and
symmetric encryption keys. Every encrypt, decrypt, delegate and revoke
operation on a key is gated on the capabilities its requestor currently
holds.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./keywarden.yaml)")

	cmd.AddCommand(newKeyCmd())
	cmd.AddCommand(newEncKeyCmd())
	cmd.AddCommand(newTokenCmd())
	cmd.AddCommand(newEncryptCmd())
	cmd.AddCommand(newDecryptCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))

	return cmd
}
