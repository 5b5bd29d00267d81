package cli

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/keywarden/go-keywarden/did"
)

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		// binary-unsafe destination, encode
		fmt.Println(base64.StdEncoding.EncodeToString(data))
		return nil
	}
	return os.WriteFile(path, data, 0o600)
}

func parseRequestor(str string) (did.DID, error) {
	if str == "" {
		return did.Undef, nil
	}
	return did.Parse(str)
}

func newEncryptCmd() *cobra.Command {
	var (
		keyID     string
		requestor string
		in        string
		out       string
	)

	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt data under an encryption key",
		Long: `Encrypt data read from a file or stdin. When --requestor is given and the
key is DID-bound, the requestor must hold the encrypt capability on the
key. Without --out the ciphertext is printed base64 encoded.`,
		Example: `  echo -n "secret" | keywarden encrypt --key 7f0c... --requestor did:key:z6Mk...
  keywarden encrypt --key 7f0c... --in report.pdf --out report.pdf.enc`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			req, err := parseRequestor(requestor)
			if err != nil {
				return fmt.Errorf("parse requestor: %w", err)
			}
			data, err := readInput(in)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			ciphertext, _, err := app.guard.Encrypt(cmd.Context(), data, keyID, req)
			if err != nil {
				return fmt.Errorf("encrypt: %w", err)
			}
			return writeOutput(out, ciphertext)
		},
	}

	cmd.Flags().StringVar(&keyID, "key", "", "Encryption key id (required)")
	cmd.Flags().StringVar(&requestor, "requestor", "", "Requestor DID for the capability check")
	cmd.Flags().StringVar(&in, "in", "", "Input file (default stdin)")
	cmd.Flags().StringVar(&out, "out", "", "Output file (default base64 to stdout)")
	cmd.MarkFlagRequired("key")

	return cmd
}

func newDecryptCmd() *cobra.Command {
	var (
		keyID     string
		requestor string
		in        string
		out       string
		b64       bool
	)

	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt data encrypted under an encryption key",
		Long: `Decrypt a ciphertext produced by encrypt. The same capability gate applies
for the decrypt action.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			req, err := parseRequestor(requestor)
			if err != nil {
				return fmt.Errorf("parse requestor: %w", err)
			}
			data, err := readInput(in)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			if b64 {
				data, err = base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
				if err != nil {
					return fmt.Errorf("decode base64 input: %w", err)
				}
			}

			plaintext, err := app.guard.Decrypt(cmd.Context(), data, keyID, req)
			if err != nil {
				return fmt.Errorf("decrypt: %w", err)
			}

			if out == "" || out == "-" {
				_, err = os.Stdout.Write(plaintext)
				return err
			}
			return os.WriteFile(out, plaintext, 0o600)
		},
	}

	cmd.Flags().StringVar(&keyID, "key", "", "Encryption key id (required)")
	cmd.Flags().StringVar(&requestor, "requestor", "", "Requestor DID for the capability check")
	cmd.Flags().StringVar(&in, "in", "", "Input file (default stdin)")
	cmd.Flags().StringVar(&out, "out", "", "Output file (default stdout)")
	cmd.Flags().BoolVar(&b64, "base64", false, "Input is base64 encoded")
	cmd.MarkFlagRequired("key")

	return cmd
}
