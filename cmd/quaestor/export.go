package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var exportFlags struct {
	evidenceID string
	actor      string
	mode       string
	output     string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a signed evidence bundle",
	Long: `Produce a signed export bundle for an evidence record: the content
hash, an HMAC signature over the export payload, and the full chain of
custody at export time.

The export itself is appended to the chain of custody.

Examples:
  quaestor export --id 4f7b... --actor examiner-1 --output bundle.json
  quaestor export cert --id 4f7b... --output cert.json`,
	RunE: runExport,
}

var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "Generate a hash certificate",
	Long: `Generate a hash certificate for an evidence record: the content hash,
hash algorithm, and custody entry count in a stable report-friendly
shape. Generating a certificate is a read and does not touch the chain
of custody.`,
	RunE: runCert,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(certCmd)

	exportCmd.PersistentFlags().StringVar(&exportFlags.evidenceID, "id", "", "evidence record ID (required)")
	exportCmd.PersistentFlags().StringVarP(&exportFlags.output, "output", "o", "", "output file (default: stdout)")
	exportCmd.MarkPersistentFlagRequired("id")

	exportCmd.Flags().StringVar(&exportFlags.actor, "actor", "", "acting examiner ID (required)")
	exportCmd.Flags().StringVar(&exportFlags.mode, "mode", "bundle", "export mode recorded on the bundle")
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportFlags.actor == "" {
		return fmt.Errorf("--actor is required")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	bundle, err := a.ledger.Export(context.Background(), exportFlags.evidenceID, exportFlags.actor, exportFlags.mode)
	if err != nil {
		return err
	}
	return printJSON(bundle, exportFlags.output)
}

func runCert(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cert, err := a.ledger.HashCertificate(context.Background(), exportFlags.evidenceID)
	if err != nil {
		return err
	}
	return printJSON(cert, exportFlags.output)
}
