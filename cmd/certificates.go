package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var certificatesCmd = &cobra.Command{
	Use:     "certificates",
	Aliases: []string{"certificate", "certs"},
	Short:   "Retrieve promotion certificates",
}

var certificatesDownloadCmd = &cobra.Command{
	Use:   "download <promotion-id>",
	Short: "Download a certificate PDF",
	Long: `Download the rendered certificate for a recorded promotion.

Examples:
  dojoctl certificates download pr-1887 -o shodan.pdf
  dojoctl certificates download pr-1887 > shodan.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runCertificatesDownload,
}

func init() {
	rootCmd.AddCommand(certificatesCmd)
	certificatesCmd.AddCommand(certificatesDownloadCmd)

	certificatesDownloadCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
}

func runCertificatesDownload(cmd *cobra.Command, args []string) error {
	if err := requireSession(cmd); err != nil {
		return err
	}

	outPath, _ := cmd.Flags().GetString("output")

	w := os.Stdout
	if outPath != "" {
		f, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	n, err := app.API.DownloadCertificate(cmd.Context(), args[0], w)
	if err != nil {
		return err
	}

	if outPath != "" {
		printer.Success("Wrote %s (%d bytes)", outPath, n)
	}
	return nil
}
