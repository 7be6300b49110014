package cli

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultServer = "http://127.0.0.1:8080"

func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "uploader",
		Short:         "File intake upload client",
		Long:          "Requests presigned upload URLs from the file intake API, uploads files to object storage and reports their scan status.",
		SilenceErrors: true,
		SilenceUsage:  true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(".env"); err == nil {
				return godotenv.Load(".env")
			}
			return nil
		},
	}

	cmd.PersistentFlags().String("server", "", "file intake API base URL (default $FILEINTAKE_SERVER or "+defaultServer+")")

	return cmd
}

func serverURL(cmd *cobra.Command) string {
	if s, _ := cmd.Flags().GetString("server"); s != "" {
		return s
	}
	if s := os.Getenv("FILEINTAKE_SERVER"); s != "" {
		return s
	}
	return defaultServer
}
