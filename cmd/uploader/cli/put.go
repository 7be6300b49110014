package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fileintake/internal/client/uploader"
	"github.com/spf13/cobra"
)

func NewPutCommand() *cobra.Command {
	var contentType string
	var wait bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "put <file>",
		Short: "Upload a file",
		Long:  "Requests an upload credential for the file, uploads it with the signed headers and optionally waits for the scan verdict.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c := uploader.NewClient(serverURL(cmd), nil)

			cred, err := c.PutFile(ctx, args[0], contentType)
			if err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s as %s (file id %s)\n", args[0], cred.S3Key, cred.FileID)

			if !wait {
				return nil
			}

			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			rec, err := c.WaitForFile(ctx, cred.FileID, time.Second)
			if err != nil {
				return fmt.Errorf("wait failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "status: %s\n", rec.UploadedStatus)
			return nil
		},
	}

	cmd.Flags().StringVarP(&contentType, "content-type", "t", "", "content type sent with the upload")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "wait until the file reaches a terminal status")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "maximum time to wait for a terminal status")

	return cmd
}

func NewStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <file-id>",
		Short: "Show file status",
		Long:  "Prints the stored record status for a previously uploaded file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := uploader.NewClient(serverURL(cmd), nil).GetFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s/%s\n", rec.FileID, rec.UploadedStatus, rec.Bucket, rec.Filename)
			return nil
		},
	}

	return cmd
}
