package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/api"
	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/directory"
	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/models"
	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/s3io"
	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/upload"
	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/validate"
)

func newListCmd(a *app) *cobra.Command {
	var search, status string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your claims",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.dir.Refresh(cmd.Context()); err != nil {
				return err
			}
			claims := a.dir.Filter(search, status)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), claims)
			}
			printClaims(cmd.OutOrStdout(), a.dir, claims)
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Match filename, client or tag (case insensitive)")
	cmd.Flags().StringVar(&status, "status", models.StatusAll, "Status filter: all, UPLOADING, COMPLETE, FAILED")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the matching claims as JSON")
	return cmd
}

func newPresignCmd(a *app) *cobra.Command {
	var client, tags, contentType string
	cmd := &cobra.Command{
		Use:   "presign <filename>",
		Short: "Request an upload authorization without uploading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(filepath.Base(args[0]))
			if err := validate.FilenameTxt(name); err != nil {
				return err
			}
			if err := validate.ClientOK(client); err != nil {
				return err
			}
			out, err := a.api.Presign(cmd.Context(), api.PresignRequest{
				Filename:    name,
				Tags:        validate.ParseTags(tags),
				Client:      strings.TrimSpace(client),
				ContentType: contentType,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&client, "client", "", "Insurance client the claim is filed with")
	cmd.Flags().StringVar(&tags, "tags", "", "Comma separated tags")
	cmd.Flags().StringVar(&contentType, "content-type", s3io.ContentTypeText, "Content type to sign for")
	return cmd
}

func newPutCmd(a *app) *cobra.Command {
	var headers map[string]string
	cmd := &cobra.Command{
		Use:   "put <presigned-url> <file>",
		Short: "Upload a file to an existing presigned URL",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, closer, err := upload.OpenFile(args[1])
			if err != nil {
				return err
			}
			defer closer.Close()

			put := s3io.PutRequest(args[0], s3io.UploadHeaders(headers, s3io.ContentTypeText))
			if err := s3io.Transfer(cmd.Context(), a.storage, put, f.Body, f.Size); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s (%d bytes)\n", f.Name, f.Size)
			return nil
		},
	}
	cmd.Flags().StringToStringVarP(&headers, "header", "H", nil, "Signed header to send, as name=value (repeatable)")
	return cmd
}

func newUploadCmd(a *app) *cobra.Command {
	var client, tags string
	var wait bool
	cmd := &cobra.Command{
		Use:   "upload <file.txt>",
		Short: "Submit a claim document and show the refreshed claim list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			f, closer, err := upload.OpenFile(args[0])
			if err != nil {
				return err
			}
			defer closer.Close()

			refreshed := make(chan struct{})
			o := upload.New(a.api, a.storage, a.dir,
				upload.WithRefreshDelay(a.env.RefreshDelay),
				upload.WithLogger(a.log),
				upload.WithScheduler(func(d time.Duration, fn func()) {
					time.AfterFunc(d, func() {
						defer close(refreshed)
						fn()
					})
				}),
			)

			res, err := o.Submit(ctx, &upload.Form{File: f, Client: client, Tags: tags})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\nclaim %s -> %s\n", res.Message, res.ClaimID, res.S3Key)
			if !wait {
				return nil
			}

			select {
			case <-refreshed:
			case <-ctx.Done():
				return ctx.Err()
			}
			if msg := a.dir.Err(); msg != "" {
				return fmt.Errorf("refresh claims: %s", msg)
			}
			printClaims(out, a.dir, a.dir.Claims())
			return nil
		},
	}
	cmd.Flags().StringVar(&client, "client", "", "Insurance client the claim is filed with")
	cmd.Flags().StringVar(&tags, "tags", "", "Comma separated tags")
	cmd.Flags().BoolVar(&wait, "wait", true, "Wait for the post-upload refresh and print the claim list")
	return cmd
}

func printClaims(w io.Writer, d *directory.Directory, claims []models.Claim) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CLAIM\tFILENAME\tCLIENT\tTAGS\tSTATUS\tUPLOADED")
	for _, c := range claims {
		uploaded := "-"
		if t, ok := c.UploadedTime(); ok {
			uploaded = t.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ClaimID, c.Filename, c.Client, strings.Join(c.Tags, ", "), c.Status, uploaded)
	}
	tw.Flush()

	counts := d.StatusCounts()
	fmt.Fprintf(w, "\n%d shown, %d total (%d complete, %d uploading, %d failed)\n",
		len(claims), len(d.Claims()),
		counts[models.StatusComplete], counts[models.StatusUploading], counts[models.StatusFailed])
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
