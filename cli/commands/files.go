package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/petal-labs/oai/providers/openai"
)

func (a *App) newFilesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Manage uploaded files",
	}

	var purpose string
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List uploaded files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFilesList(cmd.Context(), &openai.FileListRequest{Purpose: openai.FilePurpose(purpose), Limit: limit})
		},
	}
	list.Flags().StringVar(&purpose, "purpose", "", "only list files with this purpose")
	list.Flags().IntVar(&limit, "limit", 0, "maximum number of files")

	var uploadPurpose string
	upload := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFilesUpload(cmd.Context(), args[0], openai.FilePurpose(uploadPurpose))
		},
	}
	upload.Flags().StringVar(&uploadPurpose, "purpose", string(openai.FilePurposeUserData), "file purpose (assistants, batch, fine-tune, vision, user_data, evals)")

	get := &cobra.Command{
		Use:   "get <file-id>",
		Short: "Show file metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFilesGet(cmd.Context(), args[0])
		},
	}

	del := &cobra.Command{
		Use:   "delete <file-id>",
		Short: "Delete a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFilesDelete(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(list, upload, get, del)
	return cmd
}

func (a *App) runFilesList(ctx context.Context, req *openai.FileListRequest) error {
	client, err := a.client()
	if err != nil {
		return a.fail(err)
	}
	list, err := client.ListFiles(ctx, req)
	if err != nil {
		return a.fail(err)
	}
	if a.jsonOutput {
		return writeJSON(a.stdout, list)
	}
	if len(list.Data) == 0 {
		fmt.Fprintln(a.stdout, "No files.")
		return nil
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILENAME\tPURPOSE\tBYTES\tCREATED")
	for _, f := range list.Data {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", f.ID, f.Filename, f.Purpose, f.Bytes, formatUnix(f.CreatedAt))
	}
	return tw.Flush()
}

func (a *App) runFilesUpload(ctx context.Context, path string, purpose openai.FilePurpose) error {
	client, err := a.client()
	if err != nil {
		return a.fail(err)
	}
	f, err := os.Open(path)
	if err != nil {
		return a.fail(fmt.Errorf("failed to open file: %w", err))
	}
	defer f.Close()

	file, err := client.UploadFile(ctx, &openai.FileUploadRequest{
		File:     f,
		Filename: filepath.Base(path),
		Purpose:  purpose,
	})
	if err != nil {
		return a.fail(err)
	}
	if a.jsonOutput {
		return writeJSON(a.stdout, file)
	}
	fmt.Fprintf(a.stdout, "Uploaded %s as %s (%d bytes).\n", file.Filename, file.ID, file.Bytes)
	return nil
}

func (a *App) runFilesGet(ctx context.Context, id string) error {
	client, err := a.client()
	if err != nil {
		return a.fail(err)
	}
	file, err := client.RetrieveFile(ctx, id)
	if err != nil {
		return a.fail(err)
	}
	if a.jsonOutput {
		return writeJSON(a.stdout, file)
	}
	fmt.Fprintf(a.stdout, "%s  %s  %s  %d bytes  %s\n", file.ID, file.Filename, file.Purpose, file.Bytes, formatUnix(file.CreatedAt))
	return nil
}

func (a *App) runFilesDelete(ctx context.Context, id string) error {
	client, err := a.client()
	if err != nil {
		return a.fail(err)
	}
	res, err := client.DeleteFile(ctx, id)
	if err != nil {
		return a.fail(err)
	}
	if a.jsonOutput {
		return writeJSON(a.stdout, res)
	}
	if res.Deleted {
		fmt.Fprintf(a.stdout, "File %s deleted.\n", res.ID)
	} else {
		fmt.Fprintf(a.stdout, "File %s was not deleted.\n", res.ID)
	}
	return nil
}

func formatUnix(sec int64) string {
	if sec == 0 {
		return "-"
	}
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}
