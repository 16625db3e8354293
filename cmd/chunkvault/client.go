package main

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/mtiwari1/chunkvault/internal/grpcserver"
	pb "github.com/mtiwari1/chunkvault/proto"
)

type clientOptions struct {
	addr    string
	timeout time.Duration
}

// call dials the server, runs fn with a bounded context and converts
// status errors back into storage errors.
func (o *clientOptions) call(cmd *cobra.Command, fn func(ctx context.Context, c pb.StorageServiceClient) error) error {
	conn, err := grpc.NewClient(o.addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(pb.MaxMessageSize),
			grpc.MaxCallSendMsgSize(pb.MaxMessageSize),
		),
	)
	if err != nil {
		return fmt.Errorf("dial %s: %w", o.addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	defer cancel()
	return grpcserver.AsStorageError(fn(ctx, pb.NewStorageServiceClient(conn)))
}

func addClientCommands(root *cobra.Command) {
	opts := &clientOptions{}
	root.PersistentFlags().StringVar(&opts.addr, "addr", envOrDefault("CHUNKVAULT_GRPC_ADDR", "localhost:50051"), "gRPC server address")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "per-request timeout")

	root.AddCommand(
		newUploadCmd(opts),
		newDownloadCmd(opts),
		newStatCmd(opts),
		newRemoveCmd(opts),
		newTagCmd(opts),
		newPushCmd(opts),
		newVersionsCmd(opts),
		newListCmd(opts),
		newSearchCmd(opts),
		newStatsCmd(opts),
	)
}

func newUploadCmd(opts *clientOptions) *cobra.Command {
	var (
		name, fileType string
		tags           []string
		encrypted      bool
	)
	cmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a local file as a new stored file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = filepath.Base(args[0])
			}
			if fileType == "" {
				fileType = guessType(args[0])
			}
			return opts.call(cmd, func(ctx context.Context, c pb.StorageServiceClient) error {
				resp, err := c.UploadFile(ctx, &pb.UploadFileRequest{
					Name: name, Content: content, FileType: fileType, Tags: tags, Encrypted: encrypted,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s (%s, version %d)\n",
					resp.Metadata.Name, humanize.IBytes(uint64(resp.Metadata.Size)), resp.Metadata.CurrentVersion)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "stored name (default: base name of path)")
	cmd.Flags().StringVar(&fileType, "type", "", "file type (default: guessed from extension)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag to attach (repeatable)")
	cmd.Flags().BoolVar(&encrypted, "encrypted", false, "mark the content as encrypted by the caller")
	return cmd
}

func newDownloadCmd(opts *clientOptions) *cobra.Command {
	var (
		version uint64
		output  string
	)
	cmd := &cobra.Command{
		Use:   "download <name>",
		Short: "Download a file's current or a retained older version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.call(cmd, func(ctx context.Context, c pb.StorageServiceClient) error {
				resp, err := c.DownloadFile(ctx, &pb.DownloadFileRequest{Name: args[0], Version: version})
				if err != nil {
					return err
				}
				if output == "" || output == "-" {
					_, err = cmd.OutOrStdout().Write(resp.File.Content)
					return err
				}
				return os.WriteFile(output, resp.File.Content, 0o644)
			})
		},
	}
	cmd.Flags().Uint64Var(&version, "version", 0, "version id (default: current)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func newStatCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stat <name>",
		Short: "Show a file's metadata without downloading it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.call(cmd, func(ctx context.Context, c pb.StorageServiceClient) error {
				resp, err := c.StatFile(ctx, &pb.StatFileRequest{Name: args[0]})
				if err != nil {
					return err
				}
				return printFiles(cmd.OutOrStdout(), []*pb.FileMetadata{resp.Metadata})
			})
		},
	}
}

func newRemoveCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a file and all of its versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.call(cmd, func(ctx context.Context, c pb.StorageServiceClient) error {
				_, err := c.DeleteFile(ctx, &pb.DeleteFileRequest{Name: args[0]})
				return err
			})
		},
	}
}

func newTagCmd(opts *clientOptions) *cobra.Command {
	var (
		tags      []string
		clearTags bool
	)
	cmd := &cobra.Command{
		Use:   "tag <name>",
		Short: "Replace a file's tags",
		Long: `Replace a file's tags with the given --tag values. Without --tag or
--clear the tags are kept and only the modification time changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &pb.UpdateFileMetadataRequest{Name: args[0]}
			switch {
			case len(tags) > 0:
				req.Tags = &tags
			case clearTags:
				// A nil slice would travel as null and keep the tags.
				empty := []string{}
				req.Tags = &empty
			}
			return opts.call(cmd, func(ctx context.Context, c pb.StorageServiceClient) error {
				resp, err := c.UpdateFileMetadata(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: [%s]\n", resp.Metadata.Name, strings.Join(resp.Metadata.Tags, ", "))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag (repeatable)")
	cmd.Flags().BoolVar(&clearTags, "clear", false, "remove all tags")
	return cmd
}

func newPushCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "push <name> <path>",
		Short: "Store a new version of an existing file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			return opts.call(cmd, func(ctx context.Context, c pb.StorageServiceClient) error {
				resp, err := c.CreateFileVersion(ctx, &pb.CreateFileVersionRequest{Name: args[0], Content: content})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now at version %d\n", resp.Metadata.Name, resp.Metadata.CurrentVersion)
				return nil
			})
		},
	}
}

func newVersionsCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "versions <name>",
		Short: "Show a file's version history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.call(cmd, func(ctx context.Context, c pb.StorageServiceClient) error {
				resp, err := c.ListVersions(ctx, &pb.ListVersionsRequest{Name: args[0]})
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "VERSION\tSIZE\tCREATED\tRETAINED")
				for _, v := range resp.Versions {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%t\n", v.ID, humanize.IBytes(uint64(v.Size)), humanize.Time(v.CreatedAt), v.Retained)
				}
				return tw.Flush()
			})
		},
	}
}

func newListCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List stored files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.call(cmd, func(ctx context.Context, c pb.StorageServiceClient) error {
				resp, err := c.ListFiles(ctx, &pb.ListFilesRequest{})
				if err != nil {
					return err
				}
				return printFiles(cmd.OutOrStdout(), resp.Files)
			})
		},
	}
}

func newSearchCmd(opts *clientOptions) *cobra.Command {
	var (
		tags []string
		all  bool
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find files by tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.call(cmd, func(ctx context.Context, c pb.StorageServiceClient) error {
				resp, err := c.SearchByTags(ctx, &pb.SearchByTagsRequest{Tags: tags, MatchAll: all})
				if err != nil {
					return err
				}
				metas := make([]*pb.FileMetadata, len(resp.Files))
				for i, f := range resp.Files {
					metas[i] = f.Metadata
				}
				return printFiles(cmd.OutOrStdout(), metas)
			})
		},
	}
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag to match (repeatable)")
	cmd.Flags().BoolVar(&all, "all", false, "require every tag instead of any")
	return cmd
}

func newStatsCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show storage usage and file type distribution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.call(cmd, func(ctx context.Context, c pb.StorageServiceClient) error {
				stats, err := c.StorageAnalytics(ctx, &pb.StorageAnalyticsRequest{})
				if err != nil {
					return err
				}
				dist, err := c.FileTypeDistribution(ctx, &pb.FileTypeDistributionRequest{})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "files:     %d\n", stats.Count)
				fmt.Fprintf(out, "used:      %s of %s\n", humanize.IBytes(stats.Used), humanize.IBytes(stats.Capacity))
				fmt.Fprintf(out, "available: %s\n", humanize.IBytes(stats.Available))
				fmt.Fprintf(out, "retention: %s\n", retentionLabel(stats.RetentionKeep))

				types := make([]string, 0, len(dist.Counts))
				for t := range dist.Counts {
					types = append(types, t)
				}
				sort.Strings(types)
				for _, t := range types {
					fmt.Fprintf(out, "  %-30s %d\n", t, dist.Counts[t])
				}
				return nil
			})
		},
	}
}

func printFiles(w io.Writer, files []*pb.FileMetadata) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tTYPE\tVERSION\tTAGS\tMODIFIED")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			f.Name, humanize.IBytes(uint64(f.Size)), f.FileType, f.CurrentVersion,
			strings.Join(f.Tags, ","), humanize.Time(f.LastModified))
	}
	return tw.Flush()
}

func retentionLabel(keep int) string {
	switch {
	case keep < 0:
		return "all versions"
	case keep == 1:
		return "latest only"
	default:
		return "latest " + strconv.Itoa(keep)
	}
}

func guessType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}
