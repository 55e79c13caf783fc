package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hupe1980/ledgercol/backup"
	"github.com/hupe1980/ledgercol/blobstore"
	"github.com/hupe1980/ledgercol/blobstore/minio"
	"github.com/hupe1980/ledgercol/blobstore/s3"
	"github.com/hupe1980/ledgercol/codec"
	"github.com/hupe1980/ledgercol/resource"
)

func storeFlags(fs *pflag.FlagSet) {
	fs.String("target", "", "local directory holding the backup")
	fs.String("s3-bucket", "", "S3 bucket holding the backup")
	fs.String("s3-region", "", "S3 region")
	fs.String("s3-endpoint", "", "S3-compatible endpoint URL")
	fs.Bool("s3-path-style", false, "use path-style S3 addressing")
	fs.String("minio-endpoint", "", "MinIO endpoint host:port")
	fs.String("minio-access-key", "", "MinIO access key")
	fs.String("minio-secret-key", "", "MinIO secret key")
	fs.String("minio-bucket", "", "MinIO bucket")
	fs.Bool("minio-secure", true, "use TLS for MinIO")
	fs.String("prefix", "", "key prefix inside the bucket")
	fs.Int("workers", 4, "concurrent chunk transfers")
	fs.Int64("io-limit", 0, "bytes per second read/write limit, 0 is unlimited")
}

// openStore builds the blob store selected by the flags. Exactly one of
// --target, --s3-bucket and --minio-endpoint must be set.
func (a *app) openStore(ctx context.Context) (blobstore.BlobStore, error) {
	target := a.v.GetString("target")
	bucket := a.v.GetString("s3-bucket")
	endpoint := a.v.GetString("minio-endpoint")

	set := 0
	for _, s := range []string{target, bucket, endpoint} {
		if s != "" {
			set++
		}
	}
	if set != 1 {
		return nil, errors.New("exactly one of --target, --s3-bucket or --minio-endpoint is required")
	}

	prefix := a.v.GetString("prefix")
	switch {
	case target != "":
		return blobstore.NewLocalStore(target), nil
	case bucket != "":
		opts := []s3.Option{s3.WithPrefix(prefix)}
		if r := a.v.GetString("s3-region"); r != "" {
			opts = append(opts, s3.WithRegion(r))
		}
		if e := a.v.GetString("s3-endpoint"); e != "" {
			opts = append(opts, s3.WithEndpoint(e))
		}
		if a.v.GetBool("s3-path-style") {
			opts = append(opts, s3.WithPathStyle())
		}
		return s3.New(ctx, bucket, opts...)
	default:
		return minio.New(ctx, minio.Config{
			Endpoint:  endpoint,
			AccessKey: a.v.GetString("minio-access-key"),
			SecretKey: a.v.GetString("minio-secret-key"),
			Bucket:    a.v.GetString("minio-bucket"),
			Prefix:    prefix,
			Secure:    a.v.GetBool("minio-secure"),
		})
	}
}

func (a *app) backupOptions() (backup.Options, error) {
	comp, err := backup.ParseCompression(a.v.GetString("compression"))
	if err != nil {
		return backup.Options{}, err
	}
	return backup.Options{
		ChunkSize:   a.v.GetInt("chunk-size"),
		Compression: comp,
		Resources: resource.NewController(resource.Config{
			MaxBackgroundWorkers: a.v.GetInt64("workers"),
			IOLimitBytesPerSec:   a.v.GetInt64("io-limit"),
		}),
		Logger: a.log,
	}, nil
}

func printReport(cmd *cobra.Command, r *backup.Report) {
	fmt.Fprintf(cmd.OutOrStdout(),
		"columns=%d uploaded=%d skipped=%d deleted=%d restored=%d bytes=%d\n",
		len(r.Columns), r.Uploaded, r.Skipped, r.Deleted, r.Restored, r.Bytes)
}

func newBackupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup <dir> [column...]",
		Short: "Copy columns to a blob store, uploading only changed chunks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			opts, err := a.backupOptions()
			if err != nil {
				return err
			}
			rep, err := backup.SnapshotDir(ctx, args[0], store, opts, args[1:]...)
			if rep != nil {
				printReport(cmd, rep)
			}
			return err
		},
	}
	storeFlags(cmd.Flags())
	cmd.Flags().String("compression", backup.CompressionZSTD.String(), "chunk compression (zstd, lz4, none)")
	cmd.Flags().Int("chunk-size", backup.DefaultChunkSize, "uncompressed chunk size in bytes")
	return cmd
}

func newRestoreCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <dir> [column...]",
		Short: "Restore columns from a blob store into dir",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			opts, err := a.backupOptions()
			if err != nil {
				return err
			}
			rep, err := backup.Restore(ctx, store, args[0], opts, args[1:]...)
			if rep != nil {
				printReport(cmd, rep)
			}
			return err
		},
	}
	storeFlags(cmd.Flags())
	cmd.Flags().String("compression", backup.CompressionZSTD.String(), "unused on restore")
	cmd.Flags().Int("chunk-size", backup.DefaultChunkSize, "unused on restore")
	_ = cmd.Flags().MarkHidden("compression")
	_ = cmd.Flags().MarkHidden("chunk-size")
	return cmd
}

func newManifestsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifests",
		Short: "List the columns stored in a blob store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			ms, err := backup.Manifests(ctx, store)
			if err != nil {
				return err
			}
			if a.v.GetBool("json") {
				out, err := codec.GoJSON{}.MarshalIndent(ms)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return err
			}
			for _, m := range ms {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tlength=%d\tchunks=%d/%d\t%s\t%s\n",
					m.Column, m.Length, m.Chunks().GetCardinality(), m.NumChunks(), m.Compression,
					m.Created.Format("2006-01-02T15:04:05Z07:00"))
			}
			return nil
		},
	}
	storeFlags(cmd.Flags())
	cmd.Flags().Bool("json", false, "print the manifests as JSON")
	return cmd
}
