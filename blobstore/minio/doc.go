// Package minio provides a BlobStore implementation using the MinIO client.
//
// It works with MinIO and other S3-compatible systems such as Ceph,
// SeaweedFS and Garage, without pulling in the AWS SDK.
//
// # Basic Usage
//
//	store, err := minio.New(ctx, minio.Config{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	    Bucket:    "backups",
//	    Prefix:    "ledger/",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report, err := backup.Snapshot(ctx, group, store, backup.Options{})
//
// An existing *minio.Client can be wrapped with NewStore.
package minio
