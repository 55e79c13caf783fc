package s3

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hupe1980/ledgercol/internal/hash"
)

// UploadConfig configures the S3 uploader.
type UploadConfig struct {
	// PartSize is the minimum part size for multipart uploads.
	// Default: 8MB
	PartSize int64

	// Concurrency is the number of concurrent part uploads.
	// Default: 5 (matches SDK default)
	Concurrency int

	// EnableChecksum enables CRC32C integrity validation.
	// Default: true
	EnableChecksum bool

	// LeavePartsOnError keeps the parts of failed multipart uploads.
	// Default: false (abort on error)
	LeavePartsOnError bool
}

// DefaultUploadConfig returns the default upload settings.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		PartSize:          8 * 1024 * 1024,
		Concurrency:       5,
		EnableChecksum:    true,
		LeavePartsOnError: false,
	}
}

// newUploader creates a configured S3 uploader.
func newUploader(client manager.UploadAPIClient, cfg UploadConfig) *manager.Uploader {
	return manager.NewUploader(client, func(u *manager.Uploader) {
		if cfg.PartSize > 0 {
			u.PartSize = cfg.PartSize
		}
		if cfg.Concurrency > 0 {
			u.Concurrency = cfg.Concurrency
		}
		u.LeavePartsOnError = cfg.LeavePartsOnError
	})
}

var errUploadAborted = errors.New("s3: upload aborted")

// computeCRC32C computes the CRC32C checksum and returns it as base64 (S3 format).
func computeCRC32C(data []byte) string {
	var b [4]byte
	// S3 expects base64-encoded big-endian bytes
	binary.BigEndian.PutUint32(b[:], hash.CRC32C(data))
	return base64.StdEncoding.EncodeToString(b[:])
}

// multipartWriter feeds a background manager.Uploader through a pipe. The
// upload runs under its own context so Abort can stop in-flight parts.
type multipartWriter struct {
	pw     *io.PipeWriter
	cancel context.CancelFunc
	result chan error

	mu   sync.Mutex
	done bool
	err  error
}

func startMultipart(ctx context.Context, u *manager.Uploader, bucket, key string, checksum bool) *multipartWriter {
	pr, pw := io.Pipe()
	ctx, cancel := context.WithCancel(ctx)
	w := &multipartWriter{pw: pw, cancel: cancel, result: make(chan error, 1)}

	in := &s3.PutObjectInput{Bucket: aws.String(bucket), Key: aws.String(key), Body: pr}
	if checksum {
		in.ChecksumAlgorithm = types.ChecksumAlgorithmCrc32c
	}
	go func() {
		_, err := u.Upload(ctx, in)
		// A failed upload must not leave Write blocked on the pipe.
		_ = pr.CloseWithError(err)
		w.result <- err
	}()
	return w
}

func (w *multipartWriter) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

// Sync is a no-op: nothing is visible before Close.
func (w *multipartWriter) Sync() error { return nil }

// finish ends the pipe with cause (nil for a clean EOF) and waits for the
// uploader. It is idempotent.
func (w *multipartWriter) finish(cause error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return w.err
	}
	w.done = true
	if cause != nil {
		w.cancel()
	}
	_ = w.pw.CloseWithError(cause)
	w.err = <-w.result
	w.cancel()
	if w.err == nil && cause != nil {
		w.err = cause
	}
	return w.err
}

func (w *multipartWriter) Close() error {
	return w.finish(nil)
}

// Abort stops the upload. The uploader aborts the multipart upload unless
// LeavePartsOnError is set.
func (w *multipartWriter) Abort() error {
	_ = w.finish(errUploadAborted)
	return nil
}

// putWithChecksum uploads a small blob with CRC32C integrity validation.
func putWithChecksum(ctx context.Context, client Client, bucket, key string, data []byte) error {
	checksum := computeCRC32C(data)

	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:         aws.String(bucket),
		Key:            aws.String(key),
		Body:           bytes.NewReader(data),
		ContentLength:  aws.Int64(int64(len(data))),
		ChecksumCRC32C: aws.String(checksum),
	})

	return err
}
