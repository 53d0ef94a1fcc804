package datasources

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"fuse-query-go/config"
	"fuse-query-go/errors"
	"fuse-query-go/logger"

	"github.com/minio/minio-go"
)

var (
	_ = (ParquetFile)(&ObjectReader{})
	_ = (io.ReadCloser)(&ObjectReader{})
)

// ObjectStore reads csv and parquet tables out of an S3 compatible bucket.
type ObjectStore struct {
	client *minio.Client
	bucket string
}

// NewObjectStore connects with the configured endpoint and the credentials
// loaded by config.LoadSecrets.
func NewObjectStore() (*ObjectStore, error) {
	cfg := config.GetConfig()
	client, err := minio.New(cfg.Storage.S3Endpoint, cfg.Secrets.AccessKey, cfg.Secrets.SecretKey, cfg.Storage.S3UseSSL)
	if err != nil {
		return nil, errors.ErrIO(err, "cannot create object store client for %s", cfg.Storage.S3Endpoint)
	}
	return &ObjectStore{client: client, bucket: cfg.Storage.S3Bucket}, nil
}

func (s *ObjectStore) Bucket() string { return s.bucket }

// Open stats the object and returns a reader positioned at its start.
func (s *ObjectStore) Open(ctx context.Context, key string) (*ObjectReader, error) {
	info, err := s.client.StatObject(s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, errors.ErrIO(err, "failed to stat object %s/%s", s.bucket, key)
	}
	return &ObjectReader{ctx: ctx, client: s.client, bucket: s.bucket, key: key, size: info.Size}, nil
}

// Opener adapts key for NewCSVTable.
func (s *ObjectStore) Opener(key string) Opener {
	return func(ctx context.Context) (io.ReadCloser, error) {
		r, err := s.Open(ctx, key)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
}

// ParquetOpener adapts key for NewParquetTable.
func (s *ObjectStore) ParquetOpener(key string) ParquetOpener {
	return func(ctx context.Context) (ParquetFile, error) {
		r, err := s.Open(ctx, key)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
}

// ObjectReader reads an object with ranged GETs. Sequential reads share one
// streaming body; ReadAt issues a request per call.
type ObjectReader struct {
	ctx    context.Context
	client *minio.Client
	bucket string
	key    string
	size   int64
	pos    int64

	// open body for sequential reads, starting at streamPos
	stream    *minio.Object
	streamPos int64
}

func (r *ObjectReader) Size() int64 { return r.size }

func (r *ObjectReader) getRange(off, end int64) (*minio.Object, error) {
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, end); err != nil {
		return nil, err
	}
	return r.client.GetObjectWithContext(r.ctx, r.bucket, r.key, opts)
}

func (r *ObjectReader) Read(p []byte) (int, error) {
	if r.pos >= r.size {
		return 0, io.EOF
	}
	if r.stream == nil || r.streamPos != r.pos {
		r.closeStream()
		obj, err := r.getRange(r.pos, r.size-1)
		if err != nil {
			return 0, errors.ErrIO(err, "failed to read object %s", r.key)
		}
		r.stream, r.streamPos = obj, r.pos
	}
	n, err := r.stream.Read(p)
	r.pos += int64(n)
	r.streamPos = r.pos
	return n, err
}

// ReadAt implements io.ReaderAt for the parquet reader.
func (r *ObjectReader) ReadAt(p []byte, off int64) (int, error) {
	if off >= r.size {
		return 0, io.EOF
	}
	end := off + int64(len(p)) - 1
	if end >= r.size {
		end = r.size - 1
	}
	obj, err := r.getRange(off, end)
	if err != nil {
		return 0, errors.ErrIO(err, "failed to read object %s at %d", r.key, off)
	}
	defer obj.Close()
	n, err := io.ReadFull(obj, p[:end-off+1])
	if err == nil && n < len(p) {
		err = io.EOF
	}
	return n, err
}

func (r *ObjectReader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.pos + offset
	case io.SeekEnd:
		abs = r.size + offset
	default:
		return 0, fmt.Errorf("unsupported seek mode for object store: %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("negative position %d seeking %s", abs, r.key)
	}
	r.pos = abs
	return abs, nil
}

func (r *ObjectReader) closeStream() {
	if r.stream != nil {
		if err := r.stream.Close(); err != nil {
			logger.Warn("failed to close object stream", "key", r.key, "error", err)
		}
		r.stream = nil
	}
}

func (r *ObjectReader) Close() error {
	r.closeStream()
	return nil
}

// DownloadLocally copies the object into a file under dir, rewound to the
// start. The caller removes the file.
func (r *ObjectReader) DownloadLocally(dir string) (*os.File, error) {
	f, err := os.CreateTemp(dir, fmt.Sprintf("object-%d-*", time.Now().UnixNano()))
	if err != nil {
		return nil, errors.ErrIO(err, "cannot create local copy of %s", r.key)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return nil, errors.ErrIO(err, "cannot download %s", r.key)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, errors.ErrIO(err, "cannot rewind %s", f.Name())
	}
	return f, nil
}
