package storage

import (
	"context"
	"io"
	"path"
	"strings"

	errors "github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Mirror copies downloaded pdfs into an s3-compatible bucket. The
// bucket must already exist; uploads into a missing bucket surface as
// errors at Put time.
type Mirror struct {
	cli    *minio.Client
	bucket string
	prefix string
}

// MirrorOption configures the mirror.
type MirrorOption func(*Mirror) error

// WithMirrorPrefix stores objects under the given key prefix.
func WithMirrorPrefix(prefix string) MirrorOption {
	return func(m *Mirror) error {
		m.prefix = strings.TrimSuffix(prefix, "/")
		return nil
	}
}

// NewMirror wraps an s3 client for pdf mirroring.
func NewMirror(cli *minio.Client, bucket string, opts ...MirrorOption) (*Mirror, error) {
	if cli == nil {
		return nil, errors.New("minio client cannot be nil")
	}
	if bucket == "" {
		return nil, errors.New("bucket cannot be empty")
	}

	m := &Mirror{cli: cli, bucket: bucket}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	return m, nil
}

// NewMinioClient dials an s3-compatible endpoint with static credentials.
func NewMinioClient(endpoint, accessKey, secretKey string, useSSL bool) (*minio.Client, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "dial s3 endpoint %s", endpoint)
	}

	return cli, nil
}

// Put uploads one paper's pdf under `<prefix>/<id>.pdf`.
func (m *Mirror) Put(ctx context.Context, paperID string, r io.Reader, size int64) error {
	if err := ValidateID(paperID); err != nil {
		return errors.WithStack(err)
	}

	logger := gmw.GetLogger(ctx)
	objkey := paperID + ".pdf"
	if m.prefix != "" {
		objkey = path.Join(m.prefix, objkey)
	}

	if _, err := m.cli.PutObject(ctx,
		m.bucket,
		objkey,
		r,
		size,
		minio.PutObjectOptions{
			ContentType: "application/pdf",
		},
	); err != nil {
		return errors.Wrapf(err, "upload %s to bucket %s", objkey, m.bucket)
	}

	logger.Info("mirrored pdf",
		zap.String("bucket", m.bucket),
		zap.String("objkey", objkey))
	return nil
}
