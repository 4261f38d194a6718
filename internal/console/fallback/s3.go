package fallback

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrijs2005/matchdesk/internal/logging"
)

// maxDatasetSize caps the object read from the bucket.
const maxDatasetSize = 8 << 20

var loadDefaultAWSConfig = config.LoadDefaultConfig

// S3Config locates a dataset object. Endpoint is set for S3-compatible
// stores such as MinIO; empty means AWS.
type S3Config struct {
	Bucket    string
	Key       string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

func (c S3Config) Enabled() bool { return c.Bucket != "" && c.Key != "" }

type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Loader fetches the dataset from object storage, so operators can refresh
// demo content without a release. Any failure falls back to the embedded copy.
type S3Loader struct {
	bucket   string
	key      string
	client   objectGetter
	fallback Loader
	logger   logging.Logger
	now      func() time.Time
}

func NewS3Loader(ctx context.Context, cfg S3Config, logger logging.Logger) (*S3Loader, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Loader(cfg, client, logger), nil
}

func newS3Loader(cfg S3Config, client objectGetter, logger logging.Logger) *S3Loader {
	return &S3Loader{
		bucket:   cfg.Bucket,
		key:      cfg.Key,
		client:   client,
		fallback: EmbeddedLoader{},
		logger:   logger.With("component", "fallback-s3"),
		now:      time.Now,
	}
}

func (l *S3Loader) Load(ctx context.Context) (*Dataset, error) {
	d, err := l.fetch(ctx)
	if err == nil {
		return d, nil
	}
	l.logger.Warn(ctx, "using embedded fallback dataset", "bucket", l.bucket, "key", l.key, "error", err)
	return l.fallback.Load(ctx)
}

func (l *S3Loader) fetch(ctx context.Context) (*Dataset, error) {
	out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(l.key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(out.Body, maxDatasetSize))
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	return Parse(raw, l.now())
}
