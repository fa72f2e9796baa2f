package export

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/goliatone/go-formcatalog/pkg/dataset"
)

type s3Settings struct {
	client    *s3.Client
	region    string
	endpoint  string
	pathStyle bool
}

// WithS3Client uses client instead of loading the default AWS configuration.
func WithS3Client(client *s3.Client) Option {
	return func(s *settings) {
		s.s3.client = client
	}
}

// WithS3Endpoint targets an S3-compatible endpoint such as MinIO.
func WithS3Endpoint(endpoint string, pathStyle bool) Option {
	return func(s *settings) {
		s.s3.endpoint = strings.TrimSpace(endpoint)
		s.s3.pathStyle = pathStyle
	}
}

// WithS3Region sets the region used when loading the AWS configuration.
func WithS3Region(region string) Option {
	return func(s *settings) {
		s.s3.region = strings.TrimSpace(region)
	}
}

// S3Writer uploads a table as a CSV object to s3://bucket/key.
type S3Writer struct {
	cfg    s3Settings
	logger *zap.Logger

	once   sync.Once
	client *s3.Client
	err    error
}

func newS3Writer(s settings) *S3Writer {
	return &S3Writer{cfg: s.s3, logger: s.logger, client: s.s3.client}
}

// Write encodes table as CSV and puts it at destination.
func (w *S3Writer) Write(ctx context.Context, table dataset.Table, destination string) error {
	bucket, key, err := ParseS3URL(destination)
	if err != nil {
		return err
	}
	var body bytes.Buffer
	if err := EncodeCSV(&body, table); err != nil {
		return err
	}
	client, err := w.s3Client(ctx)
	if err != nil {
		return err
	}
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body.Bytes()),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("export: put s3://%s/%s: %w", bucket, key, err)
	}
	w.logger.Info("table written",
		zap.String("table", table.Name), zap.String("destination", destination), zap.Int("rows", len(table.Rows)))
	return nil
}

func (w *S3Writer) s3Client(ctx context.Context) (*s3.Client, error) {
	if w.client != nil {
		return w.client, nil
	}
	w.once.Do(func() {
		region := w.cfg.region
		if region == "" {
			region = "us-east-1"
		}
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
		if err != nil {
			w.err = fmt.Errorf("export: load aws config: %w", err)
			return
		}
		w.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = w.cfg.pathStyle
			if w.cfg.endpoint != "" {
				o.BaseEndpoint = aws.String(w.cfg.endpoint)
			}
		})
	})
	return w.client, w.err
}

// ParseS3URL splits "s3://bucket/key" into its bucket and key.
func ParseS3URL(raw string) (string, string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("export: parse %q: %w", raw, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("export: %q is not an s3://bucket/key url", raw)
	}
	key := strings.TrimPrefix(path.Clean("/"+u.Path), "/")
	if key == "" {
		return "", "", fmt.Errorf("export: %q has no object key", raw)
	}
	return u.Host, key, nil
}
