package blob

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bridgepool/bridgepool/internal/utils"
	"github.com/dustin/go-humanize"
)

// UploadResult describes an object written by the Uploader
type UploadResult struct {
	Key          string
	Size         int64
	ETag         string
	Version      string
	LastModified time.Time
}

// Uploader copies finished export files into a bucket.
type Uploader struct {
	s3Client *s3.Client
	config   *Config
}

func NewUploader(s3Client *s3.Client, cfg *Config) *Uploader {
	return &Uploader{
		s3Client: s3Client,
		config:   cfg,
	}
}

// NewUploaderWithConfig builds the S3 client from cfg.
func NewUploaderWithConfig(ctx context.Context, cfg *Config) (*Uploader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}

	// a buildable client lets the sdk add AWS_CA_BUNDLE roots
	httpClient := awshttp.NewBuildableClient().
		WithTimeout(5 * time.Minute).
		WithTransportOptions(func(t *http.Transport) {
			t.Proxy = http.ProxyFromEnvironment
			t.MaxIdleConns = 10
			t.IdleConnTimeout = 90 * time.Second
			t.TLSHandshakeTimeout = 10 * time.Second
			t.ExpectContinueTimeout = 1 * time.Second
			t.ForceAttemptHTTP2 = true
		})

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		config.WithHTTPClient(httpClient),
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("blob: load aws config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		// third party s3 servers often reject the newer default checksums
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	return NewUploader(s3Client, cfg), nil
}

// Key returns the object key a local file is stored under
func (u *Uploader) Key(localPath string) string {
	name := filepath.Base(localPath)
	prefix := strings.Trim(u.config.Prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// UploadFile puts localPath into the bucket, replacing any existing object.
func (u *Uploader) UploadFile(ctx context.Context, localPath string) (*UploadResult, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpload, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpload, err)
	}

	key := u.Key(localPath)
	resp, err := u.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.config.BucketName),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(utils.DetectContentType(localPath)),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: put %s/%s: %w", ErrUpload, u.config.BucketName, key, err)
	}

	slog.Info("uploaded", "bucket", u.config.BucketName, "key", key, "size", humanize.Bytes(uint64(info.Size())))

	// PutObjectOutput carries no LastModified
	return &UploadResult{
		Key:          key,
		Size:         info.Size(),
		ETag:         strings.ReplaceAll(aws.ToString(resp.ETag), "\"", ""),
		Version:      aws.ToString(resp.VersionId),
		LastModified: time.Now().UTC(),
	}, nil
}
