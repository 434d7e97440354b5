package blob

import "errors"

var (
	ErrNoBucket = errors.New("blob: bucket name missing")
	ErrUpload   = errors.New("blob: upload failed")
)

const DefaultRegion = "us-east-1"

// Config points the uploader at an S3 compatible bucket. When AccessKey is empty
// the default AWS credential chain is used.
type Config struct {
	BucketName string
	Prefix     string
	Region     string
	Endpoint   string // custom endpoint (minio, garage); forces path-style addressing
	AccessKey  string
	SecretKey  string
}

func (c *Config) Validate() error {
	if c.BucketName == "" {
		return ErrNoBucket
	}
	return nil
}
