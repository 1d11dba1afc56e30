package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client the store uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures an S3Store.
type S3Options struct {
	Bucket        string
	Region        string
	Endpoint      string // S3-compatible endpoint (MinIO, Supabase storage)
	PublicBaseURL string
	SSE           string // "", "AES256" or a KMS key id
}

// S3Store uploads resumes to a single bucket.
type S3Store struct {
	client        S3API
	bucket        string
	region        string
	publicBaseURL string
	sse           string
}

// NewS3 loads the default AWS credential chain and builds an S3Store.
func NewS3(ctx context.Context, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3WithClient(client, opts), nil
}

// NewS3WithClient builds a store over an existing client.
func NewS3WithClient(client S3API, opts S3Options) *S3Store {
	return &S3Store{
		client:        client,
		bucket:        opts.Bucket,
		region:        opts.Region,
		publicBaseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
		sse:           strings.TrimSpace(opts.SSE),
	}
}

func (s *S3Store) Upload(ctx context.Context, key, contentType string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}

	// Seekable bodies keep payload signing and checksums available.
	counter := &countingReader{r: r}
	var size int64 = -1
	if rs, ok := r.(io.ReadSeeker); ok {
		end, err := rs.Seek(0, io.SeekEnd)
		if err == nil {
			_, err = rs.Seek(0, io.SeekStart)
		}
		if err != nil {
			return 0, fmt.Errorf("seek body: %w", err)
		}
		size = end
		input.Body = rs
		input.ContentLength = aws.Int64(size)
	} else {
		input.Body = counter
	}
	switch s.sse {
	case "":
	case "AES256":
		input.ServerSideEncryption = s3types.ServerSideEncryptionAes256
	default:
		input.ServerSideEncryption = s3types.ServerSideEncryptionAwsKms
		input.SSEKMSKeyId = aws.String(s.sse)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return 0, fmt.Errorf("s3 put object bucket=%s key=%s: %w", s.bucket, key, err)
	}
	if size >= 0 {
		return size, nil
	}
	return counter.n, nil
}

// PublicURL prefers the configured base URL and falls back to the
// virtual-hosted S3 address.
func (s *S3Store) PublicURL(key string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + escapeKey(key)
	}
	region := s.region
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, region, escapeKey(key))
}

var _ ObjectStore = (*S3Store)(nil)
