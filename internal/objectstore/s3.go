// Package objectstore implements document blob storage on S3-compatible services.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/MarkoPoloResearchLab/cartegrise/pkg/portal"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const maxObjectBytes = 64 << 20

var (
	errMissingBucket    = errors.New("objectstore: bucket is required")
	errMissingPublicURL = errors.New("objectstore: public base url or endpoint is required")
	errObjectTooLarge   = errors.New("objectstore: object exceeds read limit")
)

// loadAWSConfig is replaced in tests.
var loadAWSConfig = config.LoadDefaultConfig

// S3Config describes the bucket holding uploaded documents.
type S3Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	// PublicBaseURL prefixes "/<bucket>/<key>" in stored document URLs. Defaults to Endpoint.
	PublicBaseURL string
	UsePathStyle  bool
}

type objectAPI interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store implements portal.BlobStore.
type S3Store struct {
	client        objectAPI
	bucket        string
	publicBaseURL string
}

// NewS3Store builds an S3 client from cfg. Static credentials are used when provided,
// otherwise the default AWS credential chain applies.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errMissingBucket
	}
	publicBase := strings.TrimSpace(cfg.PublicBaseURL)
	if publicBase == "" {
		publicBase = strings.TrimSpace(cfg.Endpoint)
	}
	if publicBase == "" {
		return nil, errMissingPublicURL
	}
	options := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		options = append(options, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsConfig, err := loadAWSConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("objectstore: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsConfig, func(options *s3.Options) {
		if cfg.Endpoint != "" {
			options.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		options.UsePathStyle = cfg.UsePathStyle
	})
	return newS3Store(client, cfg.Bucket, publicBase), nil
}

func newS3Store(client objectAPI, bucket string, publicBaseURL string) *S3Store {
	return &S3Store{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// Bucket returns the bucket name.
func (store *S3Store) Bucket() string {
	return store.bucket
}

// PublicURL returns the public address of key.
func (store *S3Store) PublicURL(key string) string {
	segments := strings.Split(strings.Trim(key, "/"), "/")
	for index, segment := range segments {
		segments[index] = url.PathEscape(segment)
	}
	return store.publicBaseURL + "/" + url.PathEscape(store.bucket) + "/" + strings.Join(segments, "/")
}

// Put uploads body under key and returns its public URL.
func (store *S3Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	// The SDK signs the payload, so the body must be seekable.
	payload, err := io.ReadAll(io.LimitReader(body, size+1))
	if err != nil {
		return "", fmt.Errorf("objectstore: read body: %w", err)
	}
	if int64(len(payload)) != size {
		return "", fmt.Errorf("objectstore: body length %d does not match declared size %d", len(payload), size)
	}
	input := &s3.PutObjectInput{
		Bucket:        aws.String(store.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(payload),
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := store.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("objectstore: put %s: %w", key, err)
	}
	return store.PublicURL(key), nil
}

// Get downloads the object stored under key.
func (store *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	output, err := store.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(store.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("objectstore: get %s: %w", key, portal.ErrNotFound)
		}
		return nil, fmt.Errorf("objectstore: get %s: %w", key, err)
	}
	defer output.Body.Close()
	data, err := io.ReadAll(io.LimitReader(output.Body, maxObjectBytes+1))
	if err != nil {
		return nil, fmt.Errorf("objectstore: read %s: %w", key, err)
	}
	if len(data) > maxObjectBytes {
		return nil, errObjectTooLarge
	}
	return data, nil
}

// Delete removes the object stored under key. Missing objects are not an error on S3.
func (store *S3Store) Delete(ctx context.Context, key string) error {
	_, err := store.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(store.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("objectstore: delete %s: %w", key, err)
	}
	return nil
}
