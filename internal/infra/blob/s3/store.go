// Package s3 implements the blob store on an S3-compatible service (AWS S3,
// MinIO). A single physical bucket is used; logical buckets become the first
// key segment.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"digitalroom/internal/blob/core"
)

// Store implements core.Store using an S3-compatible backend.
type Store struct {
	client        *s3.Client
	bucket        string
	region        string
	endpoint      *url.URL
	publicBaseURL string
}

// Config holds construction parameters. Empty credentials fall back to the
// default AWS credential chain.
type Config struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	Endpoint        string `mapstructure:"endpoint"`
	PathStyle       bool   `mapstructure:"path_style"`
	PublicBaseURL   string `mapstructure:"public_base_url"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// New creates an S3 blob store from Config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newStore(client, cfg, region), nil
}

func newStore(client *s3.Client, cfg Config, region string) *Store {
	s := &Store{client: client, bucket: cfg.Bucket, region: region, publicBaseURL: cfg.PublicBaseURL}
	if cfg.Endpoint != "" {
		if u, err := url.Parse(cfg.Endpoint); err == nil {
			s.endpoint = u
		}
	}
	return s
}

func (s *Store) Driver() core.Driver { return core.DriverS3 }

func (s *Store) key(bucket, p string) (string, error) {
	clean, err := core.CleanPath(bucket, p)
	if err != nil {
		return "", err
	}
	return bucket + "/" + clean, nil
}

// Upload buffers r, refuses occupied keys and stores the object.
func (s *Store) Upload(ctx context.Context, bucket, p string, r io.Reader, opts core.UploadOptions) (core.Object, error) {
	key, err := s.key(bucket, p)
	if err != nil {
		return core.Object{}, err
	}
	exists, err := s.exists(ctx, key)
	if err != nil {
		return core.Object{}, err
	}
	if exists {
		return core.Object{}, fmt.Errorf("%s: %w", key, core.ErrExists)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return core.Object{}, err
	}
	input := &s3.PutObjectInput{Bucket: &s.bucket, Key: &key, Body: bytes.NewReader(body)}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = opts.Metadata
	}
	out, err := s.client.PutObject(ctx, input)
	if err != nil {
		return core.Object{}, fmt.Errorf("put %s: %w", key, err)
	}
	clean := strings.TrimPrefix(key, bucket+"/")
	return core.Object{
		Bucket:       bucket,
		Path:         clean,
		Size:         int64(len(body)),
		ContentType:  opts.ContentType,
		ETag:         strings.Trim(aws.ToString(out.ETag), "\""),
		Metadata:     opts.Metadata,
		LastModified: time.Now().UTC(),
		URL:          s.PublicURL(bucket, clean),
	}, nil
}

// PublicURL prefers the configured public base, then the custom endpoint,
// then the virtual-hosted AWS form.
func (s *Store) PublicURL(bucket, p string) string {
	if s.publicBaseURL != "" {
		return core.JoinURL(s.publicBaseURL, bucket, p)
	}
	key := bucket + "/" + strings.TrimLeft(p, "/")
	if s.endpoint != nil {
		return strings.TrimRight(s.endpoint.String(), "/") + "/" + s.bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// Remove deletes an object, reporting whether it existed.
func (s *Store) Remove(ctx context.Context, bucket, p string) (bool, error) {
	key, err := s.key(bucket, p)
	if err != nil {
		return false, err
	}
	exists, err := s.exists(ctx, key)
	if err != nil || !exists {
		return false, err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &key}); err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	return true, nil
}

// List pages through ListObjectsV2 under the logical bucket.
func (s *Store) List(ctx context.Context, bucket, prefix string) ([]core.Object, error) {
	if strings.TrimSpace(bucket) == "" || strings.Contains(bucket, "..") || strings.Contains(bucket, "/") {
		return nil, fmt.Errorf("invalid bucket %q", bucket)
	}
	full := bucket + "/" + prefix
	out := make([]core.Object, 0)
	var token *string
	for {
		page, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: &s.bucket, Prefix: &full, ContinuationToken: token})
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", full, err)
		}
		for _, obj := range page.Contents {
			p := strings.TrimPrefix(aws.ToString(obj.Key), bucket+"/")
			out = append(out, core.Object{
				Bucket:       bucket,
				Path:         p,
				Size:         aws.ToInt64(obj.Size),
				ETag:         strings.Trim(aws.ToString(obj.ETag), "\""),
				LastModified: aws.ToTime(obj.LastModified),
				URL:          s.PublicURL(bucket, p),
			})
		}
		if aws.ToBool(page.IsTruncated) && page.NextContinuationToken != nil {
			token = page.NextContinuationToken
			continue
		}
		break
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *Store) exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if err == nil {
		return true, nil
	}
	var status interface{ HTTPStatusCode() int }
	if errors.As(err, &status) && status.HTTPStatusCode() == http.StatusNotFound {
		return false, nil
	}
	return false, fmt.Errorf("head %s: %w", key, err)
}
