package isochrone

import (
	"context"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// tableExtensions are the suffixes model-grid tables are published with.
var tableExtensions = []string{".dat", ".txt"}

// Client reads isochrone tables from S3-compatible object storage.
type Client struct {
	s3Client *s3.Client
	logger   *zap.Logger
}

// ObjectInfo describes one table object in a bucket.
type ObjectInfo struct {
	Bucket       string
	Key          string
	Name         string
	Size         int64
	ModifiedTime int64 // Unix timestamp in microseconds
}

// URI returns the s3:// location of the object.
func (o ObjectInfo) URI() string {
	return "s3://" + o.Bucket + "/" + o.Key
}

func NewClient(cfg map[string]string, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	useSSL := true
	if sslStr := cfg["use_ssl"]; sslStr != "" {
		if parsed, err := strconv.ParseBool(sslStr); err == nil {
			useSSL = parsed
		}
	}

	region := cfg["region"]
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg["access_key_id"] != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg["access_key_id"],
			cfg["secret_access_key"],
			"",
		)))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := cfg["endpoint"]
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint == "" {
			return
		}
		// Custom endpoints are MinIO-style and need path addressing
		o.BaseEndpoint = aws.String(endpointURL(endpoint, useSSL))
		o.UsePathStyle = true
	})

	return &Client{
		s3Client: s3Client,
		logger:   logger,
	}, nil
}

func endpointURL(endpoint string, useSSL bool) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

func (c *Client) Ping(ctx context.Context, bucket string) error {
	_, err := c.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to S3: %w", err)
	}
	return nil
}

// GetObject opens the object body. The caller closes it.
func (c *Client) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	c.logger.Debug("Fetching isochrone table", zap.String("bucket", bucket), zap.String("key", key))

	result, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", bucket, key, err)
	}
	return result.Body, nil
}

// ListTables lists table objects under prefix.
func (c *Client) ListTables(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(c.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !hasTableExtension(key) {
				continue
			}

			var modifiedTime int64
			if obj.LastModified != nil {
				modifiedTime = obj.LastModified.UnixMicro()
			}

			objects = append(objects, ObjectInfo{
				Bucket:       bucket,
				Key:          key,
				Name:         path.Base(key),
				Size:         aws.ToInt64(obj.Size),
				ModifiedTime: modifiedTime,
			})
		}
	}

	c.logger.Info("Listed isochrone tables",
		zap.String("bucket", bucket),
		zap.String("prefix", prefix),
		zap.Int("tables", len(objects)))

	return objects, nil
}

func hasTableExtension(key string) bool {
	ext := path.Ext(key)
	for _, a := range tableExtensions {
		if strings.EqualFold(ext, a) {
			return true
		}
	}
	return false
}
