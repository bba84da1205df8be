package isochrone

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
)

const s3Scheme = "s3://"

// IsObjectURI reports whether location names an object in S3.
func IsObjectURI(location string) bool {
	return strings.HasPrefix(location, s3Scheme)
}

// ParseObjectURI splits s3://bucket/key into its bucket and key.
func ParseObjectURI(location string) (bucket, key string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("%w: %s is not an s3:// URI", ErrInvalidLocation, location)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("%w: %s needs both a bucket and a key", ErrInvalidLocation, location)
	}
	return u.Host, key, nil
}

// Open returns the contents at location, which is either a local path or an
// s3:// URI served by store.
func Open(ctx context.Context, location string, store *Client) (io.ReadCloser, error) {
	if !IsObjectURI(location) {
		return os.Open(location)
	}

	bucket, key, err := ParseObjectURI(location)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("%w: no object store configured for %s", ErrInvalidLocation, location)
	}
	return store.GetObject(ctx, bucket, key)
}
