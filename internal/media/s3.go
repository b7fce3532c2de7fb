package media

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3Store uploads to an S3 bucket. A custom endpoint switches to path-style
// addressing so minio-compatible stores work unchanged.
type S3Store struct {
	uploader *s3manager.Uploader
	bucket   string
	baseURL  string
}

func NewS3Store(bucket, region, accessKey, secretKey, endpoint, publicBaseURL string) (*S3Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("media: s3 bucket not configured")
	}

	cfg := &aws.Config{Region: aws.String(region)}
	if accessKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("media: s3 session: %w", err)
	}

	return &S3Store{
		uploader: s3manager.NewUploader(sess),
		bucket:   bucket,
		baseURL:  strings.TrimSuffix(publicBaseURL, "/"),
	}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, _ int64, contentType string) (string, error) {
	out, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
		ACL:         aws.String("public-read"),
	})
	if err != nil {
		return "", fmt.Errorf("media: s3 upload %q: %w", key, err)
	}

	if s.baseURL != "" {
		return s.baseURL + "/" + key, nil
	}
	return out.Location, nil
}
