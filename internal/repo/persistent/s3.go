package persistent

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/kactica/og-image-generator/pkg/s3client"
)

// ImageRepo is the artifact blob sink.
type ImageRepo struct {
	*s3client.S3Client
	bucket string
}

func NewImageRepo(s3c *s3client.S3Client, bucket string) *ImageRepo {
	return &ImageRepo{s3c, bucket}
}

func (r *ImageRepo) UploadBytes(ctx context.Context, key string, data []byte, contentType string, size int64) error {
	b := bytes.NewReader(data)

	_, err := r.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(key),
		Body:          b,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
		ACL:           "public-read",
	})
	if err != nil {
		return fmt.Errorf("ImageRepo - UploadBytes - r.Client.PutObject: %w", err)
	}

	return nil
}

func (r *ImageRepo) Delete(ctx context.Context, key string) error {
	_, err := r.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("ImageRepo - Delete - r.Client.DeleteObject: %w", err)
	}

	return nil
}

func (r *ImageRepo) PublicURL(key string) string {
	return r.S3Client.PublicURL(r.bucket, key)
}
