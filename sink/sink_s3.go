package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Sink struct {
	client s3API

	bucket    string
	bucketPtr *string
	prefix    string
}

func New(client s3API, bucket, prefix string) *Sink {
	if client == nil {
		panic("s3 client is required")
	}
	if strings.TrimSpace(bucket) == "" {
		panic("bucket is required")
	}

	s := &Sink{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
	s.bucketPtr = &s.bucket
	return s
}

// Bucket returns the destination bucket name.
func (s *Sink) Bucket() string { return s.bucket }

// ObjectKey returns the full object key for a request key, prefix included.
func (s *Sink) ObjectKey(key string) string {
	// Keeps S3 semantics (no path cleaning).
	key = strings.TrimLeft(key, "/")
	if s.prefix != "" {
		key = s.prefix + "/" + key
	}
	return key
}

func (s *Sink) Write(ctx context.Context, req WriteRequest) error {
	if req.Key == "" {
		return fmt.Errorf("empty key")
	}

	key := s.ObjectKey(req.Key)
	cl := int64(len(req.Data))

	input := s3.PutObjectInput{
		Bucket:        s.bucketPtr,
		Key:           &key,
		Body:          bytes.NewReader(req.Data),
		ContentLength: &cl,
	}
	if req.ContentType != "" {
		ct := req.ContentType
		input.ContentType = &ct
	}
	if len(req.Metadata) > 0 {
		input.Metadata = req.Metadata
	}

	_, err := s.client.PutObject(ctx, &input)
	if err != nil {
		return fmt.Errorf("put s3 object bucket=%q key=%q: %w", s.bucket, key, err)
	}
	return nil
}

// permanentCodes are API error codes that no retry can fix: bad or missing
// credentials, or a bucket that was never provisioned.
var permanentCodes = map[string]struct{}{
	"AccessDenied":          {},
	"InvalidAccessKeyId":    {},
	"SignatureDoesNotMatch": {},
	"NoSuchBucket":          {},
	"InvalidBucketName":     {},
	"AllAccessDisabled":     {},
	"InvalidArgument":       {},
}

// Retryable reports whether a Write error may succeed on a later attempt.
// Everything that is not a known permanent API error, including connectivity
// failures, is considered retryable. Context cancellation is not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		_, permanent := permanentCodes[apiErr.ErrorCode()]
		return !permanent
	}
	return true
}
