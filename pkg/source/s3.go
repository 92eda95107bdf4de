package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the slice of the S3 client the source needs.
type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source enumerates image objects under one or more key prefixes and stages
// each one into a local directory for processing. Staged files are removed by
// Discard unless the source was created with keep set.
type S3Source struct {
	api      S3API
	bucket   string
	prefixes []string
	stageDir string
	keep     bool
}

func NewS3Source(api S3API, bucket string, prefixes []string, stageDir string, keep bool) *S3Source {
	if len(prefixes) == 0 {
		// An empty prefix lists the whole bucket.
		prefixes = []string{""}
	}
	return &S3Source{
		api:      api,
		bucket:   bucket,
		prefixes: prefixes,
		stageDir: stageDir,
		keep:     keep,
	}
}

func (s *S3Source) List(ctx context.Context) ([]string, error) {
	var keys []string
	for _, prefix := range s.prefixes {
		paginator := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
			Bucket: aws.String(s.bucket),
			Prefix: aws.String(prefix),
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("list s3://%s/%s: %w", s.bucket, prefix, err)
			}
			for _, obj := range page.Contents {
				if obj.Key == nil || !IsImage(*obj.Key) {
					continue
				}
				keys = append(keys, *obj.Key)
			}
		}
	}
	return keys, nil
}

// Fetch downloads the object into the staging directory. Keys are flattened
// into unique file names so objects from nested prefixes cannot clash.
func (s *S3Source) Fetch(ctx context.Context, key string) (Record, error) {
	if err := os.MkdirAll(s.stageDir, 0755); err != nil {
		return Record{}, err
	}
	dest := filepath.Join(s.stageDir, strings.ReplaceAll(key, "/", "_"))

	obj, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return Record{}, fmt.Errorf("download s3://%s/%s: %w", s.bucket, key, err)
	}
	defer obj.Body.Close()

	f, err := os.Create(dest)
	if err != nil {
		return Record{}, err
	}
	if _, err := io.Copy(f, obj.Body); err != nil {
		f.Close()
		os.Remove(dest)
		return Record{}, fmt.Errorf("stage s3://%s/%s: %w", s.bucket, key, err)
	}
	if err := f.Close(); err != nil {
		return Record{}, err
	}
	return Record{ID: key, Path: dest, Staged: true}, nil
}

func (s *S3Source) Discard(rec Record) error {
	if !rec.Staged || s.keep {
		return nil
	}
	return os.Remove(rec.Path)
}
