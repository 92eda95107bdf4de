package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeS3 struct {
	objects  map[string][]byte
	failKeys map[string]bool
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var keys []string
	for key := range f.objects {
		if strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var contents []s3types.Object
	for _, key := range keys {
		contents = append(contents, s3types.Object{Key: aws.String(key)})
	}
	return &s3.ListObjectsV2Output{Contents: contents}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Key)
	if f.failKeys[key] {
		return nil, errors.New("simulated download failure")
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects: map[string][]byte{
			"event-a/1.jpg":        []byte("one"),
			"event-a/2.jpeg":       []byte("two"),
			"event-a/notes.txt":    []byte("skip me"),
			"event-b/nested/3.png": []byte("three"),
		},
		failKeys: map[string]bool{},
	}
}

func TestS3SourceList(t *testing.T) {
	src := NewS3Source(newFakeS3(), "bucket", []string{"event-a"}, t.TempDir(), false)
	keys, err := src.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"event-a/1.jpg", "event-a/2.jpeg"}
	if len(keys) != len(want) {
		t.Fatalf("expected %v, got %v", want, keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("expected %v, got %v", want, keys)
			break
		}
	}
}

func TestS3SourceListMultiplePrefixes(t *testing.T) {
	src := NewS3Source(newFakeS3(), "bucket", []string{"event-a", "event-b"}, t.TempDir(), false)
	keys, err := src.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 3 {
		t.Fatalf("expected 3 keys across prefixes, got %v", keys)
	}
}

func TestS3SourceFetchStagesFlattenedKey(t *testing.T) {
	stageDir := t.TempDir()
	src := NewS3Source(newFakeS3(), "bucket", nil, stageDir, false)

	rec, err := src.Fetch(context.Background(), "event-b/nested/3.png")
	if err != nil {
		t.Fatal(err)
	}
	if !rec.Staged {
		t.Error("S3 fetches must be marked staged")
	}
	if filepath.Base(rec.Path) != "event-b_nested_3.png" {
		t.Errorf("key not flattened: %v", rec.Path)
	}
	data, err := os.ReadFile(rec.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "three" {
		t.Errorf("staged file holds %q, want %q", data, "three")
	}

	// Without keep, discard removes the staged copy
	if err := src.Discard(rec); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(rec.Path); !os.IsNotExist(err) {
		t.Errorf("staged file still present after discard: %v", err)
	}
}

func TestS3SourceKeepImages(t *testing.T) {
	stageDir := t.TempDir()
	src := NewS3Source(newFakeS3(), "bucket", nil, stageDir, true)

	rec, err := src.Fetch(context.Background(), "event-a/1.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if err := src.Discard(rec); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(rec.Path); err != nil {
		t.Errorf("staged file removed despite keep: %v", err)
	}
}

func TestS3SourceFetchError(t *testing.T) {
	api := newFakeS3()
	api.failKeys["event-a/1.jpg"] = true
	src := NewS3Source(api, "bucket", nil, t.TempDir(), false)

	if _, err := src.Fetch(context.Background(), "event-a/1.jpg"); err == nil {
		t.Fatal("expected download error")
	}
}
