package storage

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/OFFIS-RIT/argmap/pkg/store"
	"github.com/OFFIS-RIT/argmap/pkg/store/base"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 keeps objects in memory and pages listings two keys at a time.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	lists   int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++

	var keys []string
	for k := range f.objects {
		key := strings.TrimPrefix(k, *in.Bucket+"/")
		if !strings.HasPrefix(k, *in.Bucket+"/") || !strings.HasPrefix(key, *in.Prefix) {
			continue
		}
		if strings.Contains(strings.TrimPrefix(key, *in.Prefix), "/") {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	start := 0
	if in.ContinuationToken != nil {
		for i, k := range keys {
			if k == *in.ContinuationToken {
				start = i
			}
		}
	}
	end := min(start+2, len(keys))

	out := &s3.ListObjectsV2Output{}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(keys) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[end])
	}
	return out, nil
}

func TestS3Bucket(t *testing.T) {
	client := newFakeS3()
	b := NewS3Bucket(client, "argmap", "/saved/")
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, "queries/abc.json", []byte("a")))
	assert.Contains(t, client.objects, "argmap/saved/queries/abc.json")

	data, err := b.Get(ctx, "queries/abc.json")
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))

	_, err = b.Get(ctx, "queries/missing.json")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestS3Bucket_ListPages(t *testing.T) {
	client := newFakeS3()
	b := NewS3Bucket(client, "argmap", "")
	ctx := context.Background()

	for _, k := range []string{"queries/a.json", "queries/b.json", "queries/c.json", "results/a.json"} {
		require.NoError(t, b.Put(ctx, k, []byte("{}")))
	}

	keys, err := b.List(ctx, "queries")
	require.NoError(t, err)
	assert.Equal(t, []string{"queries/a.json", "queries/b.json", "queries/c.json"}, keys)
	assert.Equal(t, 2, client.lists)
}

func TestS3Bucket_BacksBlobStore(t *testing.T) {
	s := base.NewBlobStore(NewS3Bucket(newFakeS3(), "argmap", "prod"))
	ctx := context.Background()

	hash, err := s.SaveQuery(ctx, store.Query{Text: "text"})
	require.NoError(t, err)

	previews, err := s.ListQueries(ctx)
	require.NoError(t, err)
	require.Len(t, previews, 1)
	assert.Equal(t, hash, previews[0].Hash)

	_, err = s.GetResult(ctx, hash)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
