package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeListClient struct {
	pages []*s3.ListObjectsV2Output
	err   error
	calls int
}

func (f *fakeListClient) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.err != nil {
		return nil, f.err
	}
	page := f.pages[f.calls]
	f.calls++
	return page, nil
}

func listPage(truncated bool, names ...string) *s3.ListObjectsV2Output {
	contents := make([]types.Object, len(names))
	for i, name := range names {
		contents[i] = types.Object{
			Key:  aws.String("tenant/recording/" + name),
			Size: aws.Int64(64),
		}
	}

	out := &s3.ListObjectsV2Output{
		Contents:    contents,
		IsTruncated: aws.Bool(truncated),
	}
	if truncated {
		out.NextContinuationToken = aws.String("next")
	}
	return out
}

func TestListDescending_NewestOnLaterPage(t *testing.T) {
	// S3 pages ascending, so the lexicographically greatest key arrives on
	// the final page. The newest name must still win after all pages are
	// consumed.
	client := &fakeListClient{
		pages: []*s3.ListObjectsV2Output{
			listPage(true, "0000000000100.json", "0000000000200.json"),
			listPage(false, "0000000000300.json"),
		},
	}

	objects, err := listDescending(context.Background(), client, "bucket", "tenant/recording", 100)

	require.Nil(t, err)
	require.Len(t, objects, 3)
	assert.Equal(t, 2, client.calls)
	assert.Equal(t, "0000000000300.json", objects[0].Name)
	assert.Equal(t, "tenant/recording/0000000000300.json", objects[0].Key)
	assert.Equal(t, "0000000000100.json", objects[2].Name)
}

func TestListDescending_SinglePage(t *testing.T) {
	client := &fakeListClient{
		pages: []*s3.ListObjectsV2Output{
			listPage(false, "0000000000100.json", "0000000000200.json"),
		},
	}

	objects, err := listDescending(context.Background(), client, "bucket", "tenant/recording", 100)

	require.Nil(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, "0000000000200.json", objects[0].Name)
}

func TestListDescending_CapAppliedAfterAllPages(t *testing.T) {
	client := &fakeListClient{
		pages: []*s3.ListObjectsV2Output{
			listPage(true, "0000000000100.json", "0000000000200.json"),
			listPage(false, "0000000000300.json", "0000000000400.json"),
		},
	}

	objects, err := listDescending(context.Background(), client, "bucket", "tenant/recording", 2)

	require.Nil(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "0000000000400.json", objects[0].Name)
	assert.Equal(t, "0000000000300.json", objects[1].Name)
}

func TestListDescending_PropagatesError(t *testing.T) {
	client := &fakeListClient{err: errors.New("access denied")}

	_, err := listDescending(context.Background(), client, "bucket", "tenant/recording", 100)

	assert.NotNil(t, err)
}
