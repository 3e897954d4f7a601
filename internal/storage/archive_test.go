package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockObjectAPI struct {
	mock.Mock
}

func (m *MockObjectAPI) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func (m *MockObjectAPI) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.GetObjectOutput), args.Error(1)
}

func (m *MockObjectAPI) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.HeadBucketOutput), args.Error(1)
}

func (m *MockObjectAPI) CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.CreateBucketOutput), args.Error(1)
}

func TestObjectKey(t *testing.T) {
	at := time.Unix(1700000000, 0)

	key := ObjectKey("https://en.wikipedia.org/wiki/Formula_One", "text/html; charset=UTF-8", at)

	assert.True(t, strings.HasPrefix(key, "pages/en.wikipedia.org/"))
	assert.True(t, strings.HasSuffix(key, "/1700000000.html"))
	assert.Equal(t, key, ObjectKey("https://en.wikipedia.org/wiki/Formula_One", "text/html", at))
	assert.NotEqual(t, key, ObjectKey("https://en.wikipedia.org/wiki/Lewis_Hamilton", "text/html", at))
}

func TestObjectKey_Extensions(t *testing.T) {
	at := time.Unix(1, 0)
	assert.True(t, strings.HasSuffix(ObjectKey("https://x/a.pdf", "application/pdf", at), ".pdf"))
	assert.True(t, strings.HasSuffix(ObjectKey("https://x/a", "text/plain", at), ".txt"))
	assert.True(t, strings.HasSuffix(ObjectKey("https://x/a", "", at), ".bin"))
	assert.Contains(t, ObjectKey("::bad", "", at), "pages/unknown/")
}

func TestPageArchive_Archive(t *testing.T) {
	client := new(MockObjectAPI)
	archive := NewPageArchiveWithClient(client, "pages")
	archive.now = func() time.Time { return time.Unix(42, 0) }

	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		body, _ := io.ReadAll(in.Body)
		return aws.ToString(in.Bucket) == "pages" &&
			strings.HasSuffix(aws.ToString(in.Key), "/42.html") &&
			string(body) == "<p>hi</p>" &&
			in.Metadata["source-url"] == "https://f1.com/"
	})).Return(&s3.PutObjectOutput{}, nil)

	key, err := archive.Archive(context.Background(), "https://f1.com/", "text/html", []byte("<p>hi</p>"))

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "pages/f1.com/"))
	client.AssertExpectations(t)
}

func TestPageArchive_ArchiveError(t *testing.T) {
	client := new(MockObjectAPI)
	archive := NewPageArchiveWithClient(client, "pages")
	client.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	_, err := archive.Archive(context.Background(), "https://f1.com/", "text/html", nil)

	assert.ErrorContains(t, err, "access denied")
}

func TestPageArchive_Fetch(t *testing.T) {
	client := new(MockObjectAPI)
	archive := NewPageArchiveWithClient(client, "pages")
	client.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return aws.ToString(in.Key) == "pages/k"
	})).Return(&s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader([]byte("raw")))}, nil)

	body, err := archive.Fetch(context.Background(), "pages/k")

	require.NoError(t, err)
	assert.Equal(t, []byte("raw"), body)
}

func TestPageArchive_EnsureBucket(t *testing.T) {
	t.Run("exists", func(t *testing.T) {
		client := new(MockObjectAPI)
		client.On("HeadBucket", mock.Anything, mock.Anything).Return(&s3.HeadBucketOutput{}, nil)

		require.NoError(t, NewPageArchiveWithClient(client, "pages").EnsureBucket(context.Background()))
		client.AssertNotCalled(t, "CreateBucket", mock.Anything, mock.Anything)
	})

	t.Run("creates", func(t *testing.T) {
		client := new(MockObjectAPI)
		client.On("HeadBucket", mock.Anything, mock.Anything).Return(nil, errors.New("not found"))
		client.On("CreateBucket", mock.Anything, mock.Anything).Return(&s3.CreateBucketOutput{}, nil)

		require.NoError(t, NewPageArchiveWithClient(client, "pages").EnsureBucket(context.Background()))
		client.AssertExpectations(t)
	})
}
