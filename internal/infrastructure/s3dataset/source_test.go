package s3dataset_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geo-drilldown/internal/config"
	"github.com/geo-drilldown/internal/domain"
	"github.com/geo-drilldown/internal/infrastructure/s3dataset"
	apperrors "github.com/geo-drilldown/internal/pkg/errors"
)

// fakeS3 serves path-style GET and PUT for a single bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	failAll bool
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failAll {
		return respond(http.StatusInternalServerError, []byte("<Error><Code>InternalError</Code></Error>")), nil
	}

	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}

	switch req.Method {
	case http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			return respond(http.StatusNotFound, []byte("<Error><Code>NoSuchKey</Code><Message>missing</Message></Error>")), nil
		}
		resp := respond(http.StatusOK, body)
		resp.Header.Set("Content-Type", "application/json")
		return resp, nil
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if dec, ok := decodeChunked(body); ok {
			body = dec
		}
		f.objects[key] = body
		resp := respond(http.StatusOK, nil)
		resp.Header.Set("ETag", `"etag"`)
		return resp, nil
	}
	return respond(http.StatusNotImplemented, nil), nil
}

func respond(status int, body []byte) *http.Response {
	return &http.Response{
		StatusCode:    status,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Header:        http.Header{"Content-Length": {strconv.Itoa(len(body))}},
	}
}

// decodeChunked unwraps a single-chunk aws-chunked payload.
func decodeChunked(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 {
		return nil, false
	}
	size, err := strconv.ParseInt(strings.SplitN(parts[0], ";", 2)[0], 16, 64)
	if err != nil || int64(len(parts[1])) != size {
		return nil, false
	}
	return []byte(parts[1]), true
}

func newSource(t *testing.T, fake *fakeS3) *s3dataset.Source {
	t.Helper()
	src, err := s3dataset.New(context.Background(), &config.GeoSourceConfig{
		S3Bucket:       "geodata-bucket",
		S3Prefix:       "geodata",
		S3Region:       "ap-southeast-1",
		S3Endpoint:     "https://mock.s3.local",
		S3UsePathStyle: true,
	}, zap.NewNop(), func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: fake}
		o.Credentials = credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")
		o.RetryMaxAttempts = 1
	})
	require.NoError(t, err)
	return src
}

func TestSource_ObjectKey(t *testing.T) {
	src := newSource(t, &fakeS3{objects: map[string][]byte{}})
	assert.Equal(t, "geodata/regions/_root.json", src.ObjectKey(domain.LevelRegion, ""))
	assert.Equal(t, "geodata/municipalities/NCR-MNL.json", src.ObjectKey(domain.LevelMunicipality, "NCR-MNL"))
}

func TestSource_FetchFeatures(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{
		"geodata/provinces/NCR.json": []byte(`[{"code":"NCR-MNL","name":"Manila","metrics":{"sales":3000000,"stores":12,"transactions":5000,"growth":4.5}}]`),
	}}
	src := newSource(t, fake)
	ctx := context.Background()

	features, err := src.FetchFeatures(ctx, domain.LevelProvince, "NCR")
	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.Equal(t, "Manila", features[0].Name)
	assert.Equal(t, domain.LevelProvince, features[0].Level)
	assert.Equal(t, "NCR", features[0].ParentCode)
	assert.Equal(t, 4.5, features[0].Metrics.Growth)

	_, err = src.FetchFeatures(ctx, domain.LevelProvince, "XIII")
	assert.True(t, errors.Is(err, apperrors.ErrNotLoaded), fmt.Sprint(err))
}

func TestSource_ServerErrorIsNotNotLoaded(t *testing.T) {
	src := newSource(t, &fakeS3{objects: map[string][]byte{}, failAll: true})

	_, err := src.FetchFeatures(context.Background(), domain.LevelRegion, "")
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrNotLoaded))
}

func TestSource_PutScopeRoundTrip(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	src := newSource(t, fake)
	ctx := context.Background()

	regions := []domain.GeoFeature{
		{Code: "NCR", Name: "National Capital Region", Level: domain.LevelRegion, Metrics: domain.Metrics{Sales: 9447000}},
		{Code: "XI", Name: "Davao Region", Level: domain.LevelRegion},
	}
	require.NoError(t, src.PutScope(ctx, domain.LevelRegion, "", regions))
	assert.Contains(t, fake.objects, "geodata/regions/_root.json")

	got, err := src.FetchFeatures(ctx, domain.LevelRegion, "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "XI", got[1].Code)
}
