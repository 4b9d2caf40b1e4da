// Package s3dataset serves geodata scopes stored as JSON objects in S3 or
// any S3-compatible store. Objects live at <prefix>/<level>/<parent|_root>.json.
package s3dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/geo-drilldown/internal/config"
	"github.com/geo-drilldown/internal/domain"
	"github.com/geo-drilldown/internal/domain/repository"
	apperrors "github.com/geo-drilldown/internal/pkg/errors"
)

const rootObject = "_root"

type Source struct {
	client *s3.Client
	bucket string
	prefix string
	logger *zap.Logger
}

var _ repository.GeoSourceRepository = (*Source)(nil)

// New builds a client from the default AWS credential chain. optFns are
// applied after the configured endpoint settings.
func New(ctx context.Context, cfg *config.GeoSourceConfig, logger *zap.Logger, optFns ...func(*s3.Options)) (*Source, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.S3Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	opts := append([]func(*s3.Options){func(o *s3.Options) {
		o.UsePathStyle = cfg.S3UsePathStyle
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	}}, optFns...)

	logger.Info("S3 geodata source configured",
		zap.String("bucket", cfg.S3Bucket),
		zap.String("prefix", cfg.S3Prefix),
		zap.String("region", region))

	return &Source{
		client: s3.NewFromConfig(awsCfg, opts...),
		bucket: cfg.S3Bucket,
		prefix: cfg.S3Prefix,
		logger: logger.With(zap.String("component", "s3dataset")),
	}, nil
}

// ObjectKey is where a scope is stored.
func (s *Source) ObjectKey(level domain.AdminLevel, parentCode string) string {
	if parentCode == "" {
		parentCode = rootObject
	}
	return path.Join(s.prefix, level.Plural(), parentCode+".json")
}

func (s *Source) FetchFeatures(ctx context.Context, level domain.AdminLevel, parentCode string) ([]domain.GeoFeature, error) {
	key := s.ObjectKey(level, parentCode)

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.ErrNotLoaded.WithReason(fmt.Sprintf("s3://%s/%s", s.bucket, key))
		}
		s.logger.Error("Failed to get object", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("get s3 object %s: %w", key, err)
	}
	defer out.Body.Close()

	var features []domain.GeoFeature
	if err := json.NewDecoder(out.Body).Decode(&features); err != nil {
		return nil, fmt.Errorf("decode s3 object %s: %w", key, err)
	}
	for i := range features {
		features[i].Level = level
		features[i].ParentCode = parentCode
	}

	s.logger.Debug("Fetched scope from s3", zap.String("key", key), zap.Int("count", len(features)))
	return features, nil
}

// PutScope uploads one scope, replacing any existing object.
func (s *Source) PutScope(ctx context.Context, level domain.AdminLevel, parentCode string, features []domain.GeoFeature) error {
	key := s.ObjectKey(level, parentCode)
	body, err := json.Marshal(features)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		s.logger.Error("Failed to put object", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("put s3 object %s: %w", key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}
