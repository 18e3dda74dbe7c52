// Package storage fetches source document bytes, from S3 in managed mode or
// from a directory root when running locally.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"pdf-rag-service/internal/config"
)

// ErrNotFound reports that the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectStore fetches a source file by path.
type ObjectStore interface {
	GetBytes(ctx context.Context, path string) ([]byte, error)
}

// NewObjectStore picks the backend once from configuration.
func NewObjectStore(ctx context.Context, cfg *config.Config) (ObjectStore, error) {
	if cfg.Local {
		return &LocalStore{Root: cfg.LocalRoot}, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &S3Store{client: s3.NewFromConfig(awsCfg), bucket: cfg.S3Bucket}, nil
}

// S3Store reads objects from one S3 bucket.
type S3Store struct {
	client *s3.Client
	bucket string
}

func (s *S3Store) GetBytes(ctx context.Context, path string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrNotFound, s.bucket, path)
		}
		return nil, fmt.Errorf("fetching s3://%s/%s: %w", s.bucket, path, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// LocalStore reads files under a root directory.
type LocalStore struct {
	Root string
}

func (l *LocalStore) GetBytes(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.Root, path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	return data, nil
}
