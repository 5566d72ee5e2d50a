// Package s3 implements a backup store on Amazon S3 or any S3-compatible
// object store (MinIO, Localstack).
//
// Objects are keyed "<key_prefix><clientID decimal>/<name>". As with the
// filesystem backend, a client is known exactly when at least one object
// carries its prefix.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/marmos91/packrat/pkg/store"
)

// S3Store stores client files as objects in a single bucket. The client
// is injected so credentials and endpoint wiring stay in the config
// factory.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// New creates an S3 store over the given client and bucket. keyPrefix
// may be empty; when set it namespaces all packrat objects inside the
// bucket.
func New(client *s3.Client, bucket, keyPrefix string) *S3Store {
	if keyPrefix != "" && keyPrefix[len(keyPrefix)-1] != '/' {
		keyPrefix += "/"
	}

	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: keyPrefix,
	}
}

func (s *S3Store) clientPrefix(clientID uint32) string {
	return s.prefix + strconv.FormatUint(uint64(clientID), 10) + "/"
}

func (s *S3Store) objectKey(clientID uint32, name string) string {
	return s.clientPrefix(clientID) + name
}

// clientKnown asks for at most one object under the client prefix.
func (s *S3Store) clientKnown(ctx context.Context, clientID uint32) (bool, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(s.clientPrefix(clientID)),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, fmt.Errorf("list objects: %w", err)
	}
	return len(out.Contents) > 0, nil
}

func (s *S3Store) Save(ctx context.Context, clientID uint32, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(clientID, name)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (s *S3Store) Restore(ctx context.Context, clientID uint32, name string) ([]byte, error) {
	known, err := s.clientKnown(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if !known {
		return nil, store.ErrNoClient
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(clientID, name)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, store.ErrNoFile
		}
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object body: %w: %w", err, store.ErrNoFile)
	}

	return data, nil
}

func (s *S3Store) Delete(ctx context.Context, clientID uint32, name string) error {
	known, err := s.clientKnown(ctx, clientID)
	if err != nil {
		return err
	}
	if !known {
		return store.ErrNoClient
	}

	key := s.objectKey(clientID, name)

	// S3 deletes are idempotent, so probe first to surface ErrNoFile.
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return store.ErrNoFile
		}
		return fmt.Errorf("head object: %w", err)
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}

	return nil
}

func (s *S3Store) List(ctx context.Context, clientID uint32) ([]string, error) {
	prefix := s.clientPrefix(clientID)

	var names []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			names = append(names, aws.ToString(obj.Key)[len(prefix):])
		}
	}

	if len(names) == 0 {
		return nil, store.ErrNoClient
	}

	return names, nil
}

func (s *S3Store) Close() error {
	return nil
}
