package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/packrat/pkg/store"
	storeBadger "github.com/marmos91/packrat/pkg/store/badger"
	storeFs "github.com/marmos91/packrat/pkg/store/fs"
	storeMemory "github.com/marmos91/packrat/pkg/store/memory"
	storeS3 "github.com/marmos91/packrat/pkg/store/s3"
)

// CreateStore builds the store backend selected by cfg.Type, decoding
// the matching type-specific option map into the backend's own config
// struct.
func CreateStore(ctx context.Context, cfg *StorageConfig) (store.Store, error) {
	switch cfg.Type {
	case "filesystem":
		return createFilesystemStore(ctx, cfg.Filesystem)
	case "memory":
		return storeMemory.New(), nil
	case "badger":
		return createBadgerStore(ctx, cfg.Badger)
	case "s3":
		return createS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage type: %q", cfg.Type)
	}
}

func createFilesystemStore(ctx context.Context, options map[string]any) (store.Store, error) {
	type FilesystemStoreConfig struct {
		Root string `mapstructure:"root"`
	}

	var storeCfg FilesystemStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem storage config: %w", err)
	}

	if storeCfg.Root == "" {
		return nil, fmt.Errorf("filesystem storage: root is required")
	}

	st, err := storeFs.New(ctx, storeCfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem store: %w", err)
	}
	return st, nil
}

func createBadgerStore(ctx context.Context, options map[string]any) (store.Store, error) {
	type BadgerStoreConfig struct {
		Path string `mapstructure:"path"`
	}

	var storeCfg BadgerStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger storage config: %w", err)
	}

	if storeCfg.Path == "" {
		return nil, fmt.Errorf("badger storage: path is required")
	}

	st, err := storeBadger.New(ctx, storeCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger store: %w", err)
	}
	return st, nil
}

func createS3Store(ctx context.Context, options map[string]any) (store.Store, error) {
	type S3StoreConfig struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		ForcePathStyle  bool   `mapstructure:"force_path_style"`
	}

	var storeCfg S3StoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode s3 storage config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("s3 storage: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("s3 storage: region is required")
	}

	var loadOptions []func(*awsConfig.LoadOptions) error
	loadOptions = append(loadOptions, awsConfig.WithRegion(storeCfg.Region))

	// Static credentials are optional; without them the default AWS
	// credential chain applies (env, shared config, IAM role).
	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		loadOptions = append(loadOptions, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(storeCfg.AccessKeyID, storeCfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Custom endpoints cover MinIO and Localstack, which usually
		// also need path-style addressing.
		if storeCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(storeCfg.Endpoint)
		}
		o.UsePathStyle = storeCfg.ForcePathStyle
	})

	return storeS3.New(client, storeCfg.Bucket, storeCfg.KeyPrefix), nil
}
