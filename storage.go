package seqloc

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hupe1980/seqloc/blobstore"
	"github.com/hupe1980/seqloc/blobstore/minio"
	"github.com/hupe1980/seqloc/blobstore/s3"
	"github.com/hupe1980/seqloc/config"
	"github.com/hupe1980/seqloc/model"
)

// OpenStore creates the blob store described by cfg.
//
// The s3 kind resolves credentials through the default AWS chain
// (environment, shared config, instance role).
func OpenStore(ctx context.Context, cfg config.Storage) (blobstore.BlobStore, error) {
	switch cfg.Kind {
	case config.StorageLocal, "":
		root := cfg.Root
		if root == "" {
			root = "."
		}
		return blobstore.NewLocalStore(root), nil
	case config.StorageS3:
		var optFns []func(*awsconfig.LoadOptions) error
		if cfg.Region != "" {
			optFns = append(optFns, awsconfig.WithRegion(cfg.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
		if err != nil {
			return nil, fmt.Errorf("seqloc: load aws config: %w", err)
		}
		client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = &cfg.Endpoint
				o.UsePathStyle = true
			}
		})
		return s3.NewStore(client, cfg.Bucket, cfg.Prefix), nil
	case config.StorageMinio:
		client, err := minio.Dial(cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, cfg.Secure)
		if err != nil {
			return nil, err
		}
		return minio.NewStore(client, cfg.Bucket, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("%w: unknown storage kind %q", model.ErrInvalidConfig, cfg.Kind)
	}
}
