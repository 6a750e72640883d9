// Package s3 provides an Amazon S3 implementation of blobstore.BlobStore.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	client := awss3.NewFromConfig(cfg)
//	store := s3.NewStore(client, "my-bucket", "runs/garden")
//
// # Features
//
//   - Range reads for partial fetches of large matrices
//   - Multipart streaming uploads via the transfer manager
//   - CRC32C integrity checks on atomic puts
//   - Automatic pagination for listing
package s3
