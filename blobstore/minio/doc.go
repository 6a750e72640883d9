// Package minio provides a BlobStore backed by MinIO or any other
// S3-compatible object store (Ceph, Garage, SeaweedFS).
//
// # Basic Usage
//
//	client, err := minio.Dial("localhost:9000", "minioadmin", "minioadmin", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store := minio.NewStore(client, "localization", "garden/")
//
// Uploads stream through a pipe so large matrices never need to be
// buffered in memory. No AWS SDK dependency is required.
package minio
