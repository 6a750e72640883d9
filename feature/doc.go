// Package feature defines the opaque place descriptors compared by cost providers.
//
// Two kinds are built in:
//
//   - Vector: a dense global image descriptor compared by cosine similarity
//   - ScanContext: a set of polar occupancy grids (one per rotation shift)
//     compared by column-wise cosine distance
//
// Descriptors are stored as JSON documents in a blobstore and loaded
// through BlobLoader:
//
//	{"kind": "vector", "values": [0.1, 0.7, ...]}
//	{"kind": "scan-context", "grids": [{"rows": 20, "cols": 60, "values": [...]}, ...]}
package feature
