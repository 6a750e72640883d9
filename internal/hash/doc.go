// Package hash provides the CRC32-Castagnoli checksum used by persisted
// matrices and object uploads.
//
//	checksum := hash.CRC32C(payload)
//
//	h := hash.NewCRC32C()
//	h.Write(chunk)
//	checksum := h.Sum32()
package hash
