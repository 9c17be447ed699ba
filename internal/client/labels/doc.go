// Package labels stores exported QR label images, either in a local
// directory or in an S3-compatible bucket.
package labels
