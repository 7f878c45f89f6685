// Package journal keeps the streams a renderer has applied.
//
// A History is a bounded ring of encoded streams used to answer resync
// requests. A Journal feeds a History and, optionally, a Sink that archives
// every stream (S3Sink writes them to an S3 bucket).
package journal
