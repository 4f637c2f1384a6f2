// Package mediatypes maps storage keys to media classifications and MIME
// types.
//
// It has no dependencies beyond the standard library so every other package
// can import it without creating cycles.
//
// # Extension Detection
//
// The extension of a key is authoritative for both classification and the
// Content-Type header:
//
//	mediatypes.Classify("media/2019/Beach Day.MOV")       // FileTypeVideo
//	mediatypes.ContentTypeFor("media/2019/Beach Day.MOV") // "video/quicktime"
//
// Unknown extensions classify as FileTypeOther and map to
// "application/octet-stream".
//
// # Sniffing
//
// Derived thumbnail artifacts keep the original's key suffix
// (thumbnails/<original key>), so their real format is read from the
// leading bytes with SniffImageType instead.
package mediatypes
