// Package pathvariant expands a logical media path into the ordered list of
// storage keys under which the archive may actually hold the file.
//
// The archive was written by several generations of upload tooling. The same
// photo can be stored with forward or backslash separators, with or without
// the media/ container prefix, and with spaces or apostrophes percent-encoded
// in some segments but not others. Rather than branching inline, each
// historical form is one Strategy, and Strategies lists them in the order
// they are tried. That order is part of the contract: when two legacy copies
// exist, the earlier strategy decides which one is served.
//
//	candidates := pathvariant.Generate("2019/Beach Day/Grandma's.jpg")
//	// 2019/Beach Day/Grandma's.jpg
//	// media/2019/Beach Day/Grandma's.jpg
//	// 2019\Beach Day\Grandma's.jpg
//	// media/2019\Beach Day\Grandma's.jpg
//	// media/2019\Beach Day/Grandma's.jpg
//	// 2019/Beach%20Day/Grandma's.jpg
//	// 2019/Beach%20Day/Grandma%27s.jpg
//	// 2019/Beach Day/Grandma%27s.jpg
package pathvariant
