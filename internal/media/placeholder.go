package media

// PlaceholderContentType is the MIME type of VideoPlaceholder.
const PlaceholderContentType = "image/svg+xml"

// VideoPlaceholder is stored in place of a video thumbnail when no frame
// could be extracted. It must stay at least MinThumbnailBytes long or it
// would be mistaken for a sentinel and regenerated on every request.
var VideoPlaceholder = []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="300" height="200" viewBox="0 0 300 200">` +
	`<rect width="300" height="200" fill="#2d2d2d"/>` +
	`<circle cx="150" cy="100" r="40" fill="#ffffff" fill-opacity="0.85"/>` +
	`<polygon points="138,78 138,122 174,100" fill="#2d2d2d"/>` +
	`</svg>`)
