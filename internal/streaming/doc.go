/*
Package streaming writes stored media to HTTP responses.

# Serving policy

Server.ServeObject applies the service's rules for originals:

  - Videos larger than 50 MiB get a 302 to a one-hour signed URL from the
    storage backend, with Cache-Control: no-store and no body.
  - A Range header on a video selects a single span. start-end, start- and
    the suffix form -N are accepted; an end at or beyond the object size is
    unsatisfiable: a 416 whose Content-Range carries only the total size.
    Malformed or multi-span headers are ignored and the whole object is served.
  - Everything else is a 200 with Content-Length. Videos advertise
    Accept-Ranges: bytes.

Every body carries Content-Type (from the key's extension),
Content-Disposition: inline with the base name, and a one-year public
Cache-Control. HEAD requests receive the same headers and no body.

Server.ServeBytes applies the same header policy to content that is already
in memory, such as a freshly generated thumbnail.

# Slow clients

Bodies are written through a TimeoutWriter, which splits the payload into
chunks and sets a write deadline before each one through
http.ResponseController:

	tw := streaming.NewTimeoutWriter(r.Context(), w, streaming.DefaultTimeoutWriterConfig())
	defer tw.Close()
	if _, err := tw.Write(data); errors.Is(err, streaming.ErrWriteTimeout) {
		// client stopped reading
	}

Writers that do not support deadlines (httptest.ResponseRecorder, some
middleware wrappers) are written without them. Errors are reported as
ErrWriteTimeout, ErrClientGone or ErrStreamCanceled.
*/
package streaming
