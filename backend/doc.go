// Package backend turns a connection profile into a ready file system.
//
// Open picks the dialer registered for the profile's protocol, retries
// transient connection failures with exponential backoff bounded by the
// profile's connect timeout, and returns a Session. A Session owns the file
// system, the directory the profile is rooted at, and a transfer scheduler
// sized by the profile's concurrency.
//
//	cfg, _ := profiles.Get("staging")
//	s, err := backend.Open(ctx, cfg, backend.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer s.Close(ctx)
//
//	entries, err := s.FS().List(ctx, s.Root())
package backend
