package internal

import "errors"

// ErrBadListing is returned for a malformed object listing.
var ErrBadListing = errors.New("malformed object listing")
