package dnsresolver

import "errors"

// ErrUnsupportedRecordType is returned by Resolver.Resolve before any network
// I/O when the caller's record type is not one of A, AAAA, CNAME.
// ErrUnsupportedRecordType may be wrapped and must be tested for with
// errors.Is.
var ErrUnsupportedRecordType = errors.New("unsupported record type")
