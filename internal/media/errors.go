package media

import "errors"

// ErrPermissionDenied distinguishes "no access to the device library" from
// "the library is empty". Callers must not treat it as a clean zero-result.
var ErrPermissionDenied = errors.New("media library permission denied")
