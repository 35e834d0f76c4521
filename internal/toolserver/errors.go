package toolserver

import "errors"

var errMissingCallerContext = errors.New("toolserver: missing caller context headers")
