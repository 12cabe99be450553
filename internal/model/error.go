package model

import "errors"

var ErrorMissingAddress = errors.New("email address is required")
var ErrorInvalidEnvelope = errors.New("invalid email format")
