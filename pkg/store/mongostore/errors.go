package mongostore

import "errors"

var ErrFailedToCreateIndexes = errors.New("failed to create account indexes")
