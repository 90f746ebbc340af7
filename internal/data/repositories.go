package data

import "errors"

// ErrRecordNotFound is the shared not-found sentinel returned by repository
// lookups across this package (entity_repo.go, event_repo.go, and others),
// mirroring the single shared sentinel the teacher's original data layer used
// across its REST-facing repositories.
var ErrRecordNotFound = errors.New("record not found")
