package server

import "errors"

// ErrWorkerStopped is returned by Worker.Do after Stop.
var ErrWorkerStopped = errors.New("worker stopped")
