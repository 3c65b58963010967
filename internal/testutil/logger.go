package testutil

import (
	"github.com/sriramsowmithri9807/Griva-sub000/internal/logging"
)

// NullLogger returns a logger that discards most output
func NullLogger() *logging.Logger {
	return logging.New(logging.LevelError)
}
