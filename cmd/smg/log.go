package main

import (
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

// configureLogging sets the verbosity of the evaluator and executor logs.
// Higher values log more.
func configureLogging(verbosity int) {
	commonlog.Configure(verbosity, nil)
}
