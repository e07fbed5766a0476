// Package constants centralizes timeouts and limits shared by the analyzers.
//
// Every network operation in the engine carries its own bounded ceiling; the
// values here are the defaults used when callers do not override them through
// configuration.
package constants
