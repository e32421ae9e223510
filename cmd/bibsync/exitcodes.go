package main

// Exit codes, stable for scripting.
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (missing config, invalid values, missing keys)
	ExitDataError   = 3 // Data error (unsupported or unparseable source)
	ExitAPIError    = 4 // Remote API error (Notion or Drive unreachable)
)
