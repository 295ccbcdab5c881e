package cli

// Export internal functions for testing.

// RunServe exports runServe for testing.
var RunServe = runServe

// RunTranscribe exports runTranscribe for testing.
var RunTranscribe = runTranscribe

// RunConfig exports runConfig for testing.
var RunConfig = runConfig

// RunSplit exports runSplit for testing.
var RunSplit = runSplit

// WithOverrides exports withOverrides for testing.
var WithOverrides = withOverrides

// TranscribeOptions exports transcribeOptions for testing.
type TranscribeOptions = transcribeOptions
