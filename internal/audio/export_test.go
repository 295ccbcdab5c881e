package audio

// Export internal functions for testing.
// This file is only compiled during tests (suffix _test.go).

// BytesToInt16 exports bytesToInt16 for testing.
var BytesToInt16 = bytesToInt16

// ToMono exports toMono for testing.
var ToMono = toMono

// ScaleTo16 exports scaleTo16 for testing.
var ScaleTo16 = scaleTo16

// OpusPacketSamples exports opusPacketSamples for testing.
var OpusPacketSamples = opusPacketSamples

// SampleOffset exports sampleOffset for testing.
var SampleOffset = sampleOffset
