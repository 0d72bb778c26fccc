package sandbox

import "strings"

// syntaxMarkers are Python parser failures: the code never ran.
var syntaxMarkers = []string{
	"SyntaxError",
	"IndentationError",
	"TabError",
}

// resourceMarkers indicate the host, not the code, ran out of something.
var resourceMarkers = []string{
	"MemoryError",
	"Cannot allocate memory",
	"No space left on device",
	"Too many open files",
	"Disk quota exceeded",
}

// Classify maps a manim failure transcript to a FailureKind. The mapping is
// a pure function of the transcript, so re-executing an identical artifact
// under identical conditions classifies identically.
func Classify(transcript string) FailureKind {
	for _, m := range syntaxMarkers {
		if strings.Contains(transcript, m) {
			return FailureSyntax
		}
	}
	for _, m := range resourceMarkers {
		if strings.Contains(transcript, m) {
			return FailureResource
		}
	}
	return FailureRuntime
}
