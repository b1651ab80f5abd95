package grading

import "strings"

// failureMarkers are the substrings the sandbox emits on a failed test
// run or a crashed script. Feedback free of both means the run passed.
var failureMarkers = []string{"FAILED", "Traceback"}

// feedbackIndicatesCorrect classifies raw sandbox output. The check is a
// substring heuristic on the test runner's own vocabulary; submissions
// that print these words themselves will be misclassified.
func feedbackIndicatesCorrect(feedback string) bool {
	for _, marker := range failureMarkers {
		if strings.Contains(feedback, marker) {
			return false
		}
	}
	return true
}
