package grading

import "encoding/json"

// Task is the wire format of a grading task on the task queue.
type Task struct {
	SubmissionID int64  `json:"submissionId"`
	Code         string `json:"code"`
	TestCode     string `json:"testCode"`
}

// Result is the wire format of a grading result on the result queue.
type Result struct {
	SubmissionID   int64  `json:"submissionId"`
	GraderFeedback string `json:"graderFeedback"`
}

// EncodeTask serializes a task for publishing.
func EncodeTask(t Task) ([]byte, error) { return json.Marshal(t) }

// DecodeTask parses a task payload.
func DecodeTask(b []byte) (Task, error) {
	var t Task
	err := json.Unmarshal(b, &t)
	return t, err
}

// EncodeResult serializes a result for publishing.
func EncodeResult(r Result) ([]byte, error) { return json.Marshal(r) }

// DecodeResult parses a result payload.
func DecodeResult(b []byte) (Result, error) {
	var r Result
	err := json.Unmarshal(b, &r)
	return r, err
}
