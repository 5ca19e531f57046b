package model

import "time"

// Run is one recorded invocation of the validate command.
type Run struct {
	ID         string    `json:"id"`
	NDJSONPath string    `json:"ndjson_path"`
	OutputPath string    `json:"output_path"`
	Directory  string    `json:"directory"`
	Dialect    string    `json:"dialect"`
	Stats      Stats     `json:"stats"`
	NotFound   int       `json:"not_found"`
	CreatedAt  time.Time `json:"created_at"`
}

// RegexData is one row of the solutions database.
type RegexData struct {
	ID             int64    `json:"id"`
	Regex          string   `json:"regex"`
	PositiveInputs []string `json:"positive_inputs"`
	NegativeInputs []string `json:"negative_inputs"`
	FilePath       string   `json:"file_path"`
	RFixerSolution *string  `json:"rfixer_solution"`
	GPTResponse    *string  `json:"gpt_response"`
}
