package llm

import _ "embed"

var (
	//go:embed prompts/enhance_summary.txt
	enhanceSummaryPrompt string
	//go:embed prompts/enhance_job.txt
	enhanceJobPrompt string
	//go:embed prompts/import_resume.txt
	importResumePrompt string
)

// EnhanceSummaryPrompt is the system prompt for rewriting a professional summary.
func EnhanceSummaryPrompt() string {
	return enhanceSummaryPrompt
}

// EnhanceJobPrompt is the system prompt for rewriting a job description.
func EnhanceJobPrompt() string {
	return enhanceJobPrompt
}

// ImportResumePrompt is the system prompt for structuring resume text into resume content JSON.
func ImportResumePrompt() string {
	return importResumePrompt
}
