package planner

import (
	"fmt"
	"time"
)

// structurePrompt asks the model to restate the user's text for planning.
const structurePrompt = `Structure the following project description for task planning: %s`

// generatePrompt turns the structured description into a JSON task array.
// Arguments: today's date, structured description.
const generatePrompt = `You are a project planning assistant. Generate a JSON array of tasks with this structure:
[
  {
    "id": "unique-id",
    "title": "Task title",
    "description": "Task description",
    "startDate": "YYYY-MM-DD",
    "endDate": "YYYY-MM-DD",
    "completed": false
  }
]

The tasks should form a logical roadmap for completing the project. Use realistic timeframes.
Each task should have id, title, description, startDate, endDate, and completed=false.
Today is %s; no task should start before today.
Return ONLY the JSON array.

Based on this structured project description:
%s`

func buildStructurePrompt(userInput string) string {
	return fmt.Sprintf(structurePrompt, userInput)
}

func buildGeneratePrompt(structured string, today time.Time) string {
	return fmt.Sprintf(generatePrompt, today.Format("2006-01-02 (Monday)"), structured)
}
