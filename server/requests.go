package server

import (
	"time"

	"github.com/hupe1980/agentweave/engine"
)

// ExpertQueryRequest asks the expert router.
type ExpertQueryRequest struct {
	Query string `json:"query" jsonschema:"minLength=3,maxLength=1000,pattern=\\S"`
}

// ExpertQueryResponse carries the expert's answer.
type ExpertQueryResponse struct {
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// RecipeRequest asks the recipe pipeline.
type RecipeRequest struct {
	Cuisine  string `json:"cuisine" jsonschema:"minLength=2,maxLength=100,pattern=\\S"`
	Dietary  string `json:"dietary" jsonschema:"minLength=2,maxLength=200,pattern=\\S"`
	MealType string `json:"mealType" jsonschema:"minLength=2,maxLength=50,pattern=\\S"`
}

// RecipeResponse carries the finished recipe analysis.
type RecipeResponse struct {
	Recipe string `json:"recipe"`
}

// ContentRefinementRequest asks the content refiner.
type ContentRefinementRequest struct {
	Topic string `json:"topic" jsonschema:"minLength=2,maxLength=200,pattern=\\S"`
	Style string `json:"style" jsonschema:"minLength=2,maxLength=100,pattern=\\S"`
}

// ContentRefinementResponse carries the refined content.
type ContentRefinementResponse struct {
	Content string `json:"content"`
}

// ParallelFlowRequest asks the startup pitch builder.
type ParallelFlowRequest struct {
	StartupName  string `json:"startupName" jsonschema:"minLength=2,maxLength=100,pattern=\\S"`
	Idea         string `json:"idea" jsonschema:"minLength=10,maxLength=500,pattern=\\S"`
	TargetMarket string `json:"targetMarket" jsonschema:"minLength=5,maxLength=200,pattern=\\S"`
}

// ParallelFlowResponse carries the pitch document.
type ParallelFlowResponse struct {
	Pitch string `json:"pitch"`
}

// HumanInLoopRequest submits an interview answer for assessment.
type HumanInLoopRequest struct {
	CandidateName string `json:"candidateName" jsonschema:"minLength=2,maxLength=100,pattern=\\S"`
	Position      string `json:"position" jsonschema:"minLength=2,maxLength=100,pattern=\\S"`
	Question      string `json:"question" jsonschema:"minLength=10,maxLength=500,pattern=\\S"`
	Response      string `json:"response" jsonschema:"minLength=10,maxLength=2000,pattern=\\S"`
}

// HumanInLoopResponse carries both feedbacks and the final assessment.
type HumanInLoopResponse struct {
	CandidateName    string `json:"candidateName"`
	Position         string `json:"position"`
	CoachingFeedback string `json:"coachingFeedback"`
	HumanFeedback    string `json:"humanFeedback"`
	FinalAssessment  string `json:"finalAssessment"`
}

// InvokeRequest invokes any registered workflow.
type InvokeRequest struct {
	Arguments map[string]any `json:"arguments"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message   string    `json:"message"`
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Errors    []string  `json:"errors"`
	// Kind is the machine readable error kind, if any.
	Kind string `json:"kind,omitempty"`
}

func (r ExpertQueryRequest) arguments() map[string]any {
	return map[string]any{"request": r.Query}
}

func (r RecipeRequest) arguments() map[string]any {
	return map[string]any{"cuisine": r.Cuisine, "dietary": r.Dietary, "mealType": r.MealType}
}

func (r ContentRefinementRequest) arguments() map[string]any {
	return map[string]any{"topic": r.Topic, "style": r.Style}
}

func (r ParallelFlowRequest) arguments() map[string]any {
	return map[string]any{"startupName": r.StartupName, "idea": r.Idea, "targetMarket": r.TargetMarket}
}

func (r HumanInLoopRequest) arguments() map[string]any {
	return map[string]any{
		"candidateName": r.CandidateName,
		"position":      r.Position,
		"question":      r.Question,
		"response":      r.Response,
	}
}

func textOf(res engine.Result, key string) string {
	v, ok := res.State[key]
	if !ok {
		return ""
	}

	if s, ok := v.(string); ok {
		return s
	}

	return ""
}

func outputText(res engine.Result) string {
	s, _ := res.Output.(string)
	return s
}
