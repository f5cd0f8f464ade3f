package model

import (
	"strings"
	"time"
)

// Tool is an item listed by its owner for borrowing.
type Tool struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Image       string    `json:"image,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Category    string    `json:"category"`
	Condition   string    `json:"condition"`
	IsAvailable bool      `json:"is_available"`
	Owner       User      `json:"owner"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Tool categories.
const (
	CategoryPowerTools  = "Power Tools"
	CategoryHandTools   = "Hand Tools"
	CategoryGardenTools = "Garden Tools"
	CategoryCleaning    = "Cleaning"
	CategoryAutomotive  = "Automotive"
	CategoryMeasuring   = "Measuring"
	CategoryOther       = "Other"
)

// Categories lists the categories in display order.
var Categories = []string{
	CategoryPowerTools,
	CategoryHandTools,
	CategoryGardenTools,
	CategoryCleaning,
	CategoryAutomotive,
	CategoryMeasuring,
	CategoryOther,
}

// Tool conditions.
const (
	ConditionExcellent = "Excellent"
	ConditionVeryGood  = "Very Good"
	ConditionGood      = "Good"
	ConditionFair      = "Fair"
)

// Conditions lists the conditions from best to worst.
var Conditions = []string{
	ConditionExcellent,
	ConditionVeryGood,
	ConditionGood,
	ConditionFair,
}

// ToolForm is the create/update payload for a tool. The image travels
// separately as a multipart file.
type ToolForm struct {
	Name        string `json:"name" validate:"required,max=100"`
	Category    string `json:"category" validate:"required,category"`
	Condition   string `json:"condition" validate:"required,condition"`
	IsAvailable bool   `json:"is_available"`
}

// FormFromTool prefills an edit form from an existing tool.
func FormFromTool(t Tool) ToolForm {
	return ToolForm{
		Name:        t.Name,
		Category:    t.Category,
		Condition:   t.Condition,
		IsAvailable: t.IsAvailable,
	}
}

// FilterTools returns the tools whose name or category contains term,
// case-insensitively. An empty term returns tools unchanged.
func FilterTools(tools []Tool, term string) []Tool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return tools
	}
	var out []Tool
	for _, t := range tools {
		if strings.Contains(strings.ToLower(t.Name), term) ||
			strings.Contains(strings.ToLower(t.Category), term) {
			out = append(out, t)
		}
	}
	return out
}

// CountAvailable returns how many of the tools are marked available.
func CountAvailable(tools []Tool) int {
	n := 0
	for _, t := range tools {
		if t.IsAvailable {
			n++
		}
	}
	return n
}
