package model

import "time"

// GenerationExport is the top-level JSON structure for the generation log export.
type GenerationExport struct {
	ExportedAt   time.Time          `json:"exported_at"`
	Total        int                `json:"total"`
	Succeeded    int                `json:"succeeded"`
	Failed       int                `json:"failed"`
	ByCapability map[Capability]int `json:"by_capability"`
	Generations  []Generation       `json:"generations"`
}
