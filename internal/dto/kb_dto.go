package dto

import "time"

type KBEntryRequest struct {
	Id       string   `json:"id" validate:"required,max=128"`
	Product  string   `json:"product" validate:"required,max=128"`
	Patterns []string `json:"patterns" validate:"dive,required"`
	Answer   string   `json:"answer" validate:"required"`
}

type KBEntryResponse struct {
	Id        string     `json:"id"`
	Product   string     `json:"product"`
	Patterns  []string   `json:"patterns"`
	Answer    string     `json:"answer"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type KBListResponse struct {
	Version  uint64            `json:"version"`
	LoadedAt time.Time         `json:"loadedAt"`
	Count    int               `json:"count"`
	Entries  []KBEntryResponse `json:"entries"`
}

type ReloadKBRequest struct {
	FilePath string `json:"filePath" validate:"required"`
}

type ReloadKBResponse struct {
	Count   int    `json:"count"`
	Version uint64 `json:"version"`
}

type SimilarKBEntry struct {
	KBEntryResponse
	Similarity float64 `json:"similarity"`
}
