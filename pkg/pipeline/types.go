// Package pipeline batches images through a face engine and persists the
// resulting embeddings.
package pipeline

import (
	"time"

	"gitlab.com/divinepic/face-pipeline/pkg/face"
)

// EmbeddingRecord is the unit of output: one embedded face from one source
// image. It is written as an individual artifact and aggregated into the
// combined artifact.
type EmbeddingRecord struct {
	FaceID      string      `json:"face_id"`
	SourceImage string      `json:"source_image"`
	FaceIndex   int         `json:"face_index"`
	Region      face.Region `json:"region"`
	Embedding   []float32   `json:"embedding"`
}

// ImageResult groups every face found in a single source image. The parallel
// arrays mirror the combined artifact layout of the original tooling so
// downstream comparison scripts keep working.
type ImageResult struct {
	FaceIDs        []string      `json:"face_ids"`
	FaceRegions    []face.Region `json:"face_regions"`
	FaceEmbeddings [][]float32   `json:"face_embeddings"`
}

// RunMetadata summarizes one pipeline run. Processed + Failed always equals
// TotalImages, and TotalFaces equals the number of per-face artifacts written.
type RunMetadata struct {
	TotalImages     int       `json:"total_images"`
	TotalFaces      int       `json:"total_faces"`
	Processed       int       `json:"processed"`
	Failed          int       `json:"failed"`
	BatchSize       int       `json:"batch_size"`
	Source          string    `json:"source"`
	OutputDir       string    `json:"output_dir"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	DurationSeconds float64   `json:"duration_seconds"`
}
