package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"gitlab.com/divinepic/face-pipeline/pkg/face"
	"gitlab.com/divinepic/face-pipeline/pkg/source"
)

// Pipeline runs images from a source through a face engine in fixed-size
// batches and hands every embedded face to the writer. One engine instance is
// shared across all batches; processing is strictly sequential.
type Pipeline struct {
	Source    source.ImageSource
	Engine    face.Engine
	Writer    *Writer
	BatchSize int
	// SourceName labels the source in the run metadata, e.g. a directory
	// path or "s3://bucket".
	SourceName string
	// Progress receives the progress bar. Defaults to os.Stderr; tests set
	// io.Discard.
	Progress io.Writer
}

// Run processes every enumerated image and returns the run metadata. Failures
// on single images (fetch error, engine error, zero faces) are logged and
// counted without aborting the run; only enumeration and artifact finalization
// errors are fatal.
func (p *Pipeline) Run(ctx context.Context) (*RunMetadata, error) {
	if p.BatchSize < 1 {
		return nil, fmt.Errorf("batch size must be a positive integer, got %d", p.BatchSize)
	}

	ids, err := p.Source.List(ctx)
	if err != nil {
		return nil, err
	}

	meta := &RunMetadata{
		TotalImages: len(ids),
		BatchSize:   p.BatchSize,
		Source:      p.SourceName,
		OutputDir:   p.Writer.outputDir,
		StartedAt:   time.Now(),
	}

	batches := (len(ids) + p.BatchSize - 1) / p.BatchSize
	log.Printf("Processing %d images in %d batches of size %d\n", len(ids), batches, p.BatchSize)

	progressOut := p.Progress
	if progressOut == nil {
		progressOut = os.Stderr
	}
	bar := progressbar.NewOptions(len(ids),
		progressbar.OptionSetDescription("Embedding faces"),
		progressbar.OptionSetWriter(progressOut),
		progressbar.OptionShowCount(),
	)

	for start := 0; start < len(ids); start += p.BatchSize {
		end := start + p.BatchSize
		if end > len(ids) {
			end = len(ids)
		}
		for _, id := range ids[start:end] {
			_ = bar.Add(1)
			p.processImage(ctx, id, meta)
		}
	}
	_ = bar.Finish()

	meta.TotalFaces = p.Writer.FacesWritten()
	meta.FinishedAt = time.Now()
	meta.DurationSeconds = meta.FinishedAt.Sub(meta.StartedAt).Seconds()

	if err := p.Writer.Finish(meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func (p *Pipeline) processImage(ctx context.Context, id string, meta *RunMetadata) {
	rec, err := p.Source.Fetch(ctx, id)
	if err != nil {
		log.Printf("ERROR: Failed to fetch image %v - %v\n", id, err.Error())
		meta.Failed++
		return
	}
	defer func() {
		if err := p.Source.Discard(rec); err != nil {
			log.Printf("WARN: Failed to discard staged image %v - %v\n", rec.Path, err.Error())
		}
	}()

	faces, err := p.Engine.Recognize(rec.Path)
	if err != nil {
		log.Printf("ERROR: Failed to process image %v - %v\n", id, err.Error())
		meta.Failed++
		return
	}
	if len(faces) == 0 {
		log.Printf("WARN: No faces found in %v\n", id)
		meta.Failed++
		return
	}

	for i, f := range faces {
		embedding := make([]float32, face.DescriptorSize)
		copy(embedding, f.Descriptor[:])
		err := p.Writer.WriteFace(EmbeddingRecord{
			FaceID:      face.ID(rec.ID, i+1),
			SourceImage: rec.ID,
			FaceIndex:   i,
			Region:      f.Region(),
			Embedding:   embedding,
		})
		if err != nil {
			log.Printf("ERROR: Failed to write embedding for face %d in %v - %v\n", i, id, err.Error())
		}
	}
	meta.Processed++
}
