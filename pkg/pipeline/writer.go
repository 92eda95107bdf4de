package pipeline

import (
	"encoding/json"
	"os"
	"path"
)

const (
	facesDirName     = "faces"
	combinedFileName = "face_embeddings.json"
	metadataFileName = "metadata.json"
)

// Writer persists embedding artifacts under an output directory:
//
//	<output>/faces/<faceID>.json   one artifact per face, written immediately
//	<output>/face_embeddings.json  combined artifact, written by Finish
//	<output>/metadata.json         run summary, written by Finish
//
// A run that crashes midway leaves the per-face artifacts already written and
// no combined file. Existing artifacts are overwritten.
type Writer struct {
	outputDir string
	facesDir  string
	combined  map[string]*ImageResult
	written   int
}

func NewWriter(outputDir string) (*Writer, error) {
	facesDir := path.Join(outputDir, facesDirName)
	if err := os.MkdirAll(facesDir, 0755); err != nil {
		return nil, err
	}
	return &Writer{
		outputDir: outputDir,
		facesDir:  facesDir,
		combined:  map[string]*ImageResult{},
	}, nil
}

// WriteFace writes the individual artifact for one face and folds it into the
// combined result.
func (w *Writer) WriteFace(rec EmbeddingRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path.Join(w.facesDir, rec.FaceID+".json"), data, 0644); err != nil {
		return err
	}

	result, ok := w.combined[rec.SourceImage]
	if !ok {
		result = &ImageResult{}
		w.combined[rec.SourceImage] = result
	}
	result.FaceIDs = append(result.FaceIDs, rec.FaceID)
	result.FaceRegions = append(result.FaceRegions, rec.Region)
	result.FaceEmbeddings = append(result.FaceEmbeddings, rec.Embedding)

	w.written++
	return nil
}

// FacesWritten returns the number of per-face artifacts written so far.
func (w *Writer) FacesWritten() int {
	return w.written
}

// FacesDir returns the directory holding the per-face artifacts.
func (w *Writer) FacesDir() string {
	return w.facesDir
}

// Finish writes the combined embeddings artifact and the run metadata.
func (w *Writer) Finish(meta *RunMetadata) error {
	combined, err := json.Marshal(w.combined)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path.Join(w.outputDir, combinedFileName), combined, 0644); err != nil {
		return err
	}

	metaJson, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return os.WriteFile(path.Join(w.outputDir, metadataFileName), metaJson, 0644)
}

// ReadFaces loads every per-face artifact in a faces directory, keyed by face
// id. Used by the compare and upsert steps.
func ReadFaces(facesDir string) (map[string]EmbeddingRecord, error) {
	entries, err := os.ReadDir(facesDir)
	if err != nil {
		return nil, err
	}
	records := map[string]EmbeddingRecord{}
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(path.Join(facesDir, entry.Name()))
		if err != nil {
			return nil, err
		}
		var rec EmbeddingRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, err
		}
		records[rec.FaceID] = rec
	}
	return records, nil
}

// ReadCombined loads a combined embeddings artifact.
func ReadCombined(combinedPath string) (map[string]ImageResult, error) {
	data, err := os.ReadFile(combinedPath)
	if err != nil {
		return nil, err
	}
	combined := map[string]ImageResult{}
	if err := json.Unmarshal(data, &combined); err != nil {
		return nil, err
	}
	return combined, nil
}
