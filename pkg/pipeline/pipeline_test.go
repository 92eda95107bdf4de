package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"io"
	"os"
	"path"
	"sort"
	"testing"

	"gitlab.com/divinepic/face-pipeline/pkg/face"
	"gitlab.com/divinepic/face-pipeline/pkg/source"
)

type fakeSource struct {
	ids       []string
	fetchErr  map[string]error
	discarded []string
}

func (s *fakeSource) List(ctx context.Context) ([]string, error) {
	return s.ids, nil
}

func (s *fakeSource) Fetch(ctx context.Context, id string) (source.Record, error) {
	if err := s.fetchErr[id]; err != nil {
		return source.Record{}, err
	}
	return source.Record{ID: id, Path: id, Staged: true}, nil
}

func (s *fakeSource) Discard(rec source.Record) error {
	s.discarded = append(s.discarded, rec.ID)
	return nil
}

type fakeEngine struct {
	faces map[string][]face.Face
	errs  map[string]error
}

func (e *fakeEngine) Recognize(imgPath string) ([]face.Face, error) {
	if err := e.errs[imgPath]; err != nil {
		return nil, err
	}
	return e.faces[imgPath], nil
}

func testFace(seed float32) face.Face {
	f := face.Face{Rectangle: image.Rect(0, 0, 64, 64)}
	for i := range f.Descriptor {
		f.Descriptor[i] = seed
	}
	return f
}

func newPipeline(t *testing.T, src source.ImageSource, engine face.Engine, batchSize int) (*Pipeline, string) {
	t.Helper()
	outputDir := t.TempDir()
	writer, err := NewWriter(outputDir)
	if err != nil {
		t.Fatal(err)
	}
	return &Pipeline{
		Source:     src,
		Engine:     engine,
		Writer:     writer,
		BatchSize:  batchSize,
		SourceName: "test",
		Progress:   io.Discard,
	}, outputDir
}

func TestRunCounts(t *testing.T) {
	src := &fakeSource{
		ids:      []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg"},
		fetchErr: map[string]error{"d.jpg": errors.New("download failed")},
	}
	engine := &fakeEngine{
		faces: map[string][]face.Face{
			"a.jpg": {testFace(0.1), testFace(0.2)},
			"b.jpg": {}, // no faces detected
		},
		errs: map[string]error{"c.jpg": errors.New("model blew up")},
	}
	p, outputDir := newPipeline(t, src, engine, 2)

	meta, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if meta.TotalImages != 4 {
		t.Errorf("TotalImages = %d, want 4", meta.TotalImages)
	}
	if meta.Processed != 1 {
		t.Errorf("Processed = %d, want 1", meta.Processed)
	}
	if meta.Failed != 3 {
		t.Errorf("Failed = %d, want 3", meta.Failed)
	}
	if meta.Processed+meta.Failed != meta.TotalImages {
		t.Errorf("Processed(%d) + Failed(%d) != TotalImages(%d)", meta.Processed, meta.Failed, meta.TotalImages)
	}
	if meta.TotalFaces != 2 {
		t.Errorf("TotalFaces = %d, want 2", meta.TotalFaces)
	}

	// Every fetched record must be discarded, fetch failures have nothing to discard
	if len(src.discarded) != 3 {
		t.Errorf("discarded %v, want a, b and c", src.discarded)
	}

	records, err := ReadFaces(path.Join(outputDir, "faces"))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != meta.TotalFaces {
		t.Errorf("faces dir holds %d artifacts, metadata says %d", len(records), meta.TotalFaces)
	}
	if _, ok := records["a_face_1"]; !ok {
		t.Errorf("missing artifact a_face_1 in %v", records)
	}

	combined, err := ReadCombined(path.Join(outputDir, "face_embeddings.json"))
	if err != nil {
		t.Fatal(err)
	}
	total := 0
	for _, result := range combined {
		total += len(result.FaceIDs)
	}
	if total != meta.TotalFaces {
		t.Errorf("combined artifact holds %d faces, metadata says %d", total, meta.TotalFaces)
	}
}

func TestRunWritesMetadataArtifact(t *testing.T) {
	src := &fakeSource{ids: []string{"a.jpg"}}
	engine := &fakeEngine{faces: map[string][]face.Face{"a.jpg": {testFace(0.5)}}}
	p, outputDir := newPipeline(t, src, engine, 8)

	meta, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path.Join(outputDir, "metadata.json"))
	if err != nil {
		t.Fatal(err)
	}
	var persisted RunMetadata
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatal(err)
	}
	if persisted.TotalFaces != meta.TotalFaces || persisted.Processed != meta.Processed {
		t.Errorf("persisted metadata %+v differs from returned %+v", persisted, meta)
	}
	if persisted.BatchSize != 8 || persisted.Source != "test" {
		t.Errorf("configuration snapshot missing from metadata: %+v", persisted)
	}
}

// Batch size must not change what gets embedded, only how work is grouped.
func TestRunBatchSizeEquivalence(t *testing.T) {
	ids := []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg"}
	faces := map[string][]face.Face{}
	for i, id := range ids {
		faces[id] = []face.Face{testFace(float32(i+1) / 10)}
	}

	var outputs [2][]string
	for i, batchSize := range []int{1, 3} {
		p, outputDir := newPipeline(t, &fakeSource{ids: ids}, &fakeEngine{faces: faces}, batchSize)
		meta, err := p.Run(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if meta.TotalFaces != len(ids) {
			t.Fatalf("batch size %d: TotalFaces = %d, want %d", batchSize, meta.TotalFaces, len(ids))
		}
		records, err := ReadFaces(path.Join(outputDir, "faces"))
		if err != nil {
			t.Fatal(err)
		}
		for id := range records {
			outputs[i] = append(outputs[i], id)
		}
		sort.Strings(outputs[i])
	}

	if len(outputs[0]) != len(outputs[1]) {
		t.Fatalf("batch size changed output: %v vs %v", outputs[0], outputs[1])
	}
	for i := range outputs[0] {
		if outputs[0][i] != outputs[1][i] {
			t.Fatalf("batch size changed output: %v vs %v", outputs[0], outputs[1])
		}
	}
}

func TestRunRejectsInvalidBatchSize(t *testing.T) {
	p, _ := newPipeline(t, &fakeSource{}, &fakeEngine{}, 0)
	if _, err := p.Run(context.Background()); err == nil {
		t.Fatal("expected error for batch size 0")
	}
}
