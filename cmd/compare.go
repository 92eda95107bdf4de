// A step to scan a directory of per-face embedding artifacts and report which
// faces look like the same person.

package main

import (
	"encoding/json"
	"log"
	"os"
	"path"
	"sort"

	cli "github.com/spf13/cobra"

	"gitlab.com/divinepic/face-pipeline/pkg/face"
	"gitlab.com/divinepic/face-pipeline/pkg/pipeline"
)

var (
	compareCmd = &cli.Command{
		Use:   "compare",
		Short: "Compare",
		Long:  "Compute pairwise cosine similarity between embedded faces and report matches",
		Run:   Compare,
	}
)

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.PersistentFlags().StringP("faces-dir", "f", "./output/embeds/faces", "Path to directory of per-face embedding artifacts.")
	compareCmd.PersistentFlags().Float64P("threshold", "t", 0.92, "Cosine similarity above which two faces count as a match.")
	compareCmd.PersistentFlags().StringP("output", "o", "", "Path to write the matches report to. Defaults to matches.json next to the faces directory.")
}

// MatchPair records two faces whose embeddings exceed the similarity
// threshold.
type MatchPair struct {
	FaceA      string  `json:"face_a"`
	FaceB      string  `json:"face_b"`
	SourceA    string  `json:"source_a"`
	SourceB    string  `json:"source_b"`
	Similarity float64 `json:"similarity"`
	SameSource bool    `json:"same_source"`
}

func Compare(cmd *cli.Command, args []string) {
	facesDir, _ := cmd.Flags().GetString("faces-dir")
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = path.Join(path.Dir(facesDir), "matches.json")
	}

	records, err := pipeline.ReadFaces(facesDir)
	if err != nil {
		log.Fatal("ERROR: ", err.Error())
	}
	if len(records) == 0 {
		log.Fatalf("ERROR: No face embedding artifacts found in %s\n", facesDir)
	}
	log.Printf("Comparing %d face embeddings (threshold %.2f) ...\n", len(records), threshold)

	faceIds := make([]string, 0, len(records))
	for id := range records {
		faceIds = append(faceIds, id)
	}
	sort.Strings(faceIds)

	var matches []MatchPair
	for i := 0; i < len(faceIds); i++ {
		for j := i + 1; j < len(faceIds); j++ {
			a, b := records[faceIds[i]], records[faceIds[j]]
			similarity := face.Cosine(a.Embedding, b.Embedding)
			if similarity < threshold {
				continue
			}
			matches = append(matches, MatchPair{
				FaceA:      a.FaceID,
				FaceB:      b.FaceID,
				SourceA:    a.SourceImage,
				SourceB:    b.SourceImage,
				Similarity: similarity,
				SameSource: a.SourceImage == b.SourceImage,
			})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	reportJson, err := json.Marshal(matches)
	if err != nil {
		log.Fatal("ERROR: ", err.Error())
	}
	err = os.WriteFile(output, reportJson, 0644)
	if err != nil {
		log.Fatal("ERROR: ", err.Error())
	}

	for _, match := range matches {
		log.Printf("%s similar to %s (%.4f)\n", match.FaceA, match.FaceB, match.Similarity)
	}
	log.Printf("%d matching pairs written to %s\n", len(matches), output)
}
