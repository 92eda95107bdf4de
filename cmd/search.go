// A step to query the Qdrant collection for the faces most similar to one
// per-face embedding artifact.

package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	cli "github.com/spf13/cobra"

	"gitlab.com/divinepic/face-pipeline/pkg/pipeline"
)

var (
	searchCmd = &cli.Command{
		Use:   "search",
		Short: "Search",
		Long:  "Query the Qdrant collection for faces similar to a per-face artifact",
		Run:   Search,
	}
)

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.PersistentFlags().StringP("face", "f", "", "Path to the per-face embedding artifact used as the query.")
	searchCmd.PersistentFlags().StringP("collection", "c", "", "Qdrant collection name. Defaults to QDRANT_COLLECTION from the environment.")
	searchCmd.PersistentFlags().Int("top", 5, "Number of nearest faces to return.")

	_ = searchCmd.MarkFlagRequired("face")
}

func Search(cmd *cli.Command, args []string) {
	facePath, _ := cmd.Flags().GetString("face")
	collection, _ := cmd.Flags().GetString("collection")
	top, _ := cmd.Flags().GetInt("top")
	if top < 1 {
		log.Fatalf("ERROR: --top must be a positive integer, got %d\n", top)
	}

	data, err := os.ReadFile(facePath)
	if err != nil {
		log.Fatal("ERROR: ", err.Error())
	}
	var record pipeline.EmbeddingRecord
	if err := json.Unmarshal(data, &record); err != nil {
		log.Fatalf("ERROR: Cannot parse face artifact %v - %v\n", facePath, err.Error())
	}

	store := newStoreFromEnv(collection)
	defer store.Close()

	log.Printf("Searching for faces similar to %s ...\n", record.FaceID)
	matches, err := store.Search(context.Background(), record.Embedding, uint64(top))
	if err != nil {
		log.Fatal("ERROR: ", err.Error())
	}
	if len(matches) == 0 {
		log.Println("No matches found.")
		return
	}

	for i, match := range matches {
		log.Printf("%d. %s (%s) - score %.4f\n", i+1, match.FaceID, match.SourceImage, match.Score)
	}
}
