// A step to push a combined embeddings artifact into a Qdrant collection for
// similarity search across runs.

package main

import (
	"context"
	"log"

	cli "github.com/spf13/cobra"

	"gitlab.com/divinepic/face-pipeline/pkg/face"
	"gitlab.com/divinepic/face-pipeline/pkg/pipeline"
	"gitlab.com/divinepic/face-pipeline/pkg/vectorstore"
)

var (
	upsertCmd = &cli.Command{
		Use:   "upsert",
		Short: "Upsert",
		Long:  "Push a combined embeddings artifact into the Qdrant collection",
		Run:   Upsert,
	}
)

func init() {
	rootCmd.AddCommand(upsertCmd)

	upsertCmd.PersistentFlags().StringP("embeddings", "e", "./output/embeds/face_embeddings.json", "Path to the combined embeddings artifact.")
	upsertCmd.PersistentFlags().StringP("collection", "c", "", "Qdrant collection name. Defaults to QDRANT_COLLECTION from the environment.")
	upsertCmd.PersistentFlags().Int("batch-size", 64, "Number of points pushed per upsert request.")
}

func Upsert(cmd *cli.Command, args []string) {
	embeddingsPath, _ := cmd.Flags().GetString("embeddings")
	collection, _ := cmd.Flags().GetString("collection")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	if batchSize < 1 {
		log.Fatalf("ERROR: Batch size must be a positive integer, got %d\n", batchSize)
	}

	combined, err := pipeline.ReadCombined(embeddingsPath)
	if err != nil {
		log.Fatal("ERROR: ", err.Error())
	}

	store := newStoreFromEnv(collection)
	defer store.Close()

	ctx := context.Background()
	err = store.EnsureCollection(ctx, face.DescriptorSize)
	if err != nil {
		log.Fatal("ERROR: ", err.Error())
	}

	var points []vectorstore.Point
	for sourceImage, result := range combined {
		for i, faceId := range result.FaceIDs {
			points = append(points, vectorstore.Point{
				FaceID:      faceId,
				SourceImage: sourceImage,
				Vector:      result.FaceEmbeddings[i],
			})
		}
	}

	pushed := 0
	for start := 0; start < len(points); start += batchSize {
		end := start + batchSize
		if end > len(points) {
			end = len(points)
		}
		if err := store.Upsert(ctx, points[start:end]); err != nil {
			log.Fatal("ERROR: ", err.Error())
		}
		pushed += end - start
		log.Printf("Upserted %d/%d points ...\n", pushed, len(points))
	}

	log.Printf("%d face embeddings from %d images pushed to Qdrant\n", len(points), len(combined))
}

func newStoreFromEnv(collection string) *vectorstore.Store {
	qdrantConfig := NewQdrantEnvConfig()
	if collection == "" {
		collection = qdrantConfig.Collection
	}
	store, err := vectorstore.New(vectorstore.Config{
		Host:       qdrantConfig.Host,
		Port:       qdrantConfig.Port,
		ApiKey:     qdrantConfig.ApiKey,
		UseTLS:     qdrantConfig.UseTLS,
		Collection: collection,
	})
	if err != nil {
		log.Fatal("ERROR: ", err.Error())
	}
	return store
}
