/**
 * Face embedding pipeline
 * Enumerates images from a local directory or an S3 bucket, runs pretrained
 * face detection + embedding models over them in fixed-size batches, and
 * writes the embedding vectors and run metadata to disk.
 */

package main

import (
	"log"

	cli "github.com/spf13/cobra"
)

var (
	// The Root Cli Handler
	rootCmd = &cli.Command{
		Use:   "face-pipeline",
		Short: "Batch face embedding pipeline",
	}
)

func main() {
	// Run the program
	if err := rootCmd.Execute(); err != nil {
		log.Fatalln("ERROR:", err)
	}
}
