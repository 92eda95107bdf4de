package main

import (
	"context"
	"log"
	"os"

	config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	cli "github.com/spf13/cobra"

	"gitlab.com/divinepic/face-pipeline/pkg/face"
	"gitlab.com/divinepic/face-pipeline/pkg/pipeline"
	"gitlab.com/divinepic/face-pipeline/pkg/source"
)

var (
	embedCmd = &cli.Command{
		Use:   "embed",
		Short: "Embed",
		Long:  "Detect and embed every face in a directory or S3 bucket of images",
		Run:   Embed,
	}
)

func init() {
	rootCmd.AddCommand(embedCmd)

	embedCmd.PersistentFlags().StringP("input-dir", "i", "", "Path to local source image directory. Leave empty to enumerate the S3 bucket instead.")
	embedCmd.PersistentFlags().StringP("bucket", "b", "", "S3 bucket to enumerate images from. Defaults to S3_BUCKET from the environment.")
	embedCmd.PersistentFlags().StringArrayP("prefix", "p", []string{}, "S3 key prefix to enumerate. Repeatable. Defaults to S3_PREFIX from the environment.")
	embedCmd.PersistentFlags().StringP("output-dir", "o", "./output/embeds", "Path to local output directory for embedding artifacts.")
	embedCmd.PersistentFlags().Int("batch-size", 8, "Number of images processed per batch.")
	embedCmd.PersistentFlags().Bool("keep-images", false, "Keep staged S3 downloads after processing.")
	embedCmd.PersistentFlags().String("images-dir", "", "Staging directory for S3 downloads. Defaults to a temporary directory.")
	embedCmd.PersistentFlags().StringP("models-dir", "m", "./models", "Path to the pretrained dlib model files.")
}

func Embed(cmd *cli.Command, args []string) {
	inputDir, _ := cmd.Flags().GetString("input-dir")
	bucket, _ := cmd.Flags().GetString("bucket")
	prefixes, _ := cmd.Flags().GetStringArray("prefix")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	keepImages, _ := cmd.Flags().GetBool("keep-images")
	imagesDir, _ := cmd.Flags().GetString("images-dir")
	modelsDir, _ := cmd.Flags().GetString("models-dir")

	if batchSize < 1 {
		log.Fatalf("ERROR: Batch size must be a positive integer, got %d\n", batchSize)
	}

	engine, err := face.NewDlibEngine(modelsDir)
	if err != nil {
		log.Fatalln("ERROR:", err)
	}
	defer engine.Close()

	ctx := context.Background()

	var src source.ImageSource
	sourceName := inputDir
	if inputDir != "" {
		if _, err := os.Stat(inputDir); err != nil {
			log.Fatal("ERROR: ", err.Error())
		}
		src = source.NewDirSource(inputDir)
		log.Printf("Start embedding from directory %s ...\n", inputDir)
	} else {
		s3Config := NewS3EnvConfig()
		if bucket == "" {
			bucket = s3Config.Bucket
		}
		if bucket == "" {
			log.Fatalln("ERROR: No input directory or S3 bucket configured")
		}
		if len(prefixes) == 0 && s3Config.Prefix != "" {
			prefixes = []string{s3Config.Prefix}
		}
		if imagesDir == "" {
			imagesDir, err = os.MkdirTemp("", "face-pipeline-images-*")
			if err != nil {
				log.Fatal("ERROR: ", err.Error())
			}
		}

		// Setup AWS -- https://pkg.go.dev/github.com/aws/aws-sdk-go-v2/service/s3
		awsConfig := NewAWSEnvConfig()
		awsNativeConfig, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsConfig.Region))
		if err != nil {
			log.Fatalf("ERROR: Cannot load AWS config %v\n", err.Error())
		}
		awsClient := s3.NewFromConfig(awsNativeConfig)
		src = source.NewS3Source(awsClient, bucket, prefixes, imagesDir, keepImages)
		sourceName = "s3://" + bucket
		log.Printf("Start embedding from %s into staging dir %s ...\n", sourceName, imagesDir)
	}

	writer, err := pipeline.NewWriter(outputDir)
	if err != nil {
		log.Fatal("ERROR: ", err.Error())
	}

	p := &pipeline.Pipeline{
		Source:     src,
		Engine:     engine,
		Writer:     writer,
		BatchSize:  batchSize,
		SourceName: sourceName,
	}
	meta, err := p.Run(ctx)
	if err != nil {
		log.Fatalln("ERROR:", err)
	}

	log.Println("Processing complete!")
	log.Printf("- Processed %d of %d images (%d failed or without faces)\n", meta.Processed, meta.TotalImages, meta.Failed)
	log.Printf("- Found %d faces in %.1fs\n", meta.TotalFaces, meta.DurationSeconds)
	log.Printf("- Embeddings saved to %s\n", outputDir)
}
