// A step to run AWS Rekognition face analysis over a directory of images and
// dump one facedata JSON document per image. The documents carry the detail
// attributes (age range, gender, beard, ...) and detection confidences that
// the embedding artifacts themselves do not.

package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path"
	"path/filepath"

	config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	cli "github.com/spf13/cobra"

	"gitlab.com/divinepic/face-pipeline/pkg/source"
)

// FaceData is the facedata document layout: the raw Rekognition face details
// for one image.
type FaceData struct {
	FaceDetails []types.FaceDetail `json:"FaceDetails"`
}

var (
	analyzeCmd = &cli.Command{
		Use:   "analyze",
		Short: "Analyze",
		Long:  "Run AWS Rekognition face analysis over a directory of images and save the face details",
		Run:   Analyze,
	}
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.PersistentFlags().StringP("source", "s", "", "Path to source image directory.")
	analyzeCmd.PersistentFlags().StringP("output", "o", "./output/facedata", "Path to local output directory for facedata JSON documents.")

	_ = analyzeCmd.MarkFlagRequired("source")
}

func Analyze(cmd *cli.Command, args []string) {
	sourceDir, _ := cmd.Flags().GetString("source")
	outputDir, _ := cmd.Flags().GetString("output")

	err := os.MkdirAll(outputDir, 0755)
	if err != nil {
		log.Fatalln("ERROR:", err)
	}

	// Setup AWS -- https://pkg.go.dev/github.com/aws/aws-sdk-go-v2/service/rekognition
	ctx := context.Background()
	awsConfig := NewAWSEnvConfig()
	awsNativeConfig, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsConfig.Region))
	if err != nil {
		log.Fatalf("ERROR: Cannot load AWS config %v\n", err.Error())
	}
	awsClient := rekognition.NewFromConfig(awsNativeConfig)

	sourceImagePaths, err := source.NewDirSource(sourceDir).List(ctx)
	if err != nil {
		log.Fatal("ERROR: ", err.Error())
	}
	log.Printf("Analyzing %d source images ...\n", len(sourceImagePaths))

	for _, imagePath := range sourceImagePaths {
		imgBytes, err := os.ReadFile(imagePath)
		if err != nil {
			log.Printf("ERROR: Cannot read image %v - %v\n", imagePath, err.Error())
			continue
		}
		filename := filepath.Base(imagePath)
		extension := filepath.Ext(filename)
		name := filename[0 : len(filename)-len(extension)]

		output, err := awsClient.DetectFaces(ctx, &rekognition.DetectFacesInput{
			Image: &types.Image{
				Bytes: imgBytes,
			},
			Attributes: []types.Attribute{types.AttributeAll},
		})
		if err != nil {
			log.Printf("ERROR: Cannot analyze the image: %v - %v\n", imagePath, err.Error())
			continue
		}

		facedataJson, err := json.Marshal(FaceData{FaceDetails: output.FaceDetails})
		if err != nil {
			log.Fatal("ERROR: ", err.Error())
		}
		err = os.WriteFile(path.Join(outputDir, name+".json"), facedataJson, 0644)
		if err != nil {
			log.Fatal("ERROR: ", err.Error())
		}
		log.Printf("ID: %s - %d faces analyzed\n", name, len(output.FaceDetails))
	}

	log.Println("Face analysis complete!")
}
