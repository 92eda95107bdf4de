// A step to bulk-download the images under one or more S3 prefixes into a
// flat local directory -- useful for staging a test set once instead of
// re-downloading on every pipeline run.

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/briandowns/spinner"
	cli "github.com/spf13/cobra"

	"gitlab.com/divinepic/face-pipeline/pkg/source"
)

var (
	fetchCmd = &cli.Command{
		Use:   "fetch",
		Short: "Fetch",
		Long:  "Download all images under the configured S3 prefixes into a local directory",
		Run:   Fetch,
	}
)

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.PersistentFlags().StringP("bucket", "b", "", "S3 bucket to download from. Defaults to S3_BUCKET from the environment.")
	fetchCmd.PersistentFlags().StringArrayP("prefix", "p", []string{}, "S3 key prefix to download. Repeatable. Defaults to S3_PREFIX from the environment.")
	fetchCmd.PersistentFlags().String("images-dir", "./images", "Path to local directory the images are downloaded into.")
}

func Fetch(cmd *cli.Command, args []string) {
	bucket, _ := cmd.Flags().GetString("bucket")
	prefixes, _ := cmd.Flags().GetStringArray("prefix")
	imagesDir, _ := cmd.Flags().GetString("images-dir")

	s3Config := NewS3EnvConfig()
	if bucket == "" {
		bucket = s3Config.Bucket
	}
	if bucket == "" {
		log.Fatalln("ERROR: No S3 bucket configured. Set S3_BUCKET or pass --bucket.")
	}
	if len(prefixes) == 0 && s3Config.Prefix != "" {
		prefixes = []string{s3Config.Prefix}
	}
	err := os.MkdirAll(imagesDir, 0755)
	if err != nil {
		log.Fatalln("ERROR:", err)
	}

	// Setup AWS -- https://pkg.go.dev/github.com/aws/aws-sdk-go-v2/service/s3
	ctx := context.Background()
	awsConfig := NewAWSEnvConfig()
	awsNativeConfig, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsConfig.Region))
	if err != nil {
		log.Fatalf("ERROR: Cannot load AWS config %v\n", err.Error())
	}
	awsClient := s3.NewFromConfig(awsNativeConfig)
	downloader := manager.NewDownloader(awsClient)

	log.Printf("Downloading images from bucket %s into %s ...\n", bucket, imagesDir)

	keys, err := source.NewS3Source(awsClient, bucket, prefixes, imagesDir, true).List(ctx)
	if err != nil {
		log.Fatal("ERROR: ", err.Error())
	}

	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond)
	s.Start()
	downloaded := 0
	for _, key := range keys {
		// Avoid filename clashes between prefixes
		dest := path.Join(imagesDir, strings.ReplaceAll(key, "/", "_"))
		s.Suffix = fmt.Sprintf(" Downloading %s", key)

		f, err := os.Create(dest)
		if err != nil {
			log.Printf("ERROR: Cannot create %v - %v\n", dest, err.Error())
			continue
		}
		_, err = downloader.Download(ctx, f, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		f.Close()
		if err != nil {
			os.Remove(dest)
			log.Printf("ERROR: Failed to download %v - %v\n", key, err.Error())
			continue
		}
		downloaded++
	}
	s.Stop()

	log.Printf("Download complete. %d of %d images saved to %s\n", downloaded, len(keys), imagesDir)
}
