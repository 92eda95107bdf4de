package main

import (
	"log"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

// Compatible with "github.com/caarlos0/env"
type AWSConfig struct {
	Region    string `env:"AWS_REGION" envDefault:"us-east-1"`
	AccessId  string `env:"AWS_ACCESS_KEY_ID"`
	AccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
}

type S3Config struct {
	Bucket string `env:"S3_BUCKET"`
	Prefix string `env:"S3_PREFIX"`
}

type QdrantConfig struct {
	Host       string `env:"QDRANT_HOST" envDefault:"localhost"`
	Port       int    `env:"QDRANT_PORT" envDefault:"6334"`
	ApiKey     string `env:"QDRANT_API_KEY"`
	UseTLS     bool   `env:"QDRANT_USE_TLS"`
	Collection string `env:"QDRANT_COLLECTION" envDefault:"face_embeddings"`
}

func NewAWSEnvConfig() *AWSConfig {
	_ = godotenv.Load()
	config := &AWSConfig{}
	err := env.Parse(config)
	if err != nil {
		log.Fatalf("Cannot Marshal Environment into Config: %v", err.Error())
	}
	return config
}

func NewS3EnvConfig() *S3Config {
	_ = godotenv.Load()
	config := &S3Config{}
	err := env.Parse(config)
	if err != nil {
		log.Fatalf("Cannot Marshal Environment into Config: %v", err.Error())
	}
	return config
}

func NewQdrantEnvConfig() *QdrantConfig {
	_ = godotenv.Load()
	config := &QdrantConfig{}
	err := env.Parse(config)
	if err != nil {
		log.Fatalf("Cannot Marshal Environment into Config: %v", err.Error())
	}
	return config
}
