package rekognition

// Config holds configuration for AWS Rekognition provider
type Config struct {
	// Region is the AWS region where Rekognition service will be used (e.g., "us-east-1")
	Region string

	// SimilarityThreshold is the minimum CompareFaces similarity, in [0,1],
	// for two faces to be considered the same person.
	SimilarityThreshold float64
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		Region:              "us-east-1",
		SimilarityThreshold: 0.8,
	}
}
