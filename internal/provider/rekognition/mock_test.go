package rekognition

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
)

// mockRekognitionAPI is a mock implementation of the API interface for testing
type mockRekognitionAPI struct {
	detectFacesFunc  func(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
	compareFacesFunc func(ctx context.Context, params *rekognition.CompareFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.CompareFacesOutput, error)
}

func (m *mockRekognitionAPI) DetectFaces(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error) {
	if m.detectFacesFunc != nil {
		return m.detectFacesFunc(ctx, params, optFns...)
	}
	return &rekognition.DetectFacesOutput{}, nil
}

func (m *mockRekognitionAPI) CompareFaces(ctx context.Context, params *rekognition.CompareFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.CompareFacesOutput, error) {
	if m.compareFacesFunc != nil {
		return m.compareFacesFunc(ctx, params, optFns...)
	}
	return &rekognition.CompareFacesOutput{}, nil
}

func ptr[T any](v T) *T {
	return &v
}
