package ports

import (
	"context"

	"surveystat/domain/dataset"
)

// DatasetLoader reads a survey file into memory
type DatasetLoader interface {
	Load(ctx context.Context, path string) (*dataset.Dataset, error)
}
