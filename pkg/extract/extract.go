// Package extract defines the entity/intent extraction collaborator
// boundary: transcript in, entities, intent, priority and tags out.
package extract

import (
	"context"

	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
)

// Annotation is the extraction result for one transcript
type Annotation struct {
	Entities entities.EntityMap
	Intent   string
	Priority entities.Priority
	Tags     []string
}

// Extractor annotates a transcript with dispatch semantics
type Extractor interface {
	Extract(ctx context.Context, transcript string) (*Annotation, error)
}
