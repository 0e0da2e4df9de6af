package trellis

import (
	"context"
	"fmt"

	"github.com/trellisfw/trellis-reports/internal/report"
)

// Getter is the read side of the store client. Satisfied by oada.Fetcher.
type Getter interface {
	GetJSON(ctx context.Context, path string, v any) error
}

// FetchDetails fetches a document body and its metadata envelope and
// flattens them into report columns. Placeholder resources (no _id) and
// documents missing required fields return an error so the caller can skip
// them.
func FetchDetails(ctx context.Context, g Getter, path, collection string) (report.DocumentDetails, error) {
	fetchMeta := func(ref MetaRef) (*Meta, error) {
		if ref.ID == "" {
			return nil, fmt.Errorf("document at %s has no _meta link", path)
		}
		var meta Meta
		if err := g.GetJSON(ctx, "/"+ref.ID, &meta); err != nil {
			return nil, fmt.Errorf("fetching _meta %s: %w", ref.ID, err)
		}
		return &meta, nil
	}

	if collection == CollectionCois {
		var doc COI
		if err := g.GetJSON(ctx, path, &doc); err != nil {
			return report.DocumentDetails{}, err
		}
		if doc.ID == "" {
			return report.DocumentDetails{}, fmt.Errorf("document at %s is a placeholder", path)
		}
		meta, err := fetchMeta(doc.Meta)
		if err != nil {
			return report.DocumentDetails{}, err
		}
		return doc.Details(meta)
	}

	var doc Audit
	if err := g.GetJSON(ctx, path, &doc); err != nil {
		return report.DocumentDetails{}, err
	}
	if doc.ID == "" {
		return report.DocumentDetails{}, fmt.Errorf("document at %s is a placeholder", path)
	}
	meta, err := fetchMeta(doc.Meta)
	if err != nil {
		return report.DocumentDetails{}, err
	}
	return doc.Details(meta)
}
