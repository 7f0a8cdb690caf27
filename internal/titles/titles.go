package titles

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/phonecase-tools/lister/internal/config"
	"github.com/phonecase-tools/lister/internal/pipeline"
	"github.com/phonecase-tools/lister/internal/providers"
	"github.com/phonecase-tools/lister/internal/records"
	"github.com/phonecase-tools/lister/internal/sheet"
)

// Failure is an image that could not be titled.
type Failure struct {
	ImageID string
	Error   string
}

// Stage generates listing titles for every image in the image folder.
type Stage struct {
	provider providers.Provider
}

// New returns the title stage. A nil provider is resolved from the configuration at run time.
func New(provider providers.Provider) *Stage {
	return &Stage{provider: provider}
}

func (s *Stage) Name() string { return "titles" }

func (s *Stage) Run(ctx context.Context, cfg *config.Config, artifacts *pipeline.Artifacts) (*pipeline.Result, error) {
	provider := s.provider
	if provider == nil {
		p, err := ProviderFor(cfg)
		if err != nil {
			return nil, err
		}
		provider = p
	}

	prompt, err := cfg.Prompt()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureFolders(); err != nil {
		return nil, err
	}

	images, err := ListImages(cfg.ImageFolder)
	if err != nil {
		return nil, err
	}
	result := &pipeline.Result{}
	if len(images) == 0 {
		slog.Warn("No supported images found", "stage", s.Name(), "folder", cfg.ImageFolder)
		return result, nil
	}
	slog.Info("Found images", "stage", s.Name(), "count", len(images))

	recs, failures, err := Generate(ctx, provider, providers.Config{Model: cfg.Model, Temperature: cfg.Temperature, Prompt: prompt}, images)
	if err != nil {
		return nil, err
	}
	AssignParents(recs, cfg.GroupSize)

	rows := make([][]interface{}, len(recs))
	for i, r := range recs {
		rows[i] = r.Row()
	}
	out, err := sheet.WriteTable(
		filepath.Join(cfg.ResultFolder, records.TitlesFile),
		records.TitlesSheet,
		records.Names(records.TitleColumns),
		rows,
	)
	if err != nil {
		return nil, err
	}
	slog.Info("Saved titles", "stage", s.Name(), "path", out, "rows", len(recs))
	result.Outputs = append(result.Outputs, out)
	result.Rows = len(recs)
	if artifacts != nil {
		artifacts.Titles = out
	}

	if len(failures) > 0 {
		failed, err := WriteFailures(filepath.Join(cfg.FailureFolder, records.FailuresFile), failures)
		if err != nil {
			return nil, err
		}
		slog.Warn("Some images failed", "stage", s.Name(), "count", len(failures), "path", failed)
		result.Outputs = append(result.Outputs, failed)
		result.Failed = len(failures)
		if artifacts != nil {
			artifacts.Failures = failed
		}
	}

	return result, nil
}

// Generate calls the provider once per image. Per-image errors become failures and
// processing moves on; only cancellation stops the loop.
func Generate(ctx context.Context, provider providers.Provider, base providers.Config, images []string) ([]records.TitleRecord, []Failure, error) {
	var recs []records.TitleRecord
	var failures []Failure

	for i, path := range images {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("title generation interrupted after %d of %d images: %w", i, len(images), err)
		}

		id := ImageID(path)
		slog.Info("Processing image", "progress", fmt.Sprintf("%d/%d", i+1, len(images)), "image", filepath.Base(path))

		fields, err := describe(ctx, provider, base, path)
		if err != nil {
			slog.Warn("Image failed", "image", filepath.Base(path), "err", err)
			failures = append(failures, Failure{ImageID: id, Error: err.Error()})
			continue
		}

		recs = append(recs, records.TitleRecord{
			ImageID:               id,
			Title:                 fields.Title,
			TitleTranslation:      fields.TitleTranslation,
			ShortTitle:            fields.ShortTitle,
			ShortTitleTranslation: fields.ShortTitleTranslation,
		})
	}

	return recs, failures, nil
}

func describe(ctx context.Context, provider providers.Provider, base providers.Config, path string) (Fields, error) {
	img, err := providers.LoadImage(path)
	if err != nil {
		return Fields{}, err
	}
	req := base
	req.Image = img

	response, err := provider.DescribeImage(ctx, req)
	if err != nil {
		return Fields{}, err
	}
	return ParseFields(response)
}

// AssignParents sets each record's parent group id to the image id of the first
// record in its fixed-size bucket.
func AssignParents(recs []records.TitleRecord, groupSize int) {
	if groupSize < 1 {
		groupSize = config.DefaultGroupSize
	}
	for i := range recs {
		first := (i / groupSize) * groupSize
		recs[i].ParentGroupID = recs[first].ImageID
	}
}

// WriteFailures saves the failure report and returns the path written.
func WriteFailures(path string, failures []Failure) (string, error) {
	rows := make([][]interface{}, len(failures))
	for i, f := range failures {
		rows[i] = []interface{}{f.ImageID, f.Error}
	}
	return sheet.WriteTable(path, records.FailuresSheet,
		records.Names([]sheet.Column{records.ColImageName, records.ColError}), rows)
}
