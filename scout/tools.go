package scout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hazyhaar/toolscout/analysis"
	"github.com/hazyhaar/toolscout/catalog"
)

// ToolInput carries the editable fields of a catalog entry. Categories is
// kept raw: anything that is not a non-empty array of strings is stored as
// the sentinel category.
type ToolInput struct {
	Name       string          `json:"name"`
	URL        string          `json:"url"`
	Summary    string          `json:"summary"`
	Categories json.RawMessage `json:"categories,omitempty"`
}

func (in *ToolInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.URL = strings.TrimSpace(in.URL)
	in.Summary = strings.TrimSpace(in.Summary)
	if in.Name == "" || in.URL == "" || in.Summary == "" {
		return fmt.Errorf("%w: name, url, and summary are required", ErrInvalidInput)
	}
	return nil
}

// Categories decodes raw into a category list, substituting the sentinel
// for anything else.
func Categories(raw json.RawMessage) []string {
	var cats []string
	if len(raw) == 0 || json.Unmarshal(raw, &cats) != nil {
		return []string{analysis.Uncategorized}
	}
	out := cats[:0]
	for _, c := range cats {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return []string{analysis.Uncategorized}
	}
	return out
}

// ListTools returns the whole catalog, newest first.
func (s *Service) ListTools(ctx context.Context) ([]*catalog.Tool, error) {
	tools, err := s.store.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	if tools == nil {
		tools = []*catalog.Tool{}
	}
	return tools, nil
}

// GetTool returns one tool or ErrNotFound.
func (s *Service) GetTool(ctx context.Context, id string) (*catalog.Tool, error) {
	t, err := s.store.GetTool(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get tool: %w", err)
	}
	if t == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, nil
}

// CreateTool validates in and stores it. A URL already in the catalog is
// rejected with a *DuplicateError.
func (s *Service) CreateTool(ctx context.Context, in ToolInput) (*catalog.Tool, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	existing, err := s.store.GetToolByURL(ctx, in.URL)
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	if existing != nil {
		return nil, &DuplicateError{ExistingID: existing.ID, ExistingName: existing.Name}
	}

	t := &catalog.Tool{
		Name:       in.Name,
		URL:        in.URL,
		Summary:    in.Summary,
		Categories: Categories(in.Categories),
	}
	if err := s.store.InsertTool(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info("scout: tool created", "id", t.ID, "url", t.URL)
	return t, nil
}

// UpdateTool overwrites the editable fields of tool id. A URL owned by a
// different tool is rejected with a *DuplicateError.
func (s *Service) UpdateTool(ctx context.Context, id string, in ToolInput) (*catalog.Tool, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	other, err := s.store.FindToolByURLExcluding(ctx, in.URL, id)
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	if other != nil {
		return nil, &DuplicateError{ExistingID: other.ID, ExistingName: other.Name, OnUpdate: true}
	}

	t, err := s.GetTool(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Name = in.Name
	t.URL = in.URL
	t.Summary = in.Summary
	t.Categories = Categories(in.Categories)
	if err := s.store.UpdateTool(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info("scout: tool updated", "id", id)
	return t, nil
}

// DeleteTool removes tool id or returns ErrNotFound.
func (s *Service) DeleteTool(ctx context.Context, id string) error {
	if err := s.store.DeleteTool(ctx, id); err != nil {
		return err
	}
	s.logger.Info("scout: tool deleted", "id", id)
	return nil
}
