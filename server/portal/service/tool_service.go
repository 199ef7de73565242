package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/techfranca/francaverso/server/portal/domain"
)

// ToolStore is the slice of the tool repository the launcher needs.
type ToolStore interface {
	ListActive(ctx context.Context) ([]domain.CustomTool, error)
	Create(ctx context.Context, t domain.CustomTool) (domain.CustomTool, error)
	SoftDelete(ctx context.Context, id, createdBy string) error
}

// toolCategories are the launcher sections a tool can live in.
var toolCategories = map[string]bool{
	"projetos":  true,
	"ia":        true,
	"dev":       true,
	"automacao": true,
}

// ToolService manages the custom entries of the tool launcher.
type ToolService struct {
	store ToolStore
}

func NewToolService(store ToolStore) *ToolService {
	return &ToolService{store: store}
}

func (s *ToolService) List(ctx context.Context) ([]domain.CustomTool, error) {
	return s.store.ListActive(ctx)
}

func (s *ToolService) Create(ctx context.Context, createdBy, name, description, url, category, iconName string) (domain.CustomTool, error) {
	name = strings.TrimSpace(name)
	url = strings.TrimSpace(url)
	category = strings.TrimSpace(category)
	if name == "" || url == "" {
		return domain.CustomTool{}, fmt.Errorf("%w: name and url are required", domain.ErrInvalidInput)
	}
	if !toolCategories[category] {
		return domain.CustomTool{}, fmt.Errorf("%w: unknown category %q", domain.ErrInvalidInput, category)
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return domain.CustomTool{}, fmt.Errorf("%w: url must be absolute", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(iconName) == "" {
		iconName = "Link"
	}

	return s.store.Create(ctx, domain.CustomTool{
		Name:        name,
		Description: strings.TrimSpace(description),
		URL:         url,
		Category:    category,
		IconName:    strings.TrimSpace(iconName),
		CreatedBy:   createdBy,
	})
}

// Delete deactivates a tool; only its creator may remove it.
func (s *ToolService) Delete(ctx context.Context, id, userID string) error {
	return s.store.SoftDelete(ctx, id, userID)
}
