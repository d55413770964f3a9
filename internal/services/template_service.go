package services

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/monocle-dev/pms/internal/models"
	"gorm.io/gorm"
)

const (
	maxTemplateNameLength = 50
	maxIndustryNameLength = 50
	maxPhaseNameLength    = 50
)

type TemplateService struct {
	DB *gorm.DB
}

func NewTemplateService(db *gorm.DB) *TemplateService {
	return &TemplateService{DB: db}
}

type CreateTemplateInput struct {
	IndustryID uuid.UUID
	Name       string
	PhaseNames []string
}

// EnsureDefaultIndustry returns the "Other" industry, creating it on first use.
func (s *TemplateService) EnsureDefaultIndustry(ctx context.Context) (*models.Industry, error) {
	industry, err := ensureDefaultIndustry(s.DB.WithContext(ctx))
	if err != nil {
		return nil, fail(ctx, "ensure default industry", err)
	}
	return industry, nil
}

func ensureDefaultIndustry(tx *gorm.DB) (*models.Industry, error) {
	var industry models.Industry

	err := tx.Where("industry_name = ?", models.DefaultIndustryName).
		Attrs(models.Industry{Name: models.DefaultIndustryName}).
		FirstOrCreate(&industry).Error

	// Lost a creation race: the row exists now.
	if isUniqueViolation(err) {
		err = tx.Where("industry_name = ?", models.DefaultIndustryName).First(&industry).Error
	}

	if err != nil {
		return nil, err
	}

	return &industry, nil
}

func (s *TemplateService) ListIndustries(ctx context.Context) ([]models.Industry, error) {
	if _, err := s.EnsureDefaultIndustry(ctx); err != nil {
		return nil, err
	}

	industries := []models.Industry{}
	if err := s.DB.WithContext(ctx).Order("industry_name").Find(&industries).Error; err != nil {
		return nil, fail(ctx, "list industries", err)
	}

	return industries, nil
}

func (s *TemplateService) CreateIndustry(ctx context.Context, name string) (*models.Industry, error) {
	name, err := requiredText("industry_name", name, 0, maxIndustryNameLength)
	if err != nil {
		return nil, err
	}

	industry := models.Industry{Name: name}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Industry{}).Where("LOWER(industry_name) = ?", strings.ToLower(name)).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return Validation("industry_name", "An industry with this name already exists.")
		}
		return tx.Create(&industry).Error
	})

	if isUniqueViolation(err) {
		return nil, Validation("industry_name", "An industry with this name already exists.")
	}
	if err != nil {
		return nil, fail(ctx, "create industry", err)
	}

	return &industry, nil
}

// DeleteIndustry moves the industry's templates to the default industry and
// removes it. The default industry itself cannot be deleted.
func (s *TemplateService) DeleteIndustry(ctx context.Context, id uuid.UUID) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var industry models.Industry
		if err := tx.First(&industry, "id = ?", id).Error; err != nil {
			if isNotFound(err) {
				return NotFound("Industry not found.")
			}
			return err
		}

		if industry.Name == models.DefaultIndustryName {
			return Validation(NonFieldErrors, "The default industry cannot be deleted.")
		}

		fallback, err := ensureDefaultIndustry(tx)
		if err != nil {
			return err
		}

		var moving []models.Template
		if err := tx.Preload("Phases").Where("industry_id = ?", industry.ID).Find(&moving).Error; err != nil {
			return err
		}

		// A moved template takes a suffixed name if "Other" already holds one
		// with the same name.
		for i := range moving {
			name, err := freeTemplateName(tx, fallback.ID, moving[i].Name)
			if err != nil {
				return err
			}
			if err := tx.Model(&moving[i]).Updates(map[string]interface{}{
				"industry_id":   fallback.ID,
				"template_name": name,
			}).Error; err != nil {
				return err
			}
		}

		return tx.Delete(&industry).Error
	})

	if err != nil {
		return fail(ctx, "delete industry", err)
	}

	slog.DebugContext(ctx, "deleted industry", "industry_id", id)

	return nil
}

func freeTemplateName(tx *gorm.DB, industryID uuid.UUID, name string) (string, error) {
	candidate := name

	for n := 1; ; n++ {
		var count int64
		err := tx.Model(&models.Template{}).
			Where("industry_id = ? AND LOWER(template_name) = ?", industryID, strings.ToLower(candidate)).
			Count(&count).Error
		if err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}

		suffix := []rune(" (" + strconv.Itoa(n) + ")")
		base := []rune(name)
		if over := len(base) + len(suffix) - maxTemplateNameLength; over > 0 {
			base = base[:len(base)-over]
		}
		candidate = string(base) + string(suffix)
	}
}

// phaseSetKey is an order-insensitive, case-folded identity for a set of phases.
func phaseSetKey(names []string) string {
	folded := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))

	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		folded = append(folded, n)
	}

	sort.Strings(folded)
	return strings.Join(folded, "\x00")
}

// CreateTemplate persists a template and its phases atomically. Within an
// industry the name is unique ignoring case, and so is the set of phase names.
// The set comparison walks every template of the industry (O(templates×phases)).
func (s *TemplateService) CreateTemplate(ctx context.Context, requesterID uuid.UUID, in CreateTemplateInput) (*models.Template, error) {
	name, err := requiredText("template_name", in.Name, 0, maxTemplateNameLength)
	if err != nil {
		return nil, err
	}

	phases := cleanNames(in.PhaseNames)
	if len(phases) == 0 {
		return nil, Validation("phases", "A template needs at least one phase.")
	}
	folded := make(map[string]bool, len(phases))
	for _, p := range phases {
		if err := maxLength("phases", p, maxPhaseNameLength); err != nil {
			return nil, err
		}
		key := strings.ToLower(p)
		if folded[key] {
			return nil, Validation("phases", "Phase names must be unique ignoring case: "+p+".")
		}
		folded[key] = true
	}

	slog.DebugContext(ctx, "creating template", "industry_id", in.IndustryID, "name", name)

	template := models.Template{IndustryID: in.IndustryID, Name: name}
	if requesterID != uuid.Nil {
		creator := requesterID
		template.CreatedByID = &creator
	}
	for _, p := range phases {
		template.Phases = append(template.Phases, models.TemplatePhase{Name: p})
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&template.Industry, "id = ?", in.IndustryID).Error; err != nil {
			if isNotFound(err) {
				return Validation("industry", "Industry not found.")
			}
			return err
		}

		var existing []models.Template
		if err := tx.Preload("Phases").Where("industry_id = ?", in.IndustryID).Find(&existing).Error; err != nil {
			return err
		}

		key := phaseSetKey(phases)
		for _, t := range existing {
			if strings.EqualFold(t.Name, name) {
				return Validation("template_name", "A template with this name already exists in this industry.")
			}

			names := make([]string, len(t.Phases))
			for i, p := range t.Phases {
				names[i] = p.Name
			}
			if phaseSetKey(names) == key {
				return Validation("phases", "A template with the same phases already exists in this industry: "+t.Name+".")
			}
		}

		return tx.Omit("Industry").Create(&template).Error
	})

	if isUniqueViolation(err) {
		return nil, Validation("template_name", "A template with this name already exists in this industry.")
	}
	if err != nil {
		return nil, fail(ctx, "create template", err)
	}

	return &template, nil
}

// SearchTemplates matches a case-insensitive substring of the name. A blank
// fragment matches nothing.
func (s *TemplateService) SearchTemplates(ctx context.Context, fragment string) ([]models.Template, error) {
	templates := []models.Template{}

	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return templates, nil
	}

	err := s.DB.WithContext(ctx).
		Preload("Industry").
		Preload("Phases").
		Where(likeClause("template_name"), containsPattern(fragment)).
		Order("template_name").
		Find(&templates).Error

	if err != nil {
		return nil, fail(ctx, "search templates", err)
	}

	return templates, nil
}

func (s *TemplateService) GetTemplate(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	var template models.Template

	err := s.DB.WithContext(ctx).Preload("Industry").Preload("Phases").First(&template, "id = ?", id).Error
	if isNotFound(err) {
		return nil, NotFound("Template not found.")
	}
	if err != nil {
		return nil, fail(ctx, "load template", err)
	}

	return &template, nil
}

// DeleteTemplate is allowed to the template's creator while no project uses it.
func (s *TemplateService) DeleteTemplate(ctx context.Context, id, requesterID uuid.UUID) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var template models.Template
		if err := tx.First(&template, "id = ?", id).Error; err != nil {
			if isNotFound(err) {
				return NotFound("Template not found.")
			}
			return err
		}

		if template.CreatedByID == nil || *template.CreatedByID != requesterID {
			return Forbidden()
		}

		var inUse int64
		if err := tx.Model(&models.Project{}).Where("template_id = ?", id).Count(&inUse).Error; err != nil {
			return err
		}
		if inUse > 0 {
			return Conflict(NonFieldErrors, "This template is used by existing projects and cannot be deleted.")
		}

		if err := tx.Where("template_id = ?", id).Delete(&models.TemplatePhase{}).Error; err != nil {
			return err
		}

		return tx.Delete(&template).Error
	})

	return fail(ctx, "delete template", err)
}
