package db

import (
	"fmt"

	"github.com/monocle-dev/pms/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open returns a handle for the given driver ("postgres" or "sqlite").
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch driver {
	case "", "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	return gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
}

func ConnectDatabase(driver, dsn string) error {
	var err error

	DB, err = Open(driver, dsn)

	if err != nil {
		return err
	}

	return nil
}

// caseInsensitiveIndexes back the "unique ignoring case" rules that gorm tags
// cannot express. LOWER() expression indexes work on both postgres and sqlite.
var caseInsensitiveIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_projects_org_name_ci ON projects (organization_id, LOWER(project_name))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_project_phases_name_ci ON project_phases (project_id, LOWER(phase_name))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_tasks_phase_name_ci ON tasks (project_phase_id, LOWER(task_name))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_templates_industry_name_ci ON templates (industry_id, LOWER(template_name))`,
}

func MigrateDatabase() error {
	return Migrate(DB)
}

func Migrate(conn *gorm.DB) error {
	tables := []interface{}{
		&models.User{},
		&models.Organization{},
		&models.OrganizationMembership{},
		&models.Industry{},
		&models.Template{},
		&models.TemplatePhase{},
		&models.Project{},
		&models.ProjectMembership{},
		&models.ProjectPhase{},
		&models.Task{},
		&models.TaskAssignment{},
	}

	for _, model := range tables {
		if err := conn.AutoMigrate(model); err != nil {
			return err
		}
	}

	for _, stmt := range caseInsensitiveIndexes {
		if err := conn.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	return nil
}
