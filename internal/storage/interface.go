package storage

import (
	"errors"

	"github.com/samber/mo"

	"github.com/julianstephens/cadence/internal/models"
)

var (
	// ErrNotFound is returned when an activity does not exist or is deleted.
	ErrNotFound = errors.New("activity not found")
	// ErrVersionConflict is returned when completions changed since they were read.
	ErrVersionConflict = errors.New("completions were modified concurrently")
)

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Activity definitions
	AddActivity(models.ActivityDefinition) error
	// GetActivity returns the definition with its exceptions and completions.
	GetActivity(id string) (models.ActivityDefinition, error)
	GetAllActivities() ([]models.ActivityDefinition, error)
	GetAllActivitiesIncludingDeleted() ([]models.ActivityDefinition, error)
	UpdateActivity(models.ActivityDefinition) error
	DeleteActivity(id string) error
	RestoreActivity(id string) error

	// Per-occurrence exceptions
	SetException(activityID string, index int, rec models.ExceptionRecord) error
	DeleteException(activityID string, index int) error

	// Completions. Version 0 means no completions were stored yet.
	GetCompletions(activityID string) (mo.Option[models.ActivityCompletions], int64, error)
	// SaveCompletions writes state only if the stored version still equals
	// expectedVersion and returns ErrVersionConflict otherwise.
	SaveCompletions(activityID string, state models.ActivityCompletions, expectedVersion int64) error

	// Utils
	GetConfigPath() string
}
